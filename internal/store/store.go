// Package store is the relational-datastore access layer: a thin set of
// per-concern repositories over gorm v1 (postgres dialect), so each
// worker depends only on the slice of schema it actually touches. Shaped
// after the teacher's storage/database.DBManager interface-per-concern
// split (DESIGN.md).
package store

import (
	"time"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres"

	"github.com/coinsensei/chain-workers/internal/config"
	"github.com/coinsensei/chain-workers/internal/errs"
)

// Store owns the *gorm.DB connection and exposes one repository per
// concern. Nothing outside this package touches *gorm.DB directly.
type Store struct {
	db *gorm.DB

	Chains       *ChainRepo
	Assets       *AssetRepo
	Wallets      *WalletRepo
	Balances     *BalanceRepo
	Deposits     *DepositRepo
	Consolidation *ConsolidationRepo
	GasTopup     *GasTopupRepo
	Withdrawals  *WithdrawalRepo
	Rules        *RuleRepo
	Control      *ControlRepo
	Ledger       *LedgerRepo
	AdvisoryLock *AdvisoryLockRepo
}

// Open establishes the datastore connection and configures the pool per
// cfg. Fails fast (configuration error kind) on a bad DSN, matching §7.
func Open(cfg *config.Config) (*Store, error) {
	db, err := gorm.Open("postgres", cfg.DatastoreURL)
	if err != nil {
		return nil, errs.New(errs.KindConfiguration, "failed to open datastore connection", err)
	}
	db.DB().SetMaxIdleConns(cfg.MaxIdleConns)
	db.DB().SetMaxOpenConns(cfg.MaxOpenConns)
	db.DB().SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return newStore(db), nil
}

// NewForDB wraps an already-open *gorm.DB instead of opening one from
// Config. Nothing in this repository calls it.
func NewForDB(db *gorm.DB) *Store {
	return newStore(db)
}

func newStore(db *gorm.DB) *Store {
	return &Store{
		db:            db,
		Chains:        &ChainRepo{db: db},
		Assets:        &AssetRepo{db: db},
		Wallets:       &WalletRepo{db: db},
		Balances:      &BalanceRepo{db: db},
		Deposits:      &DepositRepo{db: db},
		Consolidation: &ConsolidationRepo{db: db},
		GasTopup:      &GasTopupRepo{db: db},
		Withdrawals:   &WithdrawalRepo{db: db},
		Rules:         &RuleRepo{db: db},
		Control:       &ControlRepo{db: db},
		Ledger:        &LedgerRepo{db: db},
		AdvisoryLock:  &AdvisoryLockRepo{db: db},
	}
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Now is a single indirection point for "current timestamp" so tests can
// observe exactly what every CAS update compares against.
func Now() time.Time { return time.Now().UTC() }

func isNoRowsAffected(db *gorm.DB) bool {
	return db.RowsAffected == 0
}

func translateNotFound(err error) error {
	if err == gorm.ErrRecordNotFound {
		return nil
	}
	return err
}

package store

import (
	"github.com/jinzhu/gorm"
	"github.com/lib/pq"

	"github.com/coinsensei/chain-workers/internal/store/model"
)

// DepositRepo implements the detector's idempotent insert and the
// confirmation worker's exactly-once credit transition (P1, P8, R3).
type DepositRepo struct{ db *gorm.DB }

// pqUniqueViolation is the Postgres SQLSTATE for a unique-constraint
// violation, used to distinguish "another worker already inserted this
// deposit" (silent skip, §4.4) from a genuine datastore error.
const pqUniqueViolation = "23505"

// Exists checks the (tx_hash, log_index) pre-check ahead of insert
// (§4.4's "pre-check by (tx_hash, log_index)").
func (r *DepositRepo) Exists(txHash string, logIndex int64) (bool, error) {
	var count int
	err := r.db.Model(&model.Deposit{}).
		Where("tx_hash = ? AND log_index = ?", txHash, logIndex).
		Count(&count).Error
	return count > 0, err
}

// Insert inserts a new pending deposit row. On a unique-constraint
// violation (lost the insert race to another detector instance) it
// returns (false, nil) — a silent skip, never an error (§4.4, R3, P1).
func (r *DepositRepo) Insert(d *model.Deposit) (inserted bool, err error) {
	err = r.db.Create(d).Error
	if err == nil {
		return true, nil
	}
	if isUniqueViolation(err) {
		return false, nil
	}
	return false, err
}

func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return string(pqErr.Code) == pqUniqueViolation
	}
	return false
}

// PendingOldestFirst selects up to limit pending deposits for chainID,
// oldest block first (§4.5).
func (r *DepositRepo) PendingOldestFirst(chainID int64, limit int) ([]model.Deposit, error) {
	var rows []model.Deposit
	err := r.db.
		Where("chain_id = ? AND status = ?", chainID, model.DepositPending).
		Order("block_number ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateConfirmations sets confirmations without touching status —
// the pre-threshold path in §4.5.
func (r *DepositRepo) UpdateConfirmations(id int64, confirmations int64) error {
	return r.db.Model(&model.Deposit{}).Where("id = ?", id).
		Update("confirmations", confirmations).Error
}

// ByID returns at most one deposit, used for the re-read idempotency
// check in §4.5 step (1).
func (r *DepositRepo) ByID(id int64) (*model.Deposit, error) {
	var d model.Deposit
	err := r.db.Where("id = ?", id).First(&d).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// TryConfirm performs the CAS transition pending -> confirmed (§4.5 step
// 2): UPDATE ... WHERE id = ? AND status = 'pending'. Returns whether
// this call won the race (rows affected = 1).
func (r *DepositRepo) TryConfirm(id int64, confirmations int64) (bool, error) {
	now := Now()
	tx := r.db.Model(&model.Deposit{}).
		Where("id = ? AND status = ?", id, model.DepositPending).
		Updates(map[string]interface{}{
			"status":        model.DepositConfirmed,
			"confirmed_at":  now,
			"confirmations": confirmations,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// MarkCredited sets credited_at — the sole exactly-once gate for the
// credit procedure call (P1). Idempotent: calling it twice is harmless
// since the read-before-write guard in the confirmation worker already
// checked credited_at IS NULL before calling this.
func (r *DepositRepo) MarkCredited(id int64) error {
	return r.db.Model(&model.Deposit{}).Where("id = ?", id).
		Update("credited_at", Now()).Error
}

// MarkFailed transitions a deposit to failed — not currently reachable
// from the confirmation cycle described in §4.5 (which only advances
// pending->confirmed), kept for operator tooling / future reorg handling
// per §9's open question.
func (r *DepositRepo) MarkFailed(id int64) error {
	return r.db.Model(&model.Deposit{}).Where("id = ? AND status = ?", id, model.DepositPending).
		Update("status", model.DepositFailed).Error
}

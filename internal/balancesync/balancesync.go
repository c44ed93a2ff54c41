// Package balancesync implements the balance-sync worker (§4.6): batch
// lease acquire, dual-table address resolution, native/token balance
// read, write-back, lease release.
package balancesync

import (
	"context"

	"github.com/coinsensei/chain-workers/internal/idgen"
	"github.com/coinsensei/chain-workers/internal/log"
	"github.com/coinsensei/chain-workers/internal/store"
	"github.com/coinsensei/chain-workers/internal/store/model"
)

// BalanceSync drives one chain's balance-sync cycle.
type BalanceSync struct {
	chainRow model.Chain
	store    *store.Store
	workerID string
	batch    int

	readBalance func(ctx context.Context, addr string, assetOnChain model.AssetOnChain) (raw, human string, err error)
}

// New builds a BalanceSync for chainRow. readBalance abstracts the
// chain.Adapter dispatch (native vs token) so this package has no direct
// dependency on internal/chain's concrete big.Int-based signature,
// keeping the balance-read strategy injectable for tests.
func New(chainRow model.Chain, st *store.Store, batch int, readBalance func(ctx context.Context, addr string, assetOnChain model.AssetOnChain) (raw, human string, err error)) *BalanceSync {
	return &BalanceSync{
		chainRow:    chainRow,
		store:       st,
		workerID:    idgen.WorkerID("balance-sync", chainRow.Name),
		batch:       batch,
		readBalance: readBalance,
	}
}

// Cycle acquires a batch of due rows via CAS, resolves each row's wallet
// address (probing both wallet tables, §9), reads the on-chain balance,
// writes it back, and releases the lease — never touching needs_*, other
// leases, or priorities (§4.6).
func (b *BalanceSync) Cycle(ctx context.Context) error {
	logger := log.NewModuleLogger(log.BalanceSync)

	due, err := b.store.Balances.DueForSync(b.batch)
	if err != nil {
		return err
	}
	if len(due) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(due))
	byID := make(map[int64]model.WalletBalance, len(due))
	for _, row := range due {
		asset, err := b.store.Assets.ByID(row.AssetOnChainID)
		if err != nil {
			return err
		}
		if asset == nil || asset.ChainID != b.chainRow.ID {
			continue
		}
		ids = append(ids, row.ID)
		byID[row.ID] = row
	}

	acquired, err := b.store.Balances.AcquireGeneralLease(ids, b.workerID)
	if err != nil {
		return err
	}

	for _, id := range acquired {
		row := byID[id]
		if err := b.syncRow(ctx, row); err != nil {
			logger.Warnw("balance sync row failed", "wallet_balance_id", row.ID, "error", err)
			if rerr := b.store.Balances.RecordSyncError(row.ID, err.Error()); rerr != nil {
				logger.Warnw("record sync error failed", "wallet_balance_id", row.ID, "error", rerr)
			}
		}
		if err := b.store.Balances.ReleaseGeneralLease(row.ID); err != nil {
			logger.Warnw("release general lease failed", "wallet_balance_id", row.ID, "error", err)
		}
	}

	return nil
}

func (b *BalanceSync) syncRow(ctx context.Context, row model.WalletBalance) error {
	ref, err := b.store.Wallets.ResolveWallet(row.WalletID)
	if err != nil {
		return err
	}
	if ref == nil {
		return nil
	}

	asset, err := b.store.Assets.ByID(row.AssetOnChainID)
	if err != nil {
		return err
	}
	if asset == nil {
		return nil
	}

	raw, human, err := b.readBalance(ctx, ref.Address, *asset)
	if err != nil {
		return err
	}

	return b.store.Balances.WriteSyncResult(row.ID, raw, human)
}

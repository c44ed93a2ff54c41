package confirm

import (
	"context"
	"time"

	"github.com/coinsensei/chain-workers/internal/chain"
	"github.com/coinsensei/chain-workers/internal/log"
	"github.com/coinsensei/chain-workers/internal/store"
	"github.com/coinsensei/chain-workers/internal/store/model"
)

// recheckDelay is the no-hot-loop backoff applied when a confirming job's
// transaction has no receipt yet (§4.11).
const recheckDelay = 20 * time.Second

// ConsolidationConfirmer polls confirming-status consolidation jobs for
// a mined receipt and performs the single-statement terminal transition
// (§4.11).
type ConsolidationConfirmer struct {
	chainRow model.Chain
	adapter  chain.Adapter
	store    *store.Store
}

// NewConsolidationConfirmer builds a ConsolidationConfirmer for chainRow.
func NewConsolidationConfirmer(chainRow model.Chain, adapter chain.Adapter, st *store.Store) *ConsolidationConfirmer {
	return &ConsolidationConfirmer{chainRow: chainRow, adapter: adapter, store: st}
}

func (c *ConsolidationConfirmer) Cycle(ctx context.Context) error {
	logger := log.NewModuleLogger(log.ConsolConfirm)

	jobs, err := c.store.Consolidation.InConfirming(c.chainRow.ID)
	if err != nil {
		return err
	}

	for _, job := range jobs {
		if job.TxHash == nil {
			continue
		}
		receipt, err := c.adapter.Receipt(ctx, *job.TxHash)
		if err != nil {
			return err
		}
		if receipt == nil || receipt.Status == chain.ReceiptPending {
			if err := c.store.Consolidation.DelayRecheck(job.ID, recheckDelay); err != nil {
				return err
			}
			continue
		}

		if receipt.Status == chain.ReceiptSuccess {
			if err := c.store.Consolidation.ConfirmSuccess(job.ID, receipt.GasUsed, receipt.GasPrice); err != nil {
				return err
			}
			if err := c.store.Balances.MarkConsolidated(job.WalletBalanceID); err != nil {
				return err
			}
			if err := c.store.Balances.ReleaseConsolidationLease(job.WalletBalanceID); err != nil {
				logger.Warnw("release consolidation lease failed", "wallet_balance_id", job.WalletBalanceID, "error", err)
			}
			if err := c.store.Wallets.BumpLastUsed(job.DestinationWalletID); err != nil {
				logger.Warnw("bump last_used_at failed", "wallet_id", job.DestinationWalletID, "error", err)
			}
			logger.Infow("consolidation confirmed", "job_id", job.ID, "tx_hash", *job.TxHash)
			continue
		}

		// Reverted/failed: needs_consolidation is left untouched, letting
		// the planner re-evaluate and re-enqueue on its own schedule.
		if err := c.store.Consolidation.ConfirmFailure(job.ID, "on-chain transaction reverted"); err != nil {
			return err
		}
		if err := c.store.Balances.ReleaseConsolidationLease(job.WalletBalanceID); err != nil {
			logger.Warnw("release consolidation lease failed", "wallet_balance_id", job.WalletBalanceID, "error", err)
		}
		logger.Warnw("consolidation reverted", "job_id", job.ID, "tx_hash", *job.TxHash)
	}

	return nil
}

package confirm

import (
	"context"

	"github.com/coinsensei/chain-workers/internal/chain"
	"github.com/coinsensei/chain-workers/internal/log"
	"github.com/coinsensei/chain-workers/internal/store"
	"github.com/coinsensei/chain-workers/internal/store/model"
)

// GasTopupConfirmer mirrors ConsolidationConfirmer for gas_topup_queue.
// needs_gas itself is never touched here — balance-sync picks up the new
// on-chain balance on its own schedule and the planner clears the flag,
// per §4.7's gas-blocks-consolidation scenario.
type GasTopupConfirmer struct {
	chainRow model.Chain
	adapter  chain.Adapter
	store    *store.Store
}

// NewGasTopupConfirmer builds a GasTopupConfirmer for chainRow.
func NewGasTopupConfirmer(chainRow model.Chain, adapter chain.Adapter, st *store.Store) *GasTopupConfirmer {
	return &GasTopupConfirmer{chainRow: chainRow, adapter: adapter, store: st}
}

func (c *GasTopupConfirmer) Cycle(ctx context.Context) error {
	logger := log.NewModuleLogger(log.ExecGasTopup)

	jobs, err := c.store.GasTopup.InConfirming(c.chainRow.ID)
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
			if err := c.store.GasTopup.DelayRecheck(job.ID, recheckDelay); err != nil {
				return err
			}
			continue
		}

		nativeRow, rowErr := c.store.Balances.NativeRowForWallet(job.WalletID, job.GasAssetID)
		if rowErr != nil {
			return rowErr
		}

		if receipt.Status == chain.ReceiptSuccess {
			if err := c.store.GasTopup.ConfirmSuccess(job.ID, receipt.GasUsed, receipt.GasPrice); err != nil {
				return err
			}
			if nativeRow != nil {
				if err := c.store.Balances.ReleaseGasLease(nativeRow.ID); err != nil {
					logger.Warnw("release gas lease failed", "wallet_balance_id", nativeRow.ID, "error", err)
				}
			}
			if err := c.store.Wallets.BumpLastUsed(job.DestinationWalletID); err != nil {
				logger.Warnw("bump last_used_at failed", "wallet_id", job.DestinationWalletID, "error", err)
			}
			logger.Infow("gas-topup confirmed", "job_id", job.ID, "tx_hash", *job.TxHash)
			continue
		}

		if err := c.store.GasTopup.ConfirmFailure(job.ID, "on-chain transaction reverted"); err != nil {
			return err
		}
		if nativeRow != nil {
			if err := c.store.Balances.ReleaseGasLease(nativeRow.ID); err != nil {
				logger.Warnw("release gas lease failed", "wallet_balance_id", nativeRow.ID, "error", err)
			}
		}
		logger.Warnw("gas-topup reverted", "job_id", job.ID, "tx_hash", *job.TxHash)
	}

	return nil
}

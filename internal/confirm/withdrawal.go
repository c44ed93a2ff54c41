package confirm

import (
	"context"

	"github.com/coinsensei/chain-workers/internal/chain"
	"github.com/coinsensei/chain-workers/internal/log"
	"github.com/coinsensei/chain-workers/internal/store"
	"github.com/coinsensei/chain-workers/internal/store/model"
)

// WithdrawalConfirmer mirrors ConsolidationConfirmer but propagates its
// terminal state into withdrawal_requests as well as withdrawal_queue
// (§4.11).
type WithdrawalConfirmer struct {
	chainRow model.Chain
	adapter  chain.Adapter
	store    *store.Store
}

// NewWithdrawalConfirmer builds a WithdrawalConfirmer for chainRow.
func NewWithdrawalConfirmer(chainRow model.Chain, adapter chain.Adapter, st *store.Store) *WithdrawalConfirmer {
	return &WithdrawalConfirmer{chainRow: chainRow, adapter: adapter, store: st}
}

func (c *WithdrawalConfirmer) Cycle(ctx context.Context) error {
	logger := log.NewModuleLogger(log.WithdrawConfirm)

	jobs, err := c.store.Withdrawals.InConfirming(c.chainRow.ID)
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
			if err := c.store.Withdrawals.DelayRecheck(job.ID, recheckDelay); err != nil {
				return err
			}
			continue
		}

		if receipt.Status == chain.ReceiptSuccess {
			if err := c.store.Withdrawals.ConfirmSuccess(job.ID, job.WithdrawalRequestID, *job.TxHash, receipt.GasUsed, receipt.GasPrice); err != nil {
				return err
			}
			logger.Infow("withdrawal confirmed", "job_id", job.ID, "request_id", job.WithdrawalRequestID, "tx_hash", *job.TxHash)
			continue
		}

		if err := c.store.Withdrawals.ConfirmFailure(job.ID, job.WithdrawalRequestID, "on-chain transaction reverted"); err != nil {
			return err
		}
		logger.Warnw("withdrawal reverted", "job_id", job.ID, "request_id", job.WithdrawalRequestID, "tx_hash", *job.TxHash)
	}

	return nil
}

// Package confirm implements the four confirmation workers: deposit
// (§4.5), consolidation and withdrawal (§4.11), and gas-topup. Each is a thin
// poll-and-transition loop driven by runtime.Worker.
package confirm

import (
	"context"

	"github.com/coinsensei/chain-workers/internal/chain"
	"github.com/coinsensei/chain-workers/internal/log"
	"github.com/coinsensei/chain-workers/internal/store"
	"github.com/coinsensei/chain-workers/internal/store/model"
)

// DepositConfirmer advances pending deposits to confirmed once they
// clear the chain's confirmation threshold, then credits the ledger
// exactly once (§4.5, P1).
//
// KNOWN GAP: reorg handling is "wait" only — a deposit that later turns
// out to belong to an orphaned block is never un-confirmed or
// un-credited. Flagged here per SPEC_FULL.md §12; needs follow-up before
// production exposure to deep reorgs.
type DepositConfirmer struct {
	chainRow model.Chain
	adapter  chain.Adapter
	store    *store.Store
	batch    int
}

// NewDepositConfirmer builds a DepositConfirmer for chainRow.
func NewDepositConfirmer(chainRow model.Chain, adapter chain.Adapter, st *store.Store, batch int) *DepositConfirmer {
	return &DepositConfirmer{chainRow: chainRow, adapter: adapter, store: st, batch: batch}
}

// Cycle implements the four-step transition from §4.5: select pending
// deposits oldest-block-first, re-read confirmations from the chain,
// below-threshold updates confirmations only, at-threshold performs the
// CAS confirm then — only if it won the race and credited_at is still
// unset — calls the ledger credit procedure and marks credited_at.
func (c *DepositConfirmer) Cycle(ctx context.Context) error {
	logger := log.NewModuleLogger(log.DepositConfirm)

	current, err := c.adapter.CurrentBlock(ctx)
	if err != nil {
		return err
	}

	rows, err := c.store.Deposits.PendingOldestFirst(c.chainRow.ID, c.batch)
	if err != nil {
		return err
	}

	for _, dep := range rows {
		confirmations := c.adapter.Confirmations(&chain.Receipt{BlockNumber: dep.BlockNumber}, current)

		if int64(confirmations) < int64(c.chainRow.ConfirmationThreshold) {
			if err := c.store.Deposits.UpdateConfirmations(dep.ID, int64(confirmations)); err != nil {
				return err
			}
			continue
		}

		won, err := c.store.Deposits.TryConfirm(dep.ID, int64(confirmations))
		if err != nil {
			return err
		}
		if !won {
			continue
		}

		fresh, err := c.store.Deposits.ByID(dep.ID)
		if err != nil {
			return err
		}
		if fresh == nil || fresh.CreditedAt != nil {
			continue
		}

		if err := c.store.Ledger.CreditDeposit(dep.UID, dep.AssetOnChainID, dep.AmountHuman, dep.TxHash); err != nil {
			return err
		}
		if err := c.store.Deposits.MarkCredited(dep.ID); err != nil {
			return err
		}
		logger.Infow("deposit credited", "deposit_id", dep.ID, "uid", dep.UID, "tx_hash", dep.TxHash)
	}

	return nil
}

// Package detector implements the per-chain deposit-detection cycle
// (§4.4): batched log scan, monitored-address filter, idempotent insert,
// cursor advance.
package detector

import (
	"context"

	"github.com/coinsensei/chain-workers/internal/chain"
	"github.com/coinsensei/chain-workers/internal/errs"
	"github.com/coinsensei/chain-workers/internal/log"
	"github.com/coinsensei/chain-workers/internal/money"
	"github.com/coinsensei/chain-workers/internal/store"
	"github.com/coinsensei/chain-workers/internal/store/model"
)

// Detector runs one chain's deposit-detection cycle.
type Detector struct {
	chainRow model.Chain
	adapter  chain.Adapter
	store    *store.Store
	addrs    *AddressSet
	batch    uint64
}

// NewDetector builds a Detector for chainRow, scanning at most batchSize
// blocks per cycle (§6's BATCH_BLOCK_SIZE).
func NewDetector(chainRow model.Chain, adapter chain.Adapter, st *store.Store, addrs *AddressSet, batchSize int) *Detector {
	return &Detector{
		chainRow: chainRow,
		adapter:  adapter,
		store:    st,
		addrs:    addrs,
		batch:    uint64(batchSize),
	}
}

// Cycle performs one detection pass: compute the safe scan window,
// iterate every active AssetOnChain on this chain, scan its transfer
// logs, filter to monitored addresses, idempotently insert pending
// deposits, then advance the cursor once the whole batch is processed
// (§4.4).
func (d *Detector) Cycle(ctx context.Context) error {
	logger := log.NewModuleLogger(log.Detector)

	current, err := d.adapter.CurrentBlock(ctx)
	if err != nil {
		return err
	}
	threshold := uint64(d.chainRow.ConfirmationThreshold)
	if current < threshold {
		return nil
	}
	safe := current - threshold

	state, err := d.store.Chains.ChainState(d.chainRow.ID)
	if err != nil {
		return err
	}
	if state == nil {
		if err := d.store.Chains.InitChainState(d.chainRow.ID, safe); err != nil {
			return err
		}
		return nil
	}

	from := state.LastProcessedBlock + 1
	if from > safe {
		return nil
	}
	to := from + d.batch - 1
	if to > safe {
		to = safe
	}

	assets, err := d.store.Assets.ActiveOnChain(d.chainRow.ID)
	if err != nil {
		return err
	}

	inserted := 0
	for _, asset := range assets {
		contract := ""
		if asset.ContractAddress != nil {
			contract = *asset.ContractAddress
		}
		logs, err := d.adapter.TransferLogs(ctx, contract, from, to)
		if err != nil {
			return err
		}

		for _, lg := range logs {
			walletID, ok := d.addrs.Lookup(lg.To)
			if !ok {
				continue
			}
			uid, err := d.resolveUID(walletID)
			if err != nil {
				return err
			}
			if uid == "" {
				continue
			}

			human := d.adapter.FormatAmount(lg.Amount, asset.Decimals)
			if money.IsZero(lg.Amount.String()) {
				continue
			}

			exists, err := d.store.Deposits.Exists(lg.TxHash, lg.LogIndex)
			if err != nil {
				return errs.New(errs.KindNetworkError, "check deposit", err)
			}
			if exists {
				continue
			}

			dep := &model.Deposit{
				ChainID:        d.chainRow.ID,
				AssetOnChainID: asset.ID,
				TxHash:         lg.TxHash,
				LogIndex:       lg.LogIndex,
				FromAddress:    lg.From,
				ToAddress:      lg.To,
				UID:            uid,
				AmountRaw:      lg.Amount.String(),
				AmountHuman:    human,
				BlockNumber:    lg.BlockNumber,
				FirstSeenBlock: lg.BlockNumber,
				Status:         model.DepositPending,
				Confirmations:  0,
			}
			ok, err = d.store.Deposits.Insert(dep)
			if err != nil {
				return errs.New(errs.KindNetworkError, "insert deposit", err)
			}
			if ok {
				inserted++
			}
		}
	}

	if err := d.store.Chains.AdvanceChainState(d.chainRow.ID, to); err != nil {
		return err
	}

	if inserted > 0 {
		logger.Infow("deposits detected", "chain_id", d.chainRow.ID, "from", from, "to", to, "inserted", inserted)
	}
	return nil
}

func (d *Detector) resolveUID(walletID int64) (string, error) {
	return d.store.Wallets.UserUIDByID(walletID)
}

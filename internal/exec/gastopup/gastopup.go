// Package gastopup implements the gas-topup execution worker (§4.8):
// candidate selection, the gas-lease family, job-to-Job translation, and
// the retry/fail dispatch table, dispatched to a chain-family Executor
// injected at construction.
package gastopup

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/coinsensei/chain-workers/internal/errs"
	"github.com/coinsensei/chain-workers/internal/exec"
	"github.com/coinsensei/chain-workers/internal/idgen"
	"github.com/coinsensei/chain-workers/internal/log"
	"github.com/coinsensei/chain-workers/internal/store"
	"github.com/coinsensei/chain-workers/internal/store/model"
)

const gasLeaseTTL = 2 * time.Minute

// Worker drives one chain's gas-topup execution cycle.
type Worker struct {
	chainRow model.Chain
	store    *store.Store
	executor exec.Executor
	workerID string
}

// New builds a Worker for chainRow, dispatching build/sign/broadcast to
// executor (internal/exec/tron or internal/exec/evm, picked by the
// caller per the chain's family).
func New(chainRow model.Chain, st *store.Store, executor exec.Executor) *Worker {
	return &Worker{
		chainRow: chainRow,
		store:    st,
		executor: executor,
		workerID: idgen.WorkerID("gas-topup", chainRow.Name),
	}
}

func (w *Worker) Cycle(ctx context.Context) error {
	logger := log.NewModuleLogger(log.ExecGasTopup)

	jobs, err := w.store.GasTopup.Candidates(w.chainRow.ID)
	if err != nil {
		return err
	}

	for _, job := range jobs {
		w.processJob(ctx, logger, job)
	}
	return nil
}

func (w *Worker) processJob(ctx context.Context, logger *zap.SugaredLogger, job model.GasTopupJob) {
	// §4.8 idempotency guard: a non-nil tx_hash on a non-failed job already
	// has a broadcast transaction in flight or confirming — never
	// re-build/re-sign/re-broadcast it, even if its lease expired.
	if job.TxHash != nil && job.Status != model.QueueFailed {
		return
	}

	nativeRow, err := w.store.Balances.NativeRowForWallet(job.WalletID, job.GasAssetID)
	if err != nil {
		logger.Warnw("gas-topup: lookup native row failed", "job_id", job.ID, "error", err)
		return
	}
	if nativeRow == nil {
		logger.Warnw("gas-topup: no native wallet_balance row for wallet", "job_id", job.ID, "wallet_id", job.WalletID)
		return
	}

	acquired, err := w.store.Balances.AcquireGasLease(nativeRow.ID, w.workerID, gasLeaseTTL)
	if err != nil {
		logger.Warnw("gas-topup: acquire lease failed", "job_id", job.ID, "error", err)
		return
	}
	if !acquired {
		return
	}

	// The lease is released by the gas-topup confirmation worker once the
	// job reaches confirmed/failed (§4.11) — never here on a successful
	// broadcast, only on the error paths that never get that far.
	if err := w.store.GasTopup.MarkProcessing(job.ID); err != nil {
		logger.Warnw("gas-topup: mark processing failed", "job_id", job.ID, "error", err)
		w.releaseLease(logger, nativeRow.ID)
		return
	}

	txHash, err := w.execute(ctx, job)
	if err != nil {
		w.onError(logger, job, err)
		w.releaseLease(logger, nativeRow.ID)
		return
	}

	if err := w.store.GasTopup.MarkBroadcast(job.ID, txHash); err != nil {
		logger.Warnw("gas-topup: mark broadcast failed", "job_id", job.ID, "tx_hash", txHash, "error", err)
		w.releaseLease(logger, nativeRow.ID)
		return
	}
	if err := w.store.Wallets.BumpLastUsed(job.DestinationWalletID); err != nil {
		logger.Warnw("gas-topup: bump last_used_at failed", "wallet_id", job.DestinationWalletID, "error", err)
	}
	logger.Infow("gas-topup broadcast", "job_id", job.ID, "tx_hash", txHash)
}

func (w *Worker) releaseLease(logger *zap.SugaredLogger, walletBalanceID int64) {
	if err := w.store.Balances.ReleaseGasLease(walletBalanceID); err != nil {
		logger.Warnw("gas-topup: release lease failed", "wallet_balance_id", walletBalanceID, "error", err)
	}
}

// execute resolves the funding (operation gas wallet) and receiving
// (the wallet that needs gas) sides and dispatches to the injected
// Executor (§4.9/§4.10).
func (w *Worker) execute(ctx context.Context, job model.GasTopupJob) (string, error) {
	from, err := w.store.Wallets.ResolveWallet(job.DestinationWalletID)
	if err != nil {
		return "", err
	}
	if from == nil {
		return "", errs.New(errs.KindFundingWalletNotFound, "gas-topup funding wallet not found", nil)
	}

	to, err := w.store.Wallets.ResolveWallet(job.WalletID)
	if err != nil {
		return "", err
	}
	if to == nil {
		return "", errs.New(errs.KindInvalidData, "gas-topup destination wallet not found", nil)
	}

	asset, err := w.store.Assets.ByID(job.GasAssetID)
	if err != nil {
		return "", err
	}
	if asset == nil {
		return "", errs.New(errs.KindConfiguration, "gas-topup gas asset not found", nil)
	}

	return w.executor.Execute(ctx, exec.Job{
		ChainID:             w.chainRow.ID,
		FromWalletGroupID:   from.WalletGroupID,
		FromDerivationIndex: from.DerivationIndex,
		FromAddress:         from.Address,
		ToAddress:           to.Address,
		AssetOnChainID:      asset.ID,
		ContractAddress:     asset.ContractAddress,
		IsNative:            asset.IsNative,
		Decimals:            asset.Decimals,
		AmountRaw:           job.TopupAmountRaw,
	})
}

func (w *Worker) onError(logger *zap.SugaredLogger, job model.GasTopupJob, execErr error) {
	outcome, classified := exec.Dispatch(execErr)
	if outcome == exec.OutcomeFail {
		if err := w.store.GasTopup.Fail(job.ID, classified.Tag()); err != nil {
			logger.Warnw("gas-topup: fail transition failed", "job_id", job.ID, "error", err)
		}
		logger.Warnw("gas-topup failed", "job_id", job.ID, "kind", classified.Kind)
		return
	}

	retryCount := job.RetryCount + 1
	if retryCount > exec.MaxRetries {
		if err := w.store.GasTopup.Fail(job.ID, classified.Tag()); err != nil {
			logger.Warnw("gas-topup: fail transition failed", "job_id", job.ID, "error", err)
		}
		logger.Warnw("gas-topup exhausted retries", "job_id", job.ID)
		return
	}
	if err := w.store.GasTopup.Retry(job.ID, retryCount, exec.Backoff(job.RetryCount), classified.Tag()); err != nil {
		logger.Warnw("gas-topup: retry transition failed", "job_id", job.ID, "error", err)
	}
}

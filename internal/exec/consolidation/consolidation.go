// Package consolidation implements the consolidation execution worker
// (§4.8): candidate selection, the consolidation-lease family,
// job-to-Job translation, and the retry/fail dispatch table, dispatched
// to a chain-family Executor injected at construction.
package consolidation

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

const consolidationLeaseTTL = 2 * time.Minute

// Worker drives one chain's consolidation execution cycle.
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
		workerID: idgen.WorkerID("consolidation", chainRow.Name),
	}
}

func (w *Worker) Cycle(ctx context.Context) error {
	logger := log.NewModuleLogger(log.ExecConsol)

	jobs, err := w.store.Consolidation.Candidates(w.chainRow.ID)
	if err != nil {
		return err
	}

	for _, job := range jobs {
		w.processJob(ctx, logger, job)
	}
	return nil
}

func (w *Worker) processJob(ctx context.Context, logger *zap.SugaredLogger, job model.ConsolidationJob) {
	// §4.8 idempotency guard: a non-nil tx_hash on a non-failed job means a
	// transaction has already been built/signed/broadcast for it — it's
	// either still confirming or the lease that was protecting it expired
	// before the chain confirmed. Either way this worker must not touch it
	// again; only the confirmation worker and MarkBroadcast's tx_hash IS
	// NULL guard decide what happens next.
	if job.TxHash != nil && job.Status != model.QueueFailed {
		return
	}

	acquired, err := w.store.Balances.AcquireConsolidationLease(job.WalletBalanceID, w.workerID, consolidationLeaseTTL)
	if err != nil {
		logger.Warnw("consolidation: acquire lease failed", "job_id", job.ID, "error", err)
		return
	}
	if !acquired {
		return
	}

	// The lease is released by the consolidation confirmation worker once
	// the job reaches confirmed/failed (§4.11) — never here on a
	// successful broadcast, only on the error paths that never get there.
	if err := w.store.Consolidation.MarkProcessing(job.ID); err != nil {
		logger.Warnw("consolidation: mark processing failed", "job_id", job.ID, "error", err)
		w.releaseLease(logger, job.WalletBalanceID)
		return
	}

	txHash, err := w.execute(ctx, job)
	if err != nil {
		w.onError(logger, job, err)
		w.releaseLease(logger, job.WalletBalanceID)
		return
	}

	if err := w.store.Consolidation.MarkBroadcast(job.ID, txHash); err != nil {
		logger.Warnw("consolidation: mark broadcast failed", "job_id", job.ID, "tx_hash", txHash, "error", err)
		w.releaseLease(logger, job.WalletBalanceID)
		return
	}
	logger.Infow("consolidation broadcast", "job_id", job.ID, "tx_hash", txHash)
}

func (w *Worker) releaseLease(logger *zap.SugaredLogger, walletBalanceID int64) {
	if err := w.store.Balances.ReleaseConsolidationLease(walletBalanceID); err != nil {
		logger.Warnw("consolidation: release lease failed", "wallet_balance_id", walletBalanceID, "error", err)
	}
}

// execute resolves the swept wallet (source) and the hot wallet
// (destination, pinned at enqueue) and dispatches to the injected
// Executor (§4.9/§4.10).
func (w *Worker) execute(ctx context.Context, job model.ConsolidationJob) (string, error) {
	from, err := w.store.Wallets.ResolveWallet(job.WalletID)
	if err != nil {
		return "", err
	}
	if from == nil {
		return "", errs.New(errs.KindInvalidData, "consolidation source wallet not found", nil)
	}

	to, err := w.store.Wallets.ResolveWallet(job.DestinationWalletID)
	if err != nil {
		return "", err
	}
	if to == nil {
		return "", errs.New(errs.KindFundingWalletNotFound, "consolidation destination wallet not found", nil)
	}

	balanceRow, err := w.store.Balances.ByID(job.WalletBalanceID)
	if err != nil {
		return "", err
	}
	if balanceRow == nil {
		return "", errs.New(errs.KindInvalidData, "consolidation wallet_balance row not found", nil)
	}

	asset, err := w.store.Assets.ByID(balanceRow.AssetOnChainID)
	if err != nil {
		return "", err
	}
	if asset == nil {
		return "", errs.New(errs.KindConfiguration, "consolidation asset not found", nil)
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
		AmountRaw:           job.AmountRaw,
	})
}

func (w *Worker) onError(logger *zap.SugaredLogger, job model.ConsolidationJob, execErr error) {
	outcome, classified := exec.Dispatch(execErr)
	if outcome == exec.OutcomeFail {
		if err := w.store.Consolidation.Fail(job.ID, classified.Tag()); err != nil {
			logger.Warnw("consolidation: fail transition failed", "job_id", job.ID, "error", err)
		}
		logger.Warnw("consolidation failed", "job_id", job.ID, "kind", classified.Kind)
		return
	}

	retryCount := job.RetryCount + 1
	if retryCount > exec.MaxRetries {
		if err := w.store.Consolidation.Fail(job.ID, classified.Tag()); err != nil {
			logger.Warnw("consolidation: fail transition failed", "job_id", job.ID, "error", err)
		}
		logger.Warnw("consolidation exhausted retries", "job_id", job.ID)
		return
	}
	if err := w.store.Consolidation.Retry(job.ID, retryCount, exec.Backoff(job.RetryCount), classified.Tag()); err != nil {
		logger.Warnw("consolidation: retry transition failed", "job_id", job.ID, "error", err)
	}
}

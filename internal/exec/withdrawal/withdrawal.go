// Package withdrawal implements the withdrawal execution worker
// (§4.8/§4.9/§4.10): promoting approved withdrawal_requests into
// withdrawal_queue jobs, then candidate selection, job-to-Job
// translation, and the retry/fail dispatch table — dispatched to a
// chain-family Executor injected at construction. Unlike gas-topup and
// consolidation, withdrawal holds no wallet-balance-row lease: nonce
// safety on EVM comes from the funder advisory lock the Executor itself
// takes, and TRON has no equivalent serialization need.
package withdrawal

import (
	"context"

	"go.uber.org/zap"

	"github.com/coinsensei/chain-workers/internal/errs"
	"github.com/coinsensei/chain-workers/internal/exec"
	"github.com/coinsensei/chain-workers/internal/idgen"
	"github.com/coinsensei/chain-workers/internal/log"
	"github.com/coinsensei/chain-workers/internal/store"
	"github.com/coinsensei/chain-workers/internal/store/model"
)

// enqueueBatch bounds how many approved requests are promoted to queue
// jobs per cycle.
const enqueueBatch = 25

// defaultMaxRetries seeds withdrawal_queue.max_retries for a freshly
// enqueued job; §4.8's MAX_RETRIES=8 is the shared default, re-used here
// since the spec gives withdrawals no distinct number.
const defaultMaxRetries = exec.MaxRetries

// Worker drives one chain's withdrawal enqueue-then-execute cycle.
type Worker struct {
	chainRow model.Chain
	store    *store.Store
	executor exec.Executor
	workerID string
}

// New builds a Worker for chainRow.
func New(chainRow model.Chain, st *store.Store, executor exec.Executor) *Worker {
	return &Worker{
		chainRow: chainRow,
		store:    st,
		executor: executor,
		workerID: idgen.WorkerID("withdrawal", chainRow.Name),
	}
}

func (w *Worker) Cycle(ctx context.Context) error {
	logger := log.NewModuleLogger(log.ExecWithdraw)

	if err := w.enqueueApproved(logger); err != nil {
		return err
	}

	jobs, err := w.store.Withdrawals.Candidates(w.chainRow.ID)
	if err != nil {
		return err
	}
	for _, job := range jobs {
		w.processJob(ctx, logger, job)
	}
	return nil
}

// enqueueApproved promotes approved withdrawal_requests into pending
// withdrawal_queue jobs, pinning the funding operation wallet at enqueue
// time (§3's WithdrawalQueue, §4.7's destination-selection style reused
// for the treasury role).
func (w *Worker) enqueueApproved(logger *zap.SugaredLogger) error {
	requests, err := w.store.Withdrawals.ApprovedRequests(w.chainRow.ID, enqueueBatch)
	if err != nil {
		return err
	}

	for _, req := range requests {
		active, err := w.store.Withdrawals.HasActiveJob(req.ID)
		if err != nil {
			logger.Warnw("withdrawal: active-job check failed", "request_id", req.ID, "error", err)
			continue
		}
		if active {
			continue
		}

		wallets, err := w.store.Wallets.ActiveOperationWallets(w.chainRow.ID, model.RoleTreasury)
		if err != nil {
			logger.Warnw("withdrawal: select treasury wallet failed", "request_id", req.ID, "error", err)
			continue
		}
		if len(wallets) == 0 {
			logger.Warnw("withdrawal: no active treasury wallet for chain", "request_id", req.ID, "chain_id", w.chainRow.ID)
			continue
		}
		funder := wallets[0]

		queued, err := w.store.Withdrawals.MarkRequestQueued(req.ID)
		if err != nil {
			logger.Warnw("withdrawal: mark queued failed", "request_id", req.ID, "error", err)
			continue
		}
		if !queued {
			continue
		}

		job := &model.WithdrawalJob{
			WithdrawalRequestID:      req.ID,
			ChainID:                  w.chainRow.ID,
			OperationWalletAddressID: funder.ID,
			Status:                   model.QueuePending,
			Priority:                 model.PriorityNormal,
			RetryCount:               0,
			MaxRetries:               defaultMaxRetries,
			ScheduledAt:              store.Now(),
		}
		inserted, err := w.store.Withdrawals.Enqueue(job)
		if err != nil {
			logger.Warnw("withdrawal: enqueue failed", "request_id", req.ID, "error", err)
			continue
		}
		if !inserted {
			continue
		}
		if err := w.store.Wallets.BumpLastUsed(funder.ID); err != nil {
			logger.Warnw("withdrawal: bump last_used_at failed", "wallet_id", funder.ID, "error", err)
		}
	}
	return nil
}

func (w *Worker) processJob(ctx context.Context, logger *zap.SugaredLogger, job model.WithdrawalJob) {
	// §4.8 idempotency guard: withdrawal holds no wallet-balance lease, so
	// without this check a job sitting in confirming (always a non-nil
	// tx_hash) would be re-leased and re-broadcast on every single cycle.
	// Leave it to the confirmation worker once it has a tx_hash and isn't
	// failed.
	if job.TxHash != nil && job.Status != model.QueueFailed {
		return
	}

	if err := w.store.Withdrawals.MarkProcessing(job.ID); err != nil {
		logger.Warnw("withdrawal: mark processing failed", "job_id", job.ID, "error", err)
		return
	}

	txHash, err := w.execute(ctx, job)
	if err != nil {
		w.onError(logger, job, err)
		return
	}

	if err := w.store.Withdrawals.MarkBroadcast(job.ID, txHash); err != nil {
		logger.Warnw("withdrawal: mark broadcast failed", "job_id", job.ID, "tx_hash", txHash, "error", err)
		return
	}
	logger.Infow("withdrawal broadcast", "job_id", job.ID, "tx_hash", txHash)
}

func (w *Worker) execute(ctx context.Context, job model.WithdrawalJob) (string, error) {
	req, err := w.store.Withdrawals.RequestByID(job.WithdrawalRequestID)
	if err != nil {
		return "", err
	}
	if req == nil {
		return "", errs.New(errs.KindInvalidData, "withdrawal request not found", nil)
	}

	from, err := w.store.Wallets.ResolveWallet(job.OperationWalletAddressID)
	if err != nil {
		return "", err
	}
	if from == nil {
		return "", errs.New(errs.KindFundingWalletNotFound, "withdrawal funding wallet not found", nil)
	}

	asset, err := w.store.Assets.ByID(req.AssetOnChainID)
	if err != nil {
		return "", err
	}
	if asset == nil {
		return "", errs.New(errs.KindConfiguration, "withdrawal asset not found", nil)
	}

	return w.executor.Execute(ctx, exec.Job{
		ChainID:             w.chainRow.ID,
		FromWalletGroupID:   from.WalletGroupID,
		FromDerivationIndex: from.DerivationIndex,
		FromAddress:         from.Address,
		ToAddress:           req.ToAddress,
		AssetOnChainID:      asset.ID,
		ContractAddress:     asset.ContractAddress,
		IsNative:            asset.IsNative,
		Decimals:            asset.Decimals,
		AmountRaw:           req.AmountRaw,
	})
}

// onError honors withdrawal_queue's own max_retries column (§4.8's
// withdrawal-specific retry cap) instead of the shared exec.MaxRetries.
func (w *Worker) onError(logger *zap.SugaredLogger, job model.WithdrawalJob, execErr error) {
	outcome, classified := exec.Dispatch(execErr)
	if outcome == exec.OutcomeFail {
		if err := w.store.Withdrawals.Fail(job.ID, classified.Tag()); err != nil {
			logger.Warnw("withdrawal: fail transition failed", "job_id", job.ID, "error", err)
		}
		logger.Warnw("withdrawal failed", "job_id", job.ID, "kind", classified.Kind)
		return
	}

	retryCount := job.RetryCount + 1
	if retryCount > job.MaxRetries {
		if err := w.store.Withdrawals.Fail(job.ID, classified.Tag()); err != nil {
			logger.Warnw("withdrawal: fail transition failed", "job_id", job.ID, "error", err)
		}
		logger.Warnw("withdrawal exhausted retries", "job_id", job.ID)
		return
	}
	if err := w.store.Withdrawals.Retry(job.ID, retryCount, exec.Backoff(job.RetryCount), classified.Tag()); err != nil {
		logger.Warnw("withdrawal: retry transition failed", "job_id", job.ID, "error", err)
	}
}

package store

import (
	"sort"
	"time"

	"github.com/jinzhu/gorm"

	"github.com/coinsensei/chain-workers/internal/store/model"
)

// ConsolidationRepo implements consolidation_queue access: idempotent
// enqueue (P5), candidate selection + application-side priority sort
// (§4.8), and the retry/terminal transitions shared by every execution
// worker.
type ConsolidationRepo struct{ db *gorm.DB }

var activeQueueStatuses = []model.QueueStatus{model.QueuePending, model.QueueProcessing, model.QueueConfirming}

// HasActiveJob reports whether walletBalanceID already has a job in
// {pending, processing, confirming} — the idempotent-enqueue check for
// P5.
func (r *ConsolidationRepo) HasActiveJob(walletBalanceID int64) (bool, error) {
	var count int
	err := r.db.Model(&model.ConsolidationJob{}).
		Where("wallet_balance_id = ? AND status IN (?)", walletBalanceID, activeQueueStatuses).
		Count(&count).Error
	return count > 0, err
}

// Enqueue inserts a new consolidation job. A unique-constraint violation
// (lost the enqueue race to another planner instance) is a silent skip,
// not an error (§4.7, P5).
func (r *ConsolidationRepo) Enqueue(job *model.ConsolidationJob) (inserted bool, err error) {
	err = r.db.Create(job).Error
	if err == nil {
		return true, nil
	}
	if isUniqueViolation(err) {
		return false, nil
	}
	return false, err
}

// Candidates fetches up to 25 pending/confirming jobs for chainID with
// scheduled_at due, then sorts them in application code by priority then
// scheduled_at ascending, per §4.8's literal selection algorithm.
func (r *ConsolidationRepo) Candidates(chainID int64) ([]model.ConsolidationJob, error) {
	var rows []model.ConsolidationJob
	now := Now()
	err := r.db.
		Where("chain_id = ? AND status IN (?) AND scheduled_at <= ?", chainID,
			[]model.QueueStatus{model.QueuePending, model.QueueConfirming}, now).
		Limit(25).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rows, func(i, j int) bool {
		pi, pj := model.PriorityRank(rows[i].Priority), model.PriorityRank(rows[j].Priority)
		if pi != pj {
			return pi < pj
		}
		return rows[i].ScheduledAt.Before(rows[j].ScheduledAt)
	})
	return rows, nil
}

// ByID returns at most one consolidation job.
func (r *ConsolidationRepo) ByID(id int64) (*model.ConsolidationJob, error) {
	var j model.ConsolidationJob
	err := r.db.Where("id = ?", id).First(&j).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// MarkProcessing flips a job to processing just before the execution
// worker starts build/sign/broadcast — the tx_hash column remains the
// actual idempotency source of truth (§4.8), this is purely observability
// (so an operator inspecting the queue mid-cycle sees it in flight).
func (r *ConsolidationRepo) MarkProcessing(id int64) error {
	return r.db.Model(&model.ConsolidationJob{}).Where("id = ?", id).
		Update("status", model.QueueProcessing).Error
}

// MarkBroadcast persists tx_hash and transitions to confirming in a
// single update, per §4.10's "on successful broadcast" step (P2: this is
// the one and only place a tx_hash is ever written for a fresh job).
func (r *ConsolidationRepo) MarkBroadcast(id int64, txHash string) error {
	return r.db.Model(&model.ConsolidationJob{}).Where("id = ? AND tx_hash IS NULL", id).
		Updates(map[string]interface{}{
			"status":  model.QueueConfirming,
			"tx_hash": txHash,
		}).Error
}

// Retry writes back the retry/backoff state from §4.8: status returns to
// pending, scheduled_at = now + backoff, error_message tagged
// `[kind] text`, retry_count bumped.
func (r *ConsolidationRepo) Retry(id int64, retryCount int, backoff time.Duration, taggedError string) error {
	return r.db.Model(&model.ConsolidationJob{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        model.QueuePending,
			"retry_count":   retryCount,
			"scheduled_at":  Now().Add(backoff),
			"error_message": taggedError,
		}).Error
}

// Fail transitions a job straight to failed (non-retryable error kinds,
// §4.8) with processed_at stamped.
func (r *ConsolidationRepo) Fail(id int64, taggedError string) error {
	return r.db.Model(&model.ConsolidationJob{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        model.QueueFailed,
			"error_message": taggedError,
			"processed_at":  Now(),
		}).Error
}

// InConfirming returns every confirming-status job for chainID with a
// non-null tx_hash — input to the consolidation confirmation worker
// (§4.11).
func (r *ConsolidationRepo) InConfirming(chainID int64) ([]model.ConsolidationJob, error) {
	var rows []model.ConsolidationJob
	err := r.db.
		Where("chain_id = ? AND status = ? AND tx_hash IS NOT NULL", chainID, model.QueueConfirming).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// DelayRecheck pushes scheduled_at forward without changing status — the
// "no receipt yet" branch of §4.11, avoiding a hot loop.
func (r *ConsolidationRepo) DelayRecheck(id int64, delay time.Duration) error {
	return r.db.Model(&model.ConsolidationJob{}).Where("id = ?", id).
		Update("scheduled_at", Now().Add(delay)).Error
}

// ConfirmSuccess performs the single-statement terminal success update
// from §4.11.
func (r *ConsolidationRepo) ConfirmSuccess(id int64, gasUsed, gasPrice string) error {
	return r.db.Model(&model.ConsolidationJob{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       model.QueueConfirmed,
			"processed_at": Now(),
			"gas_used":     gasUsed,
			"gas_price":    gasPrice,
		}).Error
}

// ConfirmFailure marks a job failed after a reverted/failed receipt
// (§4.11): for consolidation, needs_consolidation is deliberately left
// untouched — "the planner decides retry".
func (r *ConsolidationRepo) ConfirmFailure(id int64, errMessage string) error {
	return r.db.Model(&model.ConsolidationJob{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        model.QueueFailed,
			"error_message": errMessage,
			"processed_at":  Now(),
		}).Error
}

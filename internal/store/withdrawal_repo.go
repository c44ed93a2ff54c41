package store

import (
	"sort"
	"time"

	"github.com/jinzhu/gorm"

	"github.com/coinsensei/chain-workers/internal/store/model"
)

// WithdrawalRepo covers both the intent layer (withdrawal_requests) and
// the execution layer (withdrawal_queue), propagating terminal state
// from the latter back into the former (§4.11, §4.9).
type WithdrawalRepo struct{ db *gorm.DB }

// RequestByID returns at most one withdrawal_requests row.
func (r *WithdrawalRepo) RequestByID(id int64) (*model.WithdrawalRequest, error) {
	var req model.WithdrawalRequest
	err := r.db.Where("id = ?", id).First(&req).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// ApprovedRequests returns withdrawal_requests rows sitting in approved
// status — the execution worker's source of new intents (§4.9).
func (r *WithdrawalRepo) ApprovedRequests(chainID int64, limit int) ([]model.WithdrawalRequest, error) {
	var rows []model.WithdrawalRequest
	err := r.db.
		Where("chain_id = ? AND status = ?", chainID, model.WithdrawalApproved).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkRequestQueued performs the CAS approved -> queued transition that
// prevents a second execution worker from enqueuing a duplicate job for
// the same request (P5).
func (r *WithdrawalRepo) MarkRequestQueued(id int64) (bool, error) {
	tx := r.db.Model(&model.WithdrawalRequest{}).
		Where("id = ? AND status = ?", id, model.WithdrawalApproved).
		Update("status", model.WithdrawalQueued)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// HasActiveJob reports whether withdrawalRequestID already has a queue
// job in {pending, processing, confirming} — the idempotent-enqueue
// check (P5).
func (r *WithdrawalRepo) HasActiveJob(withdrawalRequestID int64) (bool, error) {
	var count int
	err := r.db.Model(&model.WithdrawalJob{}).
		Where("withdrawal_request_id = ? AND status IN (?)", withdrawalRequestID, activeQueueStatuses).
		Count(&count).Error
	return count > 0, err
}

// Enqueue inserts a withdrawal_queue job. A unique-constraint violation
// (lost the enqueue race) is a silent skip.
func (r *WithdrawalRepo) Enqueue(job *model.WithdrawalJob) (inserted bool, err error) {
	err = r.db.Create(job).Error
	if err == nil {
		return true, nil
	}
	if isUniqueViolation(err) {
		return false, nil
	}
	return false, err
}

// Candidates mirrors ConsolidationRepo.Candidates: due pending/confirming
// jobs for chainID, sorted in application code by priority then
// scheduled_at.
func (r *WithdrawalRepo) Candidates(chainID int64) ([]model.WithdrawalJob, error) {
	var rows []model.WithdrawalJob
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

func (r *WithdrawalRepo) ByID(id int64) (*model.WithdrawalJob, error) {
	var j model.WithdrawalJob
	err := r.db.Where("id = ?", id).First(&j).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (r *WithdrawalRepo) MarkProcessing(id int64) error {
	return r.db.Model(&model.WithdrawalJob{}).Where("id = ?", id).
		Update("status", model.QueueProcessing).Error
}

func (r *WithdrawalRepo) MarkBroadcast(id int64, txHash string) error {
	return r.db.Model(&model.WithdrawalJob{}).Where("id = ? AND tx_hash IS NULL", id).
		Updates(map[string]interface{}{
			"status":  model.QueueConfirming,
			"tx_hash": txHash,
		}).Error
}

// Retry honors max_retries: the caller is expected to check
// retryCount <= job.MaxRetries before calling Retry and to call Fail
// instead once exhausted (§4.9's withdrawal-specific retry cap).
func (r *WithdrawalRepo) Retry(id int64, retryCount int, backoff time.Duration, taggedError string) error {
	return r.db.Model(&model.WithdrawalJob{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        model.QueuePending,
			"retry_count":   retryCount,
			"scheduled_at":  Now().Add(backoff),
			"error_message": taggedError,
		}).Error
}

func (r *WithdrawalRepo) Fail(id int64, taggedError string) error {
	return r.db.Model(&model.WithdrawalJob{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        model.QueueFailed,
			"error_message": taggedError,
			"processed_at":  Now(),
		}).Error
}

func (r *WithdrawalRepo) InConfirming(chainID int64) ([]model.WithdrawalJob, error) {
	var rows []model.WithdrawalJob
	err := r.db.
		Where("chain_id = ? AND status = ? AND tx_hash IS NOT NULL", chainID, model.QueueConfirming).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *WithdrawalRepo) DelayRecheck(id int64, delay time.Duration) error {
	return r.db.Model(&model.WithdrawalJob{}).Where("id = ?", id).
		Update("scheduled_at", Now().Add(delay)).Error
}

// ConfirmSuccess marks the queue job confirmed and, in the same call,
// propagates the terminal state up into withdrawal_requests (status
// completed, final_tx_hash set) — the two-table finalization in §4.11.
func (r *WithdrawalRepo) ConfirmSuccess(id, withdrawalRequestID int64, txHash, gasUsed, gasPrice string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.WithdrawalJob{}).Where("id = ?", id).
			Updates(map[string]interface{}{
				"status":       model.QueueConfirmed,
				"processed_at": Now(),
				"gas_used":     gasUsed,
				"gas_price":    gasPrice,
			}).Error; err != nil {
			return err
		}
		return tx.Model(&model.WithdrawalRequest{}).Where("id = ?", withdrawalRequestID).
			Updates(map[string]interface{}{
				"status":        model.WithdrawalCompleted,
				"final_tx_hash": txHash,
			}).Error
	})
}

// ConfirmFailure marks the queue job failed and propagates the failure
// up into withdrawal_requests.
func (r *WithdrawalRepo) ConfirmFailure(id, withdrawalRequestID int64, errMessage string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.WithdrawalJob{}).Where("id = ?", id).
			Updates(map[string]interface{}{
				"status":        model.QueueFailed,
				"error_message": errMessage,
				"processed_at":  Now(),
			}).Error; err != nil {
			return err
		}
		return tx.Model(&model.WithdrawalRequest{}).Where("id = ?", withdrawalRequestID).
			Update("status", model.WithdrawalFailedReq).Error
	})
}

package store

import (
	"sort"
	"time"

	"github.com/jinzhu/gorm"

	"github.com/coinsensei/chain-workers/internal/store/model"
)

// GasTopupRepo implements gas_topup_queue access. Unique active job per
// (chain, gas_asset, wallet), P5.
type GasTopupRepo struct{ db *gorm.DB }

// HasActiveJob reports whether (chainID, gasAssetID, walletID) already
// has a job in {pending, processing, confirming}.
func (r *GasTopupRepo) HasActiveJob(chainID, gasAssetID, walletID int64) (bool, error) {
	var count int
	err := r.db.Model(&model.GasTopupJob{}).
		Where("chain_id = ? AND gas_asset_id = ? AND wallet_id = ? AND status IN (?)",
			chainID, gasAssetID, walletID, activeQueueStatuses).
		Count(&count).Error
	return count > 0, err
}

// Enqueue inserts a gas-topup job; a unique-violation is a silent skip.
func (r *GasTopupRepo) Enqueue(job *model.GasTopupJob) (inserted bool, err error) {
	err = r.db.Create(job).Error
	if err == nil {
		return true, nil
	}
	if isUniqueViolation(err) {
		return false, nil
	}
	return false, err
}

// Candidates mirrors ConsolidationRepo.Candidates for gas-topup jobs.
func (r *GasTopupRepo) Candidates(chainID int64) ([]model.GasTopupJob, error) {
	var rows []model.GasTopupJob
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

func (r *GasTopupRepo) ByID(id int64) (*model.GasTopupJob, error) {
	var j model.GasTopupJob
	err := r.db.Where("id = ?", id).First(&j).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (r *GasTopupRepo) MarkProcessing(id int64) error {
	return r.db.Model(&model.GasTopupJob{}).Where("id = ?", id).
		Update("status", model.QueueProcessing).Error
}

func (r *GasTopupRepo) MarkBroadcast(id int64, txHash string) error {
	return r.db.Model(&model.GasTopupJob{}).Where("id = ? AND tx_hash IS NULL", id).
		Updates(map[string]interface{}{
			"status":  model.QueueConfirming,
			"tx_hash": txHash,
		}).Error
}

func (r *GasTopupRepo) Retry(id int64, retryCount int, backoff time.Duration, taggedError string) error {
	return r.db.Model(&model.GasTopupJob{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        model.QueuePending,
			"retry_count":   retryCount,
			"scheduled_at":  Now().Add(backoff),
			"error_message": taggedError,
		}).Error
}

func (r *GasTopupRepo) Fail(id int64, taggedError string) error {
	return r.db.Model(&model.GasTopupJob{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        model.QueueFailed,
			"error_message": taggedError,
			"processed_at":  Now(),
		}).Error
}

func (r *GasTopupRepo) InConfirming(chainID int64) ([]model.GasTopupJob, error) {
	var rows []model.GasTopupJob
	err := r.db.
		Where("chain_id = ? AND status = ? AND tx_hash IS NOT NULL", chainID, model.QueueConfirming).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *GasTopupRepo) DelayRecheck(id int64, delay time.Duration) error {
	return r.db.Model(&model.GasTopupJob{}).Where("id = ?", id).
		Update("scheduled_at", Now().Add(delay)).Error
}

func (r *GasTopupRepo) ConfirmSuccess(id int64, gasUsed, gasPrice string) error {
	return r.db.Model(&model.GasTopupJob{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       model.QueueConfirmed,
			"processed_at": Now(),
			"gas_used":     gasUsed,
			"gas_price":    gasPrice,
		}).Error
}

func (r *GasTopupRepo) ConfirmFailure(id int64, errMessage string) error {
	return r.db.Model(&model.GasTopupJob{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        model.QueueFailed,
			"error_message": errMessage,
			"processed_at":  Now(),
		}).Error
}

package store

import (
	"time"

	"github.com/jinzhu/gorm"

	"github.com/coinsensei/chain-workers/internal/store/model"
)

// BalanceRepo implements the three disjoint lease families and the
// balance/needs_* mutation disciplines from §3, §5, §9 ("Locks").
type BalanceRepo struct{ db *gorm.DB }

const generalLeaseDuration = 2 * time.Minute

// DueForSync selects up to limit idle, unleased rows oldest-last_checked
// first — no filter on wallet type (§4.6: both user and operation
// wallets must be synced).
func (r *BalanceRepo) DueForSync(limit int) ([]model.WalletBalance, error) {
	var rows []model.WalletBalance
	now := Now()
	err := r.db.
		Where("processing_status = ?", model.StatusIdle).
		Where("locked_until IS NULL OR locked_until < ?", now).
		Order("last_checked ASC NULLS FIRST").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// AcquireGeneralLease performs the CAS update that claims the general
// lease for workerID over ids, transitioning processing_status to
// 'processing'. Returns the ids actually acquired (another worker may
// have won some of them first, §5/P3).
func (r *BalanceRepo) AcquireGeneralLease(ids []int64, workerID string) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	now := Now()
	until := now.Add(generalLeaseDuration)

	tx := r.db.Model(&model.WalletBalance{}).
		Where("id IN (?) AND processing_status = ?", ids, model.StatusIdle).
		Updates(map[string]interface{}{
			"processing_status": model.StatusProcessing,
			"locked_until":       until,
			"locked_by":          workerID,
		})
	if tx.Error != nil {
		return nil, tx.Error
	}

	var won []model.WalletBalance
	if err := r.db.Where("id IN (?) AND locked_by = ?", ids, workerID).Find(&won).Error; err != nil {
		return nil, err
	}
	acquired := make([]int64, 0, len(won))
	for _, w := range won {
		acquired = append(acquired, w.ID)
	}
	return acquired, nil
}

// ReleaseGeneralLease clears processing_status back to idle and nulls
// the lease fields. Always safe to call from a cleanup path even if the
// lease was never actually held.
func (r *BalanceRepo) ReleaseGeneralLease(id int64) error {
	return r.db.Model(&model.WalletBalance{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"processing_status": model.StatusIdle,
			"locked_until":       nil,
			"locked_by":          nil,
		}).Error
}

// ByID returns at most one wallet_balances row.
func (r *BalanceRepo) ByID(id int64) (*model.WalletBalance, error) {
	var row model.WalletBalance
	err := r.db.Where("id = ?", id).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// NativeRowForWallet returns the wallet's balance row on the native
// asset-on-chain nativeAssetOnChainID (§4.7 step 1: "locate the native-asset
// wallet-balance row for the same wallet").
func (r *BalanceRepo) NativeRowForWallet(walletID, nativeAssetOnChainID int64) (*model.WalletBalance, error) {
	var row model.WalletBalance
	err := r.db.Where("wallet_id = ? AND asset_on_chain_id = ?", walletID, nativeAssetOnChainID).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// WriteSyncResult persists a balance-sync success: raw/human balance,
// bumped sync_count, last_checked, cleared error (§4.6). Never touches
// needs_*, other leases, or priorities.
func (r *BalanceRepo) WriteSyncResult(id int64, rawAmount, humanAmount string) error {
	now := Now()
	return r.db.Model(&model.WalletBalance{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"on_chain_balance_raw":   rawAmount,
			"on_chain_balance_human": humanAmount,
			"sync_count":             gorm.Expr("sync_count + 1"),
			"last_checked":           now,
			"last_error":             nil,
		}).Error
}

// RecordSyncError bumps error_count and records last_error, without
// releasing the lease (the caller's cleanup path does that separately so
// the same helper works for planner errors too).
func (r *BalanceRepo) RecordSyncError(id int64, message string) error {
	return r.db.Model(&model.WalletBalance{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"error_count": gorm.Expr("error_count + 1"),
			"last_error":  message,
		}).Error
}

// SelectForPlanner selects idle, unleased, non-zero-balance rows whose
// wallet_id is in userWalletIDs (§4.7).
func (r *BalanceRepo) SelectForPlanner(userWalletIDs []int64, limit int) ([]model.WalletBalance, error) {
	if len(userWalletIDs) == 0 {
		return nil, nil
	}
	var rows []model.WalletBalance
	now := Now()
	err := r.db.
		Where("wallet_id IN (?)", userWalletIDs).
		Where("on_chain_balance_raw != '0'").
		Where("processing_status = ?", model.StatusIdle).
		Where("locked_until IS NULL OR locked_until < ?", now).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FinalizePlannerRow writes the planner's terminal per-row state: the
// consolidation/gas flags+priorities, releases the general lease, clears
// error fields (§4.7 "Finalization").
func (r *BalanceRepo) FinalizePlannerRow(id int64, needsConsolidation bool, consolPriority model.Priority, needsGas bool, gasPriority model.Priority) error {
	return r.db.Model(&model.WalletBalance{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"needs_consolidation":    needsConsolidation,
			"consolidation_priority": consolPriority,
			"needs_gas":              needsGas,
			"gas_priority":           gasPriority,
			"processing_status":      model.StatusIdle,
			"locked_until":           nil,
			"locked_by":              nil,
			"last_error":             nil,
			"last_processed_at":      Now(),
		}).Error
}

// FailPlannerRow records a planner error against the row and releases
// the general lease (§7: "errors... captured, classified, recorded
// against the owning row").
func (r *BalanceRepo) FailPlannerRow(id int64, message string) error {
	return r.db.Model(&model.WalletBalance{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"error_count":        gorm.Expr("error_count + 1"),
			"last_error":         message,
			"processing_status":  model.StatusIdle,
			"locked_until":       nil,
			"locked_by":          nil,
		}).Error
}

// SetNeedsGas sets needs_gas on a row directly — used by the planner on
// the native row; the current row's needs_gas is written by
// FinalizePlannerRow.
func (r *BalanceRepo) SetNeedsGas(id int64, needsGas bool) error {
	return r.db.Model(&model.WalletBalance{}).Where("id = ?", id).
		Update("needs_gas", needsGas).Error
}

// ReadNeedsGas re-reads needs_gas fresh from the datastore — used for the
// race-safety re-check before enqueueing consolidation (§4.7 step 3).
func (r *BalanceRepo) ReadNeedsGas(id int64) (bool, error) {
	var row model.WalletBalance
	if err := r.db.Select("needs_gas").Where("id = ?", id).First(&row).Error; err != nil {
		return false, err
	}
	return row.NeedsGas, nil
}

// --- operation-specific leases (§4.8) ---

// AcquireConsolidationLease and AcquireGasLease claim the
// consolidation/gas lease family on a wallet-balance row for workerID,
// provided the owning field is NULL or expired (§3, §5). They are
// independent of the general lease and of each other (§9 "Locks").
func (r *BalanceRepo) AcquireConsolidationLease(id int64, workerID string, ttl time.Duration) (bool, error) {
	now := Now()
	tx := r.db.Model(&model.WalletBalance{}).
		Where("id = ? AND (consolidation_locked_until IS NULL OR consolidation_locked_until < ?)", id, now).
		Updates(map[string]interface{}{
			"consolidation_locked_until": now.Add(ttl),
			"consolidation_locked_by":    workerID,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *BalanceRepo) ReleaseConsolidationLease(id int64) error {
	return r.db.Model(&model.WalletBalance{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"consolidation_locked_until": nil,
			"consolidation_locked_by":    nil,
		}).Error
}

func (r *BalanceRepo) AcquireGasLease(id int64, workerID string, ttl time.Duration) (bool, error) {
	now := Now()
	tx := r.db.Model(&model.WalletBalance{}).
		Where("id = ? AND (gas_locked_until IS NULL OR gas_locked_until < ?)", id, now).
		Updates(map[string]interface{}{
			"gas_locked_until": now.Add(ttl),
			"gas_locked_by":    workerID,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *BalanceRepo) ReleaseGasLease(id int64) error {
	return r.db.Model(&model.WalletBalance{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"gas_locked_until": nil,
			"gas_locked_by":    nil,
		}).Error
}

// MarkConsolidated clears needs_consolidation and stamps
// last_consolidation_at, per §4.11's confirmation-worker terminal step
// for a successful consolidation.
func (r *BalanceRepo) MarkConsolidated(id int64) error {
	return r.db.Model(&model.WalletBalance{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"needs_consolidation":   false,
			"last_consolidation_at": Now(),
		}).Error
}

package store

import (
	"github.com/jinzhu/gorm"

	"github.com/coinsensei/chain-workers/internal/store/model"
)

// RuleRepo reads the priority-ordered consolidation/gas-topup rule tables
// and appends to their audit-log tables (SPEC_FULL.md §3 [NEW], §4.7).
type RuleRepo struct{ db *gorm.DB }

// ActiveConsolidationRules returns active rules for an asset-on-chain,
// ordered priority ascending (lower number evaluates first, §4.7).
func (r *RuleRepo) ActiveConsolidationRules(assetOnChainID int64) ([]model.ConsolidationRule, error) {
	var rows []model.ConsolidationRule
	err := r.db.
		Where("asset_on_chain_id = ? AND is_active = ?", assetOnChainID, true).
		Order("priority ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ActiveGasTopupRules returns active rules for a gas asset, ordered
// priority ascending.
func (r *RuleRepo) ActiveGasTopupRules(gasAssetID int64) ([]model.GasTopupRule, error) {
	var rows []model.GasTopupRule
	err := r.db.
		Where("gas_asset_id = ? AND is_active = ?", gasAssetID, true).
		Order("priority ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// LogConsolidationEvaluation appends one audit row per rule considered,
// matched or not (§4.7: "every evaluation is logged, not just matches").
func (r *RuleRepo) LogConsolidationEvaluation(entry *model.ConsolidationRuleLog) error {
	entry.EvaluatedAt = Now()
	return r.db.Create(entry).Error
}

// LogGasTopupEvaluation is the gas-topup-rule counterpart.
func (r *RuleRepo) LogGasTopupEvaluation(entry *model.GasTopupRuleLog) error {
	entry.EvaluatedAt = Now()
	return r.db.Create(entry).Error
}

package store

import (
	"github.com/jinzhu/gorm"

	"github.com/coinsensei/chain-workers/internal/store/model"
)

// AssetRepo reads asset-on-chain deployments.
type AssetRepo struct{ db *gorm.DB }

// ActiveOnChain returns every active AssetOnChain row for a chain.
func (r *AssetRepo) ActiveOnChain(chainID int64) ([]model.AssetOnChain, error) {
	var rows []model.AssetOnChain
	if err := r.db.Where("chain_id = ? AND is_active = ?", chainID, true).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// NativeAssetOnChain returns the single active native-asset row for a
// chain. Invariant (§3): exactly one native row per active chain.
func (r *AssetRepo) NativeAssetOnChain(chainID int64) (*model.AssetOnChain, error) {
	var row model.AssetOnChain
	err := r.db.Where("chain_id = ? AND is_native = ? AND is_active = ?", chainID, true, true).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// ByID returns at most one AssetOnChain by id.
func (r *AssetRepo) ByID(id int64) (*model.AssetOnChain, error) {
	var row model.AssetOnChain
	err := r.db.Where("id = ?", id).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

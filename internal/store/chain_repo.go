package store

import (
	"github.com/jinzhu/gorm"

	"github.com/coinsensei/chain-workers/internal/store/model"
)

// ChainRepo reads the immutable-during-a-run chain configuration,
// reloaded at boot (§3).
type ChainRepo struct{ db *gorm.DB }

// ActiveChains returns every active chain row.
func (r *ChainRepo) ActiveChains() ([]model.Chain, error) {
	var chains []model.Chain
	if err := r.db.Where("is_active = ?", true).Find(&chains).Error; err != nil {
		return nil, err
	}
	return chains, nil
}

// ByName returns at most one chain by name ("tron", "bsc"); absence is
// not an error (maybeSingle semantics, §3).
func (r *ChainRepo) ByName(name string) (*model.Chain, error) {
	var c model.Chain
	err := r.db.Where("name = ?", name).First(&c).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ChainState returns the worker_chain_states row for chainID, or nil if
// it has never been initialized.
func (r *ChainRepo) ChainState(chainID int64) (*model.WorkerChainState, error) {
	var s model.WorkerChainState
	err := r.db.Where("chain_id = ?", chainID).First(&s).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// InitChainState creates the worker_chain_states row the first time a
// detector runs for chainID, per §4.4 ("initialize to current - threshold
// on first run").
func (r *ChainRepo) InitChainState(chainID int64, lastProcessedBlock uint64) error {
	return r.db.Create(&model.WorkerChainState{
		ChainID:            chainID,
		LastProcessedBlock: lastProcessedBlock,
	}).Error
}

// AdvanceChainState sets last_processed_block to newBlock, but only if it
// does not move the cursor backward (P4: monotonicity is enforced here,
// not just assumed by callers).
func (r *ChainRepo) AdvanceChainState(chainID int64, newBlock uint64) error {
	return r.db.Model(&model.WorkerChainState{}).
		Where("chain_id = ? AND last_processed_block <= ?", chainID, newBlock).
		Update("last_processed_block", newBlock).Error
}

package store

import (
	"github.com/jinzhu/gorm"

	"github.com/coinsensei/chain-workers/internal/store/model"
)

// WalletKind tags which of the two wallet tables a WalletRef resolved
// from (§9's "dual-table wallet_id" design note).
type WalletKind string

const (
	WalletKindUser      WalletKind = "user"
	WalletKindOperation WalletKind = "operation"
)

// WalletRef is the result of probing both wallet tables for an id,
// tagged with which table it came from. WalletGroupID/DerivationIndex
// are carried through so execution workers can build a signing request
// straight off a resolved ref without a second lookup.
type WalletRef struct {
	Kind            WalletKind
	ID              int64
	ChainID         int64
	Address         string
	WalletGroupID   string
	DerivationIndex int64
}

// WalletRepo covers both UserWalletAddress and OperationWalletAddress,
// plus the dual-table resolution the planner and balance-sync need.
type WalletRepo struct{ db *gorm.DB }

// ResolveWallet probes both wallet tables for id, since wallet_balances.
// wallet_id may point into either (§3, §9). Absence in both is not an
// error — it returns (nil, nil) so callers can skip the row rather than
// fail the whole batch.
func (r *WalletRepo) ResolveWallet(id int64) (*WalletRef, error) {
	var u model.UserWalletAddress
	err := r.db.Where("id = ?", id).First(&u).Error
	if err == nil {
		return &WalletRef{
			Kind: WalletKindUser, ID: u.ID, ChainID: u.ChainID, Address: u.Address,
			WalletGroupID: u.WalletGroupID, DerivationIndex: u.DerivationIndex,
		}, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	var o model.OperationWalletAddress
	err = r.db.Where("id = ?", id).First(&o).Error
	if err == nil {
		return &WalletRef{
			Kind: WalletKindOperation, ID: o.ID, ChainID: o.ChainID, Address: o.Address,
			WalletGroupID: o.WalletGroupID, DerivationIndex: o.DerivationIndex,
		}, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	return nil, nil
}

// ActiveUserWalletIDs returns the ids of every active user wallet on
// every chain. The planner does not call it: it scopes itself to its own
// chain's user wallets through MonitoredAddresses (§4.7).
func (r *WalletRepo) ActiveUserWalletIDs() ([]int64, error) {
	var ids []int64
	rows, err := r.db.Model(&model.UserWalletAddress{}).Where("is_active = ?", true).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var u model.UserWalletAddress
		if err := r.db.ScanRows(rows, &u); err != nil {
			return nil, err
		}
		ids = append(ids, u.ID)
	}
	return ids, nil
}

// IsActiveUserWallet is the planner's row-level defence-in-depth
// membership check (§4.7: "double-checks user-wallet membership at row
// level").
func (r *WalletRepo) IsActiveUserWallet(walletID int64) (bool, error) {
	var count int
	err := r.db.Model(&model.UserWalletAddress{}).
		Where("id = ? AND is_active = ?", walletID, true).
		Count(&count).Error
	return count > 0, err
}

// UserUIDByID returns the owning uid for a user_wallet_addresses row —
// the detector needs this to stamp deposits.uid (§4.4).
func (r *WalletRepo) UserUIDByID(id int64) (string, error) {
	var u model.UserWalletAddress
	err := r.db.Where("id = ?", id).First(&u).Error
	if err == gorm.ErrRecordNotFound {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return u.UID, nil
}

// MonitoredAddresses returns every active user address on chainID,
// keyed for the detector's reloadable cache (§4.4).
func (r *WalletRepo) MonitoredAddresses(chainID int64) ([]model.UserWalletAddress, error) {
	var rows []model.UserWalletAddress
	if err := r.db.Where("chain_id = ? AND is_active = ?", chainID, true).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ActiveOperationWallets returns active operation wallets for a chain and
// role, ordered for the round-robin destination-selection tiebreaker in
// §4.7 (oldest last_used_at first, NULLs first).
func (r *WalletRepo) ActiveOperationWallets(chainID int64, role model.OperationRole) ([]model.OperationWalletAddress, error) {
	var rows []model.OperationWalletAddress
	err := r.db.Where("chain_id = ? AND role = ? AND is_active = ?", chainID, role, true).
		Order("last_used_at ASC NULLS FIRST").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// OperationWalletByID returns at most one operation wallet with id that
// is active and on chainID. The planner does not call it: rule metadata,
// including a preferred wallet id, is not read when selecting a
// destination.
func (r *WalletRepo) OperationWalletByID(id, chainID int64) (*model.OperationWalletAddress, error) {
	var row model.OperationWalletAddress
	err := r.db.Where("id = ? AND chain_id = ? AND is_active = ?", id, chainID, true).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// BumpLastUsed is best-effort (§4.7: "bump last_used_at best-effort")
// — callers should not fail the enqueue path if this errors.
func (r *WalletRepo) BumpLastUsed(id int64) error {
	now := Now()
	return r.db.Model(&model.OperationWalletAddress{}).Where("id = ?", id).
		Update("last_used_at", now).Error
}

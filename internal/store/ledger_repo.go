package store

import "github.com/jinzhu/gorm"

// LedgerRepo wraps the ledger-side credit procedure that the confirmation
// worker calls once a deposit clears its confirmation threshold (§4.5,
// P1). The ledger itself is an out-of-scope collaborator (SPEC_FULL.md
// §1 Non-goals); this repo only issues the call and surfaces its error.
type LedgerRepo struct{ db *gorm.DB }

// CreditDeposit invokes the datastore-side credit(uid, asset_on_chain_id,
// amount_human) procedure. The ledger deals in human units, not raw
// on-chain integers (§4.5 step 3, §6). sourceRef (the deposit's tx_hash)
// is not passed to the procedure; exactly-once crediting rests on the
// caller's credited_at guard.
func (r *LedgerRepo) CreditDeposit(uid string, assetOnChainID int64, amountHuman, sourceRef string) error {
	return r.db.Exec("SELECT credit(?, ?, ?)", uid, assetOnChainID, amountHuman).Error
}

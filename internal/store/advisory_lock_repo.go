package store

import "github.com/jinzhu/gorm"

// AdvisoryLockRepo wraps Postgres session-level advisory locks, used to
// serialize EVM nonce allocation per funder wallet across worker
// processes (§4.10, §9 "EVM nonce serialization").
type AdvisoryLockRepo struct{ db *gorm.DB }

// LockFunder blocks until it holds the advisory lock keyed by key (e.g.
// "evm-funder:<chain_id>:<address>") on this connection. Must be paired
// with UnlockFunder on the SAME *gorm.DB session — callers should obtain
// a dedicated connection via db.DB().Conn or hold the lock for the
// shortest span that covers nonce-read-then-broadcast.
func (r *AdvisoryLockRepo) LockFunder(key string) error {
	return r.db.Exec("SELECT pg_advisory_lock(hashtext(?))", key).Error
}

// UnlockFunder releases a lock acquired by LockFunder.
func (r *AdvisoryLockRepo) UnlockFunder(key string) error {
	return r.db.Exec("SELECT pg_advisory_unlock(hashtext(?))", key).Error
}

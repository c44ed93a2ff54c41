// Package exec holds the parts of the execution-worker state machine
// shared by gas-topup, consolidation, and withdrawal workers (§4.8): the
// Job value, the Executor interface, the retry cap and backoff, and the
// retry/fail-fast dispatch table. Candidate selection, leases and the
// tx_hash idempotency check (P2) live in each worker package and its
// store repo.
package exec

import (
	"time"

	"github.com/coinsensei/chain-workers/internal/errs"
)

// MaxRetries bounds the retry count for consolidation/gas-topup jobs
// (§4.8). Withdrawal jobs use their own row-level max_retries instead.
const MaxRetries = 8

// Backoff returns min(2^n * 30s, 15m) for retry attempt n, per §4.8.
func Backoff(attempt int) time.Duration {
	base := 30 * time.Second
	d := base << uint(attempt)
	cap := 15 * time.Minute
	if d > cap || d <= 0 {
		d = cap
	}
	return d
}

// Outcome is the dispatch decision an execution or confirmation cycle
// reaches for one job after an error.
type Outcome int

const (
	OutcomeRetry Outcome = iota
	OutcomeFail
)

// Dispatch classifies err and decides whether the job should be retried
// with backoff or failed immediately, per §4.8/§7's error-kind table.
func Dispatch(err error) (Outcome, *errs.Classified) {
	c := errs.As(err)
	if c.Retryable() {
		return OutcomeRetry, c
	}
	return OutcomeFail, c
}

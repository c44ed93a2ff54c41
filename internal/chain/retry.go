package chain

import (
	"context"
	"math/rand"
	"time"

	"github.com/coinsensei/chain-workers/internal/errs"
)

// WithRetry wraps a single adapter call with exponential backoff and
// jitter on a retryable classified error, failing immediately on a
// non-retryable one (configuration, authorization, invalid_data). attempts
// bounds the total number of tries, including the first.
func WithRetry(ctx context.Context, attempts int, call func(ctx context.Context) error) error {
	var lastErr error
	for i := 0; i < attempts; i++ {
		lastErr = call(ctx)
		if lastErr == nil {
			return nil
		}
		c := errs.As(lastErr)
		if !c.Retryable() {
			return c
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff(i)):
		}
	}
	return lastErr
}

// backoff returns min(2^attempt * 250ms, 5s) plus up to 20% jitter —
// short, RPC-call-scale backoff, distinct from the much longer §4.8
// queue-job retry schedule.
func backoff(attempt int) time.Duration {
	base := 250 * time.Millisecond
	d := base << uint(attempt)
	cap := 5 * time.Second
	if d > cap || d <= 0 {
		d = cap
	}
	jitter := time.Duration(rand.Int63n(int64(d) / 5))
	return d + jitter
}

package exec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/coinsensei/chain-workers/internal/errs"
)

func TestBackoffDoublesUntilCap(t *testing.T) {
	assert.Equal(t, 30*time.Second, Backoff(0))
	assert.Equal(t, 60*time.Second, Backoff(1))
	assert.Equal(t, 120*time.Second, Backoff(2))
	assert.Equal(t, 15*time.Minute, Backoff(5))
	// Large attempt counts must not overflow into a negative duration.
	assert.Equal(t, 15*time.Minute, Backoff(100))
}

func TestDispatchRetryableGoesToRetry(t *testing.T) {
	outcome, classified := Dispatch(errs.New(errs.KindNetworkError, "rpc timeout", nil))
	assert.Equal(t, OutcomeRetry, outcome)
	assert.Equal(t, errs.KindNetworkError, classified.Kind)
}

func TestDispatchNonRetryableGoesToFail(t *testing.T) {
	outcome, classified := Dispatch(errs.New(errs.KindInsufficientBalance, "funder underfunded", nil))
	assert.Equal(t, OutcomeFail, outcome)
	assert.Equal(t, errs.KindInsufficientBalance, classified.Kind)
}

func TestMaxRetriesMatchesSpecBudget(t *testing.T) {
	assert.Equal(t, 8, MaxRetries)
}

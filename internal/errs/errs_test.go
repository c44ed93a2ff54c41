package errs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifiedRetryable(t *testing.T) {
	assert.True(t, New(KindNetworkError, "boom", nil).Retryable())
	assert.False(t, New(KindInvalidData, "bad input", nil).Retryable())
	assert.False(t, New(KindTxReverted, "reverted", nil).Retryable())
	assert.True(t, New(KindTaposError, "tapos", nil).Retryable())
}

func TestClassifiedError(t *testing.T) {
	withCause := New(KindNetworkError, "dial failed", errors.New("connection refused"))
	assert.Contains(t, withCause.Error(), "network_error")
	assert.Contains(t, withCause.Error(), "connection refused")

	noCause := New(KindInvalidData, "bad amount", nil)
	assert.Equal(t, "[invalid_data] bad amount", noCause.Error())
}

func TestClassifiedTag(t *testing.T) {
	c := New(KindGasError, "gas too low", nil)
	assert.Equal(t, "[gas_error] gas too low", c.Tag())
}

func TestAsUnwrapsWrappedClassified(t *testing.T) {
	inner := New(KindInsufficientBalance, "not enough funds", nil)
	wrapped := &wrapperError{cause: inner}

	got := As(wrapped)
	assert.Equal(t, KindInsufficientBalance, got.Kind)
}

func TestAsDefaultsUnclassifiedToRetryableNetworkError(t *testing.T) {
	got := As(errors.New("some random failure"))
	assert.Equal(t, KindNetworkError, got.Kind)
	assert.True(t, got.Retryable())
}

func TestAsNil(t *testing.T) {
	assert.Nil(t, As(nil))
}

type wrapperError struct {
	cause error
}

func (w *wrapperError) Error() string { return "wrapped: " + w.cause.Error() }
func (w *wrapperError) Unwrap() error { return w.cause }

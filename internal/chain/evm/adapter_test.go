package evm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coinsensei/chain-workers/internal/errs"
)

func TestClassifyBroadcast(t *testing.T) {
	cases := []struct {
		msg  string
		kind errs.Kind
	}{
		{"replacement transaction underpriced", errs.KindReplacementUnderpriced},
		{"nonce too low", errs.KindNonceTooLow},
		{"already known", errs.KindNonceTooLow},
		{"insufficient funds for gas * price + value", errs.KindInsufficientBalance},
		{"invalid sender", errs.KindInvalidData},
		{"invalid address", errs.KindInvalidData},
		{"connection reset by peer", errs.KindNetworkError},
	}
	for _, c := range cases {
		err := classifyBroadcast(errors.New(c.msg))
		classified, ok := err.(*errs.Classified)
		assert.True(t, ok)
		assert.Equal(t, c.kind, classified.Kind, "msg=%q", c.msg)
	}
}

func TestClassifyBroadcastIsCaseInsensitive(t *testing.T) {
	err := classifyBroadcast(errors.New("NONCE TOO LOW"))
	classified := err.(*errs.Classified)
	assert.Equal(t, errs.KindNonceTooLow, classified.Kind)
}

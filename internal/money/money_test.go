package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawToHuman(t *testing.T) {
	cases := []struct {
		raw      string
		decimals int
		want     string
	}{
		{"1000000000000000000", 18, "1"},
		{"1500000000000000000", 18, "1.5"},
		{"0", 18, "0"},
		{"1", 18, "0.000000000000000001"},
		{"-1000000", 6, "-1"},
		{"123", 0, "123"},
	}
	for _, c := range cases {
		got, err := RawToHuman(c.raw, c.decimals)
		require.NoError(t, err)
		assert.Equal(t, c.want, got, "raw=%s decimals=%d", c.raw, c.decimals)
	}
}

func TestRawToHumanInvalid(t *testing.T) {
	_, err := RawToHuman("not-a-number", 18)
	assert.Error(t, err)

	_, err = RawToHuman("100", -1)
	assert.Error(t, err)
}

func TestHumanToRawRoundTrip(t *testing.T) {
	raw, err := HumanToRaw("1.5", 18)
	require.NoError(t, err)
	assert.Equal(t, "1500000000000000000", raw)

	human, err := RawToHuman(raw, 18)
	require.NoError(t, err)
	assert.Equal(t, "1.5", human)
}

func TestHumanToRawRejectsExcessPrecision(t *testing.T) {
	_, err := HumanToRaw("1.1234567", 6)
	assert.Error(t, err)
}

func TestEvalOperator(t *testing.T) {
	cases := []struct {
		balance, op, threshold string
		matched, ok            bool
	}{
		{"10", ">", "5", true, true},
		{"5", ">", "5", false, true},
		{"5", ">=", "5", true, true},
		{"4.999999999999999999", "<", "5", true, true},
		{"5", "==", "5.0", true, true},
		{"5", "!=", "5.0", false, true},
		{"5", "?", "5", false, false},
		{"not-a-number", ">", "5", false, false},
	}
	for _, c := range cases {
		matched, ok := EvalOperator(c.balance, c.op, c.threshold)
		assert.Equal(t, c.ok, ok, "op=%s", c.op)
		assert.Equal(t, c.matched, matched, "op=%s", c.op)
	}
}

func TestIsZero(t *testing.T) {
	assert.True(t, IsZero("0"))
	assert.True(t, IsZero("-0"))
	assert.False(t, IsZero("1"))
	assert.False(t, IsZero("not-a-number"))
}

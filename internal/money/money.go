// Package money implements exact, floating-point-free amount handling:
// raw integer-string amounts, human decimal-string amounts, and exact
// decimal comparison for rule evaluation (§9's explicit caveat that the
// source's double-precision rule comparator must be replaced).
package money

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// RawToHuman converts an integer-string raw amount into its exact decimal
// human representation, dividing by 10^decimals with integer arithmetic
// and zero-padding the fractional part — never touching float64 (P8).
func RawToHuman(raw string, decimals int) (string, error) {
	if decimals < 0 {
		return "", fmt.Errorf("money: negative decimals %d", decimals)
	}
	n, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok {
		return "", fmt.Errorf("money: invalid raw amount %q", raw)
	}

	neg := n.Sign() < 0
	abs := new(big.Int).Abs(n)
	s := abs.String()

	if decimals == 0 {
		if neg {
			return "-" + s, nil
		}
		return s, nil
	}

	if len(s) <= decimals {
		s = strings.Repeat("0", decimals-len(s)+1) + s
	}
	intPart := s[:len(s)-decimals]
	fracPart := s[len(s)-decimals:]
	fracPart = strings.TrimRight(fracPart, "0")

	out := intPart
	if fracPart != "" {
		out += "." + fracPart
	}
	if neg && out != "0" {
		out = "-" + out
	}
	return out, nil
}

// HumanToRaw is the inverse of RawToHuman: given an exact decimal string
// and the asset's decimals, produce the integer-string raw amount.
func HumanToRaw(human string, decimals int) (string, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(human))
	if err != nil {
		return "", fmt.Errorf("money: invalid human amount %q: %w", human, err)
	}
	scaled := d.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return "", fmt.Errorf("money: amount %q has more precision than %d decimals", human, decimals)
	}
	return scaled.Truncate(0).String(), nil
}

// Compare exactly compares two decimal strings (rule-evaluation operator
// support: >, >=, <, <=, ==, !=). Unlike the caveat in §9, this never
// round-trips through float64.
func Compare(a, b string) (int, error) {
	da, err := decimal.NewFromString(strings.TrimSpace(a))
	if err != nil {
		return 0, fmt.Errorf("money: invalid decimal %q: %w", a, err)
	}
	db, err := decimal.NewFromString(strings.TrimSpace(b))
	if err != nil {
		return 0, fmt.Errorf("money: invalid decimal %q: %w", b, err)
	}
	return da.Cmp(db), nil
}

// EvalOperator applies operator op (one of >,>=,<,<=,==,!=) to balance op
// threshold, exactly, per §4.7. Unknown operators return false, false so
// callers can log them and move on rather than erroring the whole cycle.
func EvalOperator(balanceHuman, op, thresholdHuman string) (matched bool, ok bool) {
	cmp, err := Compare(balanceHuman, thresholdHuman)
	if err != nil {
		return false, false
	}
	switch op {
	case ">":
		return cmp > 0, true
	case ">=":
		return cmp >= 0, true
	case "<":
		return cmp < 0, true
	case "<=":
		return cmp <= 0, true
	case "==":
		return cmp == 0, true
	case "!=":
		return cmp != 0, true
	default:
		return false, false
	}
}

// IsZero reports whether a raw integer-string amount is exactly zero.
// balance = 0 is a valid value per §4.7, never treated as "missing".
func IsZero(raw string) bool {
	n, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok {
		return false
	}
	return n.Sign() == 0
}

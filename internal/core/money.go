// Package core provides money parsing and handling utilities.
//
// Amounts are shopspring decimals and accumulate at full precision.
// Rounding to two fraction digits only happens in FormatAmount.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MaxAmount caps every stored amount to keep displays from overflowing.
var MaxAmount = decimal.NewFromInt(999_999_999)

// ParseAmount converts a decimal string to a decimal value.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators.
// Sign and range are not checked here; the ledger validates amounts
// before storing them.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("1.005") -> 1.005, nil (kept at full precision)
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// NormalizeAmount rejects non-positive amounts and clamps to MaxAmount.
func NormalizeAmount(d decimal.Decimal) (decimal.Decimal, error) {
	if !d.IsPositive() {
		return decimal.Zero, Invalid("amount", ErrInvalidAmount)
	}
	return ClampAmount(d), nil
}

// ClampAmount caps d at MaxAmount.
func ClampAmount(d decimal.Decimal) decimal.Decimal {
	if d.GreaterThan(MaxAmount) {
		return MaxAmount
	}
	return d
}

// FormatAmount renders d with two fraction digits using sep as the
// decimal separator.
func FormatAmount(d decimal.Decimal, sep string) string {
	s := d.StringFixed(2)
	if sep != "" && sep != "." {
		s = strings.Replace(s, ".", sep, 1)
	}
	return s
}

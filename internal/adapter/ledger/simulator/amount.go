package simulator

import (
	"fmt"
	"strings"

	"stellar-micro-donation/internal/core/domain"

	"github.com/shopspring/decimal"
)

// ParseAmount parses a non-negative decimal and rounds it to seven
// fractional digits, half away from zero.
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %q is negative", ErrInvalidAmount, raw)
	}
	return d.Round(domain.AmountScale), nil
}

// FormatAmount renders d with exactly seven fractional digits.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(domain.AmountScale)
}

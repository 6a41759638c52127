package ledger

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Balances are fixed-point decimals with two-digit precision. The sqlite
// store keeps integer cents; these helpers convert at the repository
// boundary so no arithmetic ever touches a float.

// ToCents converts a two-decimal amount to integer cents for storage.
func ToCents(d decimal.Decimal) int64 {
	return d.Round(2).Shift(2).IntPart()
}

// FromCents converts stored integer cents back to a decimal amount.
func FromCents(c int64) decimal.Decimal {
	return decimal.New(c, -2)
}

// ParseAmount converts boundary text to a signed amount. Thousands
// separators are tolerated; more than two fractional digits are not.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return decimal.Decimal{}, fmt.Errorf("empty amount")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if !d.Equal(d.Round(2)) {
		return decimal.Decimal{}, fmt.Errorf("amount %q has more than two decimal places", s)
	}
	return d, nil
}

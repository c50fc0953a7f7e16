// Package core provides money parsing and handling utilities.
//
// Amounts are kept as integer cents; decimal.Decimal is used only at the
// edges (parsing, JSON, ratios) so that sums stay exact.
package core

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)

	// Cent amounts outside int64 would wrap around.
	maxCents = decimal.NewFromInt(math.MaxInt64)
	minCents = decimal.NewFromInt(math.MinInt64)
)

// ParseMoney converts a decimal string to Money, rounding half away from zero
// to the cent.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. The sign
// is preserved; callers decide whether negative or zero values are allowed.
//
// Examples:
//
//	ParseMoney("12.34")  -> 1234
//	ParseMoney("12,345") -> 1235
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return MoneyFromDecimal(d)
}

// MoneyFromDecimal rounds d to the cent. Amounts that do not fit in int64
// cents are ErrInvalidAmount.
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	cents := d.Mul(hundred).Round(0)
	if cents.GreaterThan(maxCents) || cents.LessThan(minCents) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents.IntPart()}, nil
}

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Add returns m + o.
func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

// Sub returns m - o.
func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}

func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Percentage returns m as a percentage of whole, or 0 when whole is not
// positive. The result is not capped.
func (m Money) Percentage(whole Money) float64 {
	if whole.Cents <= 0 {
		return 0
	}
	return decimal.NewFromInt(m.Cents).
		Mul(hundred).
		Div(decimal.NewFromInt(whole.Cents)).
		InexactFloat64()
}

// MarshalJSON renders the amount as a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string.
func (m *Money) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "null" {
		return nil
	}
	parsed, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

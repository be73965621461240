// Package core holds the finance domain: teams, income and expense entries,
// their validation rules and the pure aggregate computations over them.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// AmountPlaces is the precision entries are stored with.
const AmountPlaces = 2

// MaxAmount is the largest amount every backend can store (NUMERIC(14,2)).
var MaxAmount = decimal.RequireFromString("999999999999.99")

// ParseAmount converts user input to a positive amount rounded to cents.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and
// rounds half away from zero on the third decimal place.
//
//	ParseAmount("12,34")  -> 12.34
//	ParseAmount("12.345") -> 12.35
//	ParseAmount("0.004")  -> error (rounds to zero)
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	d = RoundAmount(d)
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// RoundAmount rounds to the stored precision.
func RoundAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(AmountPlaces)
}

// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from spreadsheet
// cells and formatting them the way the dashboard displays them.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// maxAmount keeps Cents well inside int64 and float64 exact-integer range.
var maxAmount = decimal.New(1, 13)

// ParseAmount converts a raw cell value to Money.
//
// It accepts plain and scientific decimal notation with a dot separator and
// rounds half away from zero to the cent. Negative values (refunds) are kept.
//
// Examples:
//
//	ParseAmount("12.34")  -> 1234
//	ParseAmount("1e2")    -> 10000
//	ParseAmount("-5")     -> -500
//	ParseAmount("12.345") -> 1235
//	ParseAmount("abc")    -> ErrInvalidAmount
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	if d.Abs().GreaterThanOrEqual(maxAmount) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: d.Shift(2).Round(0).IntPart()}, nil
}

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Add returns m + o.
func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

// Mean divides total by count, returning zero for an empty set.
func Mean(total Money, count int) decimal.Decimal {
	if count == 0 {
		return decimal.Zero
	}
	return total.Decimal().Div(decimal.NewFromInt(int64(count)))
}

// FormatWhole renders d rounded (half to even) to whole units with comma
// thousands separators, e.g. 1234567.5 -> "1,234,568".
func FormatWhole(d decimal.Decimal) string {
	s := d.RoundBank(0).StringFixed(0)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg && s != "0" {
		return "-" + b.String()
	}
	return b.String()
}

// Package core provides money parsing and handling utilities.
//
// Amounts are held as integer minor units (cents) everywhere. Decimal
// conversion goes through shopspring/decimal so no float ever touches a
// stored amount.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseDecimalToCents converts a plain decimal string ("12.34") to cents,
// rounding half away from zero on the third fractional digit.
// Thousands separators are not accepted here; see extract.ParseAmount for
// locale-aware parsing.
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return DecimalToCents(d)
}

// DecimalToCents rounds d to two places and returns it in cents.
func DecimalToCents(d decimal.Decimal) (int64, error) {
	cents := d.Round(2).Shift(2)
	if !cents.IsInteger() || cents.GreaterThan(decimal.NewFromInt(1<<62)) {
		return 0, ErrInvalidAmount
	}
	if cents.Sign() <= 0 {
		return 0, ErrInvalidAmount
	}
	return cents.IntPart(), nil
}

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String renders the amount with two fractional digits ("1234.50").
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// FormatAmount renders an amount for humans. Colones of 100 or more are
// shown without decimals.
func FormatAmount(m Money, currency string) string {
	d := m.Decimal()
	if currency == CurrencyCRC {
		if d.GreaterThanOrEqual(decimal.NewFromInt(100)) {
			return "₡" + groupThousands(d.Round(0).StringFixed(0))
		}
		return "₡" + groupThousands(d.StringFixed(2))
	}
	return "$" + groupThousands(d.StringFixed(2))
}

func groupThousands(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, hasFrac := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := sign + b.String()
	if hasFrac {
		out += "." + frac
	}
	return out
}

// Package core provides money parsing and display helpers.
//
// Amounts are stored in their raw unit (rupiah) as decimals. Everything in
// this file is presentation: nothing here changes a stored amount.
package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var million = decimal.NewFromInt(1_000_000)

// MaxAmount bounds a single transaction. Larger values, and amounts with more
// than MaxAmountDecimals fractional digits, are rejected with ErrAmountRange.
var MaxAmount = decimal.New(1, 15)

const MaxAmountDecimals = 3

// maxAmountText caps the raw input before it reaches the decimal parser.
const maxAmountText = 32

// ParseAmount parses the raw text of the amount input.
//
// Surrounding whitespace is ignored. Anything that is not a plain decimal
// number yields ErrInvalidAmount; exponent notation is not accepted. Values
// above MaxAmount in magnitude or with more than MaxAmountDecimals significant
// fractional digits yield ErrAmountRange. The sign is not checked here,
// callers decide whether a zero or negative value is acceptable.
//
// Examples:
//
//	ParseAmount("50000")   -> 50000, nil
//	ParseAmount(" 1.5 ")   -> 1.5, nil
//	ParseAmount("abc")     -> 0, ErrInvalidAmount
//	ParseAmount("1e9")     -> 0, ErrInvalidAmount
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" || strings.ContainsAny(s, "eE") {
		return decimal.Zero, ErrInvalidAmount
	}
	if len(s) > maxAmountText {
		return decimal.Zero, ErrAmountRange
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if !amountInRange(d) {
		return decimal.Zero, ErrAmountRange
	}
	return d, nil
}

// amountInRange checks the bounds without rescaling huge exponents, which
// would allocate a coefficient with as many digits as the exponent.
func amountInRange(d decimal.Decimal) bool {
	exp := int(d.Exponent())
	if d.NumDigits()+exp > 16 || exp < -MaxAmountDecimals-maxAmountText {
		return false
	}
	if d.Abs().GreaterThan(MaxAmount) {
		return false
	}
	return exp >= -MaxAmountDecimals || d.Equal(d.Round(MaxAmountDecimals))
}

// FormatMillions renders an amount in millions with one decimal place,
// e.g. 1250000 -> "Rp 1.3M". Used by KPI cards and table rows.
func FormatMillions(d decimal.Decimal) string {
	return "Rp " + d.Div(million).StringFixed(1) + "M"
}

// FormatSignedMillions prefixes FormatMillions with "+" for income and
// "−" for expense.
func FormatSignedMillions(t Type, d decimal.Decimal) string {
	sign := "+"
	if t == Expense {
		sign = "−"
	}
	return sign + " " + FormatMillions(d)
}

// FormatRupiah renders the full amount with thousands separators and up to
// three fractional digits, e.g. 1234567.5 -> "Rp 1,234,567.5".
func FormatRupiah(d decimal.Decimal) string {
	s := d.Round(3).String()
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := b.String()
	if frac != "" {
		out += "." + frac
	}
	if neg {
		out = "-" + out
	}
	return "Rp " + out
}

// DefaultDateLayout matches the short numeric date most browsers print for
// toLocaleDateString in the en-US locale.
const DefaultDateLayout = "1/2/2006"

// FormatDate formats t with layout, falling back to DefaultDateLayout.
func FormatDate(t time.Time, layout string) string {
	if strings.TrimSpace(layout) == "" {
		layout = DefaultDateLayout
	}
	return t.Format(layout)
}

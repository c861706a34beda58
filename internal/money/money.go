// Package money converts between free-form currency strings and integer cents.
package money

import (
	"strings"

	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Currency is the currency all amounts are displayed in.
const Currency = gomoney.USD

var (
	hundred = decimal.NewFromInt(100)
	half    = decimal.New(5, -1)
)

// ParseCents converts a human money string such as "$1,249.00" into cents.
// Every character other than digits, '.' and '-' is dropped first. Input
// that does not leave a number behind yields 0 rather than an error.
func ParseCents(input string) int64 {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return 0
	}

	normalized := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			return r
		}
		return -1
	}, trimmed)
	if normalized == "" {
		return 0
	}

	value, err := decimal.NewFromString(normalized)
	if err != nil {
		return 0
	}
	// Halves round up, toward positive infinity.
	return value.Mul(hundred).Add(half).Floor().IntPart()
}

// FormatCents renders cents as a US dollar amount, e.g. "$1,249.00".
func FormatCents(cents int64) string {
	return gomoney.New(cents, Currency).Display()
}

// FormatInput renders cents as a plain decimal suitable for an input field,
// e.g. "1249.00".
func FormatInput(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

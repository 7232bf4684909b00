// Package money parses and formats Brazilian Real amounts as they appear on bank
// statements. Arithmetic stays in shopspring/decimal; go-money handles display.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// BRL is the ISO-4217 code of the Brazilian Real.
const BRL = "BRL"

// ErrInvalidAmount is returned when a statement amount cannot be parsed.
var ErrInvalidAmount = errors.New("invalid amount")

// Money represents a monetary value with currency.
// It wraps go-money for safe display and shopspring/decimal for precision.
type Money struct {
	m *money.Money
}

// New creates a new Money value from cents (minor units) and currency code.
func New(amountCents int64, currencyCode string) *Money {
	return &Money{
		m: money.New(amountCents, currencyCode),
	}
}

// NewFromDecimal creates Money from a decimal.Decimal value, rounding to the
// currency's minor unit.
func NewFromDecimal(amount decimal.Decimal, currencyCode string) *Money {
	currency := money.GetCurrency(currencyCode)
	if currency == nil {
		currency = money.GetCurrency(BRL)
	}

	multiplier := decimal.New(1, int32(currency.Fraction))
	cents := amount.Mul(multiplier).Round(0).IntPart()

	return New(cents, currency.Code)
}

// Amount returns the value in minor units.
func (m *Money) Amount() int64 {
	if m == nil || m.m == nil {
		return 0
	}
	return m.m.Amount()
}

// Currency returns the ISO-4217 code.
func (m *Money) Currency() string {
	if m == nil || m.m == nil {
		return ""
	}
	return m.m.Currency().Code
}

// IsNegative reports whether the value is below zero.
func (m *Money) IsNegative() bool {
	return m.Amount() < 0
}

// Display formats the value with the currency's grapheme and separators,
// e.g. "R$1.234,56".
func (m *Money) Display() string {
	if m == nil || m.m == nil {
		return ""
	}
	return m.m.Display()
}

// ToDecimal converts back to a decimal in major units.
func (m *Money) ToDecimal() decimal.Decimal {
	if m == nil || m.m == nil {
		return decimal.Zero
	}
	currency := m.m.Currency()
	return decimal.New(m.m.Amount(), -int32(currency.Fraction))
}

// ParseBRL parses a Brazilian-formatted amount: "." groups thousands, "," marks
// decimals, an optional "R$" and a leading "-" are accepted.
//
//	ParseBRL("-1.300,00") // -1300.00
//	ParseBRL("R$ 50,00")  // 50.00
func ParseBRL(s string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.ReplaceAll(cleaned, "R$", "")
	cleaned = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '\t', '.':
			return -1
		case ',':
			return '.'
		}
		return r
	}, cleaned)

	if cleaned == "" || cleaned == "-" {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return d, nil
}

// FormatBRL renders an amount for people, e.g. "-R$1.300,00".
func FormatBRL(d decimal.Decimal) string {
	return NewFromDecimal(d, BRL).Display()
}

// FormatPlain renders an amount with two decimals and the given decimal
// separator, without grouping. Used by fixed-width exports.
func FormatPlain(d decimal.Decimal, decimalSeparator string) string {
	s := d.StringFixed(2)
	if decimalSeparator != "" && decimalSeparator != "." {
		s = strings.Replace(s, ".", decimalSeparator, 1)
	}
	return s
}

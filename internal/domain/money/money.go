// Package money converts between decimal amounts and vendor minor units
// using ISO 4217 scales.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// ParseCurrency normalizes an ISO 4217 code ("usd" -> "USD").
func ParseCurrency(code string) (string, error) {
	unit, err := currency.ParseISO(strings.TrimSpace(code))
	if err != nil {
		return "", fmt.Errorf("unsupported currency %q", code)
	}
	return unit.String(), nil
}

// Scale returns the number of minor-unit digits of the currency (2 for USD, 0 for JPY).
func Scale(code string) (int32, error) {
	unit, err := currency.ParseISO(strings.TrimSpace(code))
	if err != nil {
		return 0, fmt.Errorf("unsupported currency %q", code)
	}
	scale, _ := currency.Standard.Rounding(unit)
	return int32(scale), nil
}

// Validate checks that amount is positive and fits the currency's minor unit.
func Validate(amount decimal.Decimal, code string) error {
	scale, err := Scale(code)
	if err != nil {
		return err
	}
	if !amount.IsPositive() {
		return fmt.Errorf("amount must be greater than zero")
	}
	if !amount.Round(scale).Equal(amount) {
		return fmt.Errorf("amount %s has more than %d decimal places for %s", amount.String(), scale, strings.ToUpper(code))
	}
	return nil
}

// Format renders amount with exactly the currency's scale ("9.9" USD -> "9.90").
func Format(amount decimal.Decimal, code string) (string, error) {
	scale, err := Scale(code)
	if err != nil {
		return "", err
	}
	return amount.StringFixed(scale), nil
}

// FromMinor converts vendor minor units (cents) to a decimal amount.
func FromMinor(minor int64, code string) decimal.Decimal {
	scale, err := Scale(code)
	if err != nil {
		scale = 2
	}
	return decimal.New(minor, -scale)
}

// ToMinor converts a decimal amount to vendor minor units.
func ToMinor(amount decimal.Decimal, code string) (int64, error) {
	scale, err := Scale(code)
	if err != nil {
		return 0, err
	}
	return amount.Shift(scale).Round(0).IntPart(), nil
}

// Package price provides the immutable monetary value objects used by the
// pricing engine: Price (amount + currency) and Adjustment (a price delta).
package price

import (
	"errors"
	"fmt"
	"strings"

	"github.com/noah-isme/commerce-pricing/internal/calc"
)

var (
	// ErrCurrencyMismatch is returned for arithmetic between different currencies.
	ErrCurrencyMismatch = errors.New("price: currency mismatch")
	// ErrInvalidCurrencyCode is returned when a currency code is not three letters.
	ErrInvalidCurrencyCode = errors.New("price: invalid currency code")
)

// Price is an immutable (amount, currency) pair. The amount is a string-encoded
// decimal; all arithmetic goes through the calc package. The currency is held
// by code only, so a Price can exist without a loaded Currency entity.
type Price struct {
	Number       string `json:"number"`
	CurrencyCode string `json:"currency_code"`
}

// New validates the inputs and constructs a Price.
func New(number, currencyCode string) (Price, error) {
	if !calc.Valid(number) {
		return Price{}, fmt.Errorf("%w: %q", calc.ErrInvalidNumber, number)
	}
	if !validCurrencyCode(currencyCode) {
		return Price{}, fmt.Errorf("%w: %q", ErrInvalidCurrencyCode, currencyCode)
	}
	return Price{Number: number, CurrencyCode: strings.ToUpper(currencyCode)}, nil
}

// MustNew constructs a Price and panics on invalid input. For fixtures and tests.
func MustNew(number, currencyCode string) Price {
	p, err := New(number, currencyCode)
	if err != nil {
		panic(err)
	}
	return p
}

// Zero returns a zero Price in the given currency.
func Zero(currencyCode string) Price {
	return Price{Number: "0", CurrencyCode: strings.ToUpper(currencyCode)}
}

func validCurrencyCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') {
			return false
		}
	}
	return true
}

func (p Price) assertSameCurrency(other Price) error {
	if p.CurrencyCode != other.CurrencyCode {
		return fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, p.CurrencyCode, other.CurrencyCode)
	}
	return nil
}

// Add returns p + other. Currencies must match.
func (p Price) Add(other Price) (Price, error) {
	if err := p.assertSameCurrency(other); err != nil {
		return Price{}, err
	}
	number, err := calc.Add(p.Number, other.Number)
	if err != nil {
		return Price{}, err
	}
	return Price{Number: number, CurrencyCode: p.CurrencyCode}, nil
}

// Subtract returns p - other. Currencies must match.
func (p Price) Subtract(other Price) (Price, error) {
	if err := p.assertSameCurrency(other); err != nil {
		return Price{}, err
	}
	number, err := calc.Subtract(p.Number, other.Number)
	if err != nil {
		return Price{}, err
	}
	return Price{Number: number, CurrencyCode: p.CurrencyCode}, nil
}

// Multiply returns p scaled by the given decimal string. Currency is unchanged.
func (p Price) Multiply(factor string) (Price, error) {
	number, err := calc.Multiply(p.Number, factor)
	if err != nil {
		return Price{}, err
	}
	return Price{Number: number, CurrencyCode: p.CurrencyCode}, nil
}

// Divide returns p divided by the given decimal string. Currency is unchanged.
func (p Price) Divide(divisor string) (Price, error) {
	number, err := calc.Divide(p.Number, divisor)
	if err != nil {
		return Price{}, err
	}
	return Price{Number: number, CurrencyCode: p.CurrencyCode}, nil
}

// Round rounds to two decimal digits, half up, without consulting the currency.
// Intended for intermediate calculations; final amounts go through the
// currency-aware rounder.
func (p Price) Round() (Price, error) {
	number, err := calc.Round(p.Number, 2, calc.RoundHalfUp)
	if err != nil {
		return Price{}, err
	}
	return Price{Number: number, CurrencyCode: p.CurrencyCode}, nil
}

// Compare returns -1, 0 or 1. Currencies must match.
func (p Price) Compare(other Price) (int, error) {
	if err := p.assertSameCurrency(other); err != nil {
		return 0, err
	}
	return calc.Compare(p.Number, other.Number)
}

// Equal reports whether both prices share a currency and are numerically equal,
// so "3.0" USD equals "3" USD.
func (p Price) Equal(other Price) bool {
	if p.CurrencyCode != other.CurrencyCode {
		return false
	}
	cmp, err := calc.Compare(p.Number, other.Number)
	return err == nil && cmp == 0
}

// Negate returns the price with its sign flipped.
func (p Price) Negate() (Price, error) {
	return p.Multiply("-1")
}

// IsNegative reports whether the amount is below zero.
func (p Price) IsNegative() bool { return p.sign() < 0 }

// IsZero reports whether the amount is exactly zero.
func (p Price) IsZero() bool { return p.sign() == 0 }

// IsPositive reports whether the amount is above zero.
func (p Price) IsPositive() bool { return p.sign() > 0 }

func (p Price) sign() int {
	cmp, err := calc.Compare(p.Number, "0")
	if err != nil {
		return 0
	}
	return cmp
}

// String renders the price for logs and error messages.
func (p Price) String() string {
	return p.Number + " " + p.CurrencyCode
}

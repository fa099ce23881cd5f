package currency

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/commerce-pricing/internal/calc"
	"github.com/noah-isme/commerce-pricing/internal/price"
)

// Rounder rounds prices to their currency's precision. The currency is looked
// up by code only when rounding is actually requested, keeping Price free of
// any loaded Currency dependency.
type Rounder struct {
	Currencies Repository
}

// Round rounds half-up to the currency's precision.
func (r Rounder) Round(ctx context.Context, p price.Price) (price.Price, error) {
	return r.RoundWithMode(ctx, p, calc.RoundHalfUp)
}

// RoundWithMode rounds using the provided mode. When the currency defines a
// non-zero rounding step, the amount is rounded to the nearest multiple of the
// step instead of to fraction digits: round(amount/step) * step.
func (r Rounder) RoundWithMode(ctx context.Context, p price.Price, mode calc.RoundMode) (price.Price, error) {
	if r.Currencies == nil {
		return price.Price{}, fmt.Errorf("currency: rounder has no repository")
	}
	cur, err := r.Currencies.Get(ctx, p.CurrencyCode)
	if err != nil {
		return price.Price{}, fmt.Errorf("round %s: %w", p.CurrencyCode, err)
	}

	number := p.Number
	if cur.RoundingStep != "" && cur.RoundingStep != "0" {
		number, err = roundToStep(number, cur.RoundingStep, mode)
	} else {
		number, err = calc.Round(number, cur.FractionDigits, mode)
	}
	if err != nil {
		return price.Price{}, err
	}

	formatted, err := formatFixed(number, cur.FractionDigits)
	if err != nil {
		return price.Price{}, err
	}
	return price.Price{Number: formatted, CurrencyCode: p.CurrencyCode}, nil
}

func roundToStep(number, step string, mode calc.RoundMode) (string, error) {
	quotient, err := calc.Divide(number, step)
	if err != nil {
		return "", err
	}
	rounded, err := calc.Round(quotient, 0, mode)
	if err != nil {
		return "", err
	}
	return calc.Multiply(rounded, step)
}

// formatFixed pads the amount to the currency's fraction digits so rounded
// prices render as "3.60" rather than "3.6".
func formatFixed(number string, digits int32) (string, error) {
	d, err := decimal.NewFromString(number)
	if err != nil {
		return "", fmt.Errorf("%w: %q", calc.ErrInvalidNumber, number)
	}
	return d.StringFixed(digits), nil
}

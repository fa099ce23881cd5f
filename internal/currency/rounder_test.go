package currency_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/commerce-pricing/internal/calc"
	"github.com/noah-isme/commerce-pricing/internal/currency"
	"github.com/noah-isme/commerce-pricing/internal/price"
)

func TestRoundFractionDigits(t *testing.T) {
	r := currency.Rounder{Currencies: currency.ISORepository()}
	ctx := context.Background()

	tests := []struct {
		in   price.Price
		want string
	}{
		{price.MustNew("3.60", "USD"), "3.60"},
		{price.MustNew("3.604", "USD"), "3.60"},
		{price.MustNew("3.605", "USD"), "3.61"},
		{price.MustNew("-3.605", "USD"), "-3.61"},
		{price.MustNew("100.5", "JPY"), "101"},
		{price.MustNew("1.23456", "BHD"), "1.235"},
	}
	for _, tc := range tests {
		got, err := r.Round(ctx, tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got.Number, "round %s", tc.in)
		assert.Equal(t, tc.in.CurrencyCode, got.CurrencyCode)
	}
}

func TestRoundStep(t *testing.T) {
	r := currency.Rounder{Currencies: currency.ISORepository()}
	ctx := context.Background()

	tests := []struct {
		in   string
		want string
	}{
		{"10.93", "10.95"},
		{"10.92", "10.90"},
		{"10.925", "10.95"},
		{"0.02", "0.00"},
		{"0.03", "0.05"},
	}
	for _, tc := range tests {
		got, err := r.Round(ctx, price.MustNew(tc.in, "CHF"))
		require.NoError(t, err)
		assert.Equal(t, tc.want, got.Number, "round %s CHF", tc.in)
	}
}

func TestRoundUnknownCurrency(t *testing.T) {
	r := currency.Rounder{Currencies: currency.NewMemoryRepository()}
	_, err := r.Round(context.Background(), price.MustNew("1.00", "USD"))
	require.ErrorIs(t, err, currency.ErrNotFound)
}

func TestRoundWithMode(t *testing.T) {
	r := currency.Rounder{Currencies: currency.ISORepository()}
	ctx := context.Background()

	down, err := r.RoundWithMode(ctx, price.MustNew("3.605", "USD"), calc.RoundHalfDown)
	require.NoError(t, err)
	assert.Equal(t, "3.60", down.Number)

	up, err := r.RoundWithMode(ctx, price.MustNew("3.601", "USD"), calc.RoundUp)
	require.NoError(t, err)
	assert.Equal(t, "3.61", up.Number)
}

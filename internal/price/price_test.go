package price

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/commerce-pricing/internal/calc"
)

func TestNewValidation(t *testing.T) {
	_, err := New("3.00", "USD")
	require.NoError(t, err)

	_, err = New("three", "USD")
	require.ErrorIs(t, err, calc.ErrInvalidNumber)

	_, err = New("3.00", "US")
	require.ErrorIs(t, err, ErrInvalidCurrencyCode)

	_, err = New("3.00", "U5D")
	require.ErrorIs(t, err, ErrInvalidCurrencyCode)

	p, err := New("3.00", "usd")
	require.NoError(t, err)
	assert.Equal(t, "USD", p.CurrencyCode)
}

func TestArithmeticSameCurrency(t *testing.T) {
	a := MustNew("3.00", "USD")
	b := MustNew("1.50", "USD")

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.True(t, sum.Equal(MustNew("4.5", "USD")))

	diff, err := a.Subtract(b)
	require.NoError(t, err)
	assert.True(t, diff.Equal(MustNew("1.50", "USD")))

	// inputs are untouched
	assert.Equal(t, "3.00", a.Number)
	assert.Equal(t, "1.50", b.Number)
}

func TestCurrencyMismatch(t *testing.T) {
	usd := MustNew("3.00", "USD")
	eur := MustNew("3.00", "EUR")

	_, err := usd.Add(eur)
	require.ErrorIs(t, err, ErrCurrencyMismatch)
	_, err = usd.Subtract(eur)
	require.ErrorIs(t, err, ErrCurrencyMismatch)
	_, err = usd.Compare(eur)
	require.ErrorIs(t, err, ErrCurrencyMismatch)
	assert.False(t, usd.Equal(eur))
}

func TestScalarOps(t *testing.T) {
	p := MustNew("3.00", "USD")

	half, err := p.Multiply("0.5")
	require.NoError(t, err)
	assert.Equal(t, "USD", half.CurrencyCode)
	assert.True(t, half.Equal(MustNew("1.50", "USD")))

	third, err := p.Divide("3")
	require.NoError(t, err)
	assert.True(t, third.Equal(MustNew("1", "USD")))

	_, err = p.Divide("0")
	require.ErrorIs(t, err, calc.ErrDivisionByZero)
}

func TestRoundIntermediate(t *testing.T) {
	p := MustNew("1.005", "USD")
	rounded, err := p.Round()
	require.NoError(t, err)
	assert.Equal(t, "1.01", rounded.Number)
}

func TestNumericEquality(t *testing.T) {
	assert.True(t, MustNew("3.0", "USD").Equal(MustNew("3", "USD")))
	assert.True(t, MustNew("3.00", "USD").Equal(MustNew("3.000", "USD")))
	assert.False(t, MustNew("3.01", "USD").Equal(MustNew("3", "USD")))
}

func TestSignPredicates(t *testing.T) {
	assert.True(t, MustNew("-0.01", "USD").IsNegative())
	assert.True(t, Zero("USD").IsZero())
	assert.True(t, MustNew("0.00", "USD").IsZero())
	assert.True(t, MustNew("0.01", "USD").IsPositive())
}

func TestAdjustmentsHelpers(t *testing.T) {
	promo := Adjustment{Type: AdjustmentPromotion, Label: "50% off", Amount: MustNew("-1.50", "USD"), Locked: true}
	tax := Adjustment{Type: AdjustmentTax, Label: "VAT", Amount: MustNew("0.30", "USD")}
	list := Adjustments{promo, tax}

	assert.Len(t, list.ByType(AdjustmentTax), 1)
	assert.Len(t, list.Locked(), 1)
	assert.Equal(t, "50% off", list.Locked()[0].Label)

	total, err := list.Total("USD")
	require.NoError(t, err)
	assert.True(t, total.Equal(MustNew("-1.20", "USD")))

	// Append must not mutate the receiver.
	extended := list.Append(Adjustment{Type: AdjustmentCustom, Amount: MustNew("1", "USD")})
	assert.Len(t, list, 2)
	assert.Len(t, extended, 3)

	_, err = Adjustments{tax}.Total("EUR")
	require.ErrorIs(t, err, ErrCurrencyMismatch)

	empty, err := Adjustments{}.Total("USD")
	require.NoError(t, err)
	assert.True(t, empty.IsZero())
}

func TestAdjustmentChargeCredit(t *testing.T) {
	assert.True(t, Adjustment{Amount: MustNew("0.30", "USD")}.IsCharge())
	assert.True(t, Adjustment{Amount: MustNew("-1.50", "USD")}.IsCredit())
}

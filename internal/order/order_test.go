package order_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/commerce-pricing/internal/order"
	"github.com/noah-isme/commerce-pricing/internal/price"
)

func twoLineOrder() *order.Order {
	return &order.Order{
		ID:           uuid.New(),
		CurrencyCode: "USD",
		Items: []*order.Item{
			{ID: uuid.New(), Title: "Widget", Quantity: "2", UnitPrice: price.MustNew("3.00", "USD")},
			{ID: uuid.New(), Title: "Gadget", Quantity: "1", UnitPrice: price.MustNew("10.00", "USD")},
		},
	}
}

func TestSubtotalAndQuantity(t *testing.T) {
	o := twoLineOrder()

	subtotal, err := o.Subtotal()
	require.NoError(t, err)
	assert.True(t, subtotal.Equal(price.MustNew("16.00", "USD")))

	qty, err := o.TotalQuantity()
	require.NoError(t, err)
	assert.Equal(t, "3", qty)
}

func TestRecalculateTotalIncludesAdjustments(t *testing.T) {
	o := twoLineOrder()
	o.Items[0].AddAdjustment(price.Adjustment{
		Type:   price.AdjustmentPromotion,
		Amount: price.MustNew("-3.00", "USD"),
	})
	o.AddAdjustment(price.Adjustment{
		Type:   price.AdjustmentTax,
		Amount: price.MustNew("2.60", "USD"),
	})

	require.NoError(t, o.RecalculateTotal())
	assert.True(t, o.TotalPrice.Equal(price.MustNew("15.60", "USD")))
}

func TestClearAdjustmentsKeepsLocked(t *testing.T) {
	o := twoLineOrder()
	o.Items[0].AddAdjustment(price.Adjustment{Type: price.AdjustmentPromotion, Amount: price.MustNew("-1", "USD")})
	o.Items[0].AddAdjustment(price.Adjustment{Type: price.AdjustmentCustom, Amount: price.MustNew("-2", "USD"), Locked: true})
	o.AddAdjustment(price.Adjustment{Type: price.AdjustmentTax, Amount: price.MustNew("1", "USD")})

	o.ClearAdjustments()

	require.Len(t, o.Items[0].Adjustments, 1)
	assert.True(t, o.Items[0].Adjustments[0].Locked)
	assert.Empty(t, o.Adjustments)
}

func TestAdjustedTotal(t *testing.T) {
	it := &order.Item{Quantity: "2", UnitPrice: price.MustNew("3.00", "USD")}
	it.AddAdjustment(price.Adjustment{Type: price.AdjustmentPromotion, Amount: price.MustNew("-1.50", "USD")})

	total, err := it.AdjustedTotal()
	require.NoError(t, err)
	assert.True(t, total.Equal(price.MustNew("4.50", "USD")))
}

func TestCloneIsIndependent(t *testing.T) {
	o := twoLineOrder()
	dup := o.Clone()
	dup.Items[0].AddAdjustment(price.Adjustment{Type: price.AdjustmentPromotion, Amount: price.MustNew("-1", "USD")})
	dup.Items[0].Quantity = "9"

	assert.Empty(t, o.Items[0].Adjustments)
	assert.Equal(t, "2", o.Items[0].Quantity)
}

func TestMemoryRepositoryVersionCheck(t *testing.T) {
	ctx := context.Background()
	repo := order.NewMemoryRepository()

	o := twoLineOrder()
	require.NoError(t, repo.Create(ctx, o))
	assert.Equal(t, int64(1), o.Version)

	loadedA, err := repo.Get(ctx, o.ID)
	require.NoError(t, err)
	loadedB, err := repo.Get(ctx, o.ID)
	require.NoError(t, err)

	require.NoError(t, repo.Save(ctx, loadedA))
	assert.Equal(t, int64(2), loadedA.Version)

	err = repo.Save(ctx, loadedB)
	require.ErrorIs(t, err, order.ErrStaleVersion)
}

func TestMemoryRepositoryNotFound(t *testing.T) {
	_, err := order.NewMemoryRepository().Get(context.Background(), uuid.New())
	require.ErrorIs(t, err, order.ErrNotFound)
}

func TestTypeChainKeepsExplicitState(t *testing.T) {
	o := twoLineOrder()
	o.State = "placed"

	state, ok, err := order.NewTypeChain().Resolve(context.Background(), o)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "placed", state)
}

func TestTypeChainDefaultsToDraft(t *testing.T) {
	state, ok, err := order.NewTypeChain().Resolve(context.Background(), twoLineOrder())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, order.StateDraft, state)
}

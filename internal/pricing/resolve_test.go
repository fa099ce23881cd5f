package pricing_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/commerce-pricing/internal/order"
	"github.com/noah-isme/commerce-pricing/internal/price"
	"github.com/noah-isme/commerce-pricing/internal/pricing"
	"github.com/noah-isme/commerce-pricing/internal/store"
)

func TestStorePriceChainCompletesCurrency(t *testing.T) {
	st := store.Store{ID: uuid.New(), Name: "Main", DefaultCurrency: "USD", IsDefault: true}
	proc := newProcessor(nil, nil, nil)
	proc.Prices = pricing.NewStorePriceChain(store.NewMemoryRepository(st))

	o := &order.Order{
		ID:           uuid.New(),
		StoreID:      st.ID,
		CurrencyCode: "USD",
		Items: []*order.Item{
			{ID: uuid.New(), Title: "Widget", Quantity: "1", UnitPrice: price.Price{Number: "2.00"}},
		},
	}
	require.NoError(t, proc.Refresh(context.Background(), o))

	assert.Equal(t, "USD", o.Items[0].UnitPrice.CurrencyCode)
	assert.True(t, o.TotalPrice.Equal(price.MustNew("2.00", "USD")), "got %s", o.TotalPrice)
}

func TestStorePriceChainPrefersItemPrice(t *testing.T) {
	proc := newProcessor(nil, nil, nil)
	proc.Prices = pricing.NewPriceChain()

	o := threeDollarOrder()
	require.NoError(t, proc.Refresh(context.Background(), o))
	assert.True(t, o.TotalPrice.Equal(price.MustNew("3.00", "USD")))
}

func TestPriceChainRejectsUnpriceableItem(t *testing.T) {
	proc := newProcessor(nil, nil, nil)
	proc.Prices = pricing.NewPriceChain()

	o := threeDollarOrder()
	o.Items[0].UnitPrice = price.Price{}
	require.Error(t, proc.Refresh(context.Background(), o))
}

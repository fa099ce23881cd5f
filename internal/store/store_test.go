package store_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/commerce-pricing/internal/order"
	"github.com/noah-isme/commerce-pricing/internal/store"
)

func TestChainPrefersOrderStore(t *testing.T) {
	explicit := store.Store{ID: uuid.New(), Name: "US", DefaultCurrency: "USD", CountryCode: "US"}
	fallback := store.Store{ID: uuid.New(), Name: "EU", DefaultCurrency: "EUR", CountryCode: "DE", IsDefault: true}
	c := store.NewChain(store.NewMemoryRepository(explicit, fallback))

	resolved, ok, err := c.Resolve(context.Background(), &order.Order{StoreID: explicit.ID})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "US", resolved.Name)
}

func TestChainFallsBackToDefault(t *testing.T) {
	fallback := store.Store{ID: uuid.New(), Name: "EU", DefaultCurrency: "EUR", IsDefault: true}
	c := store.NewChain(store.NewMemoryRepository(fallback))

	resolved, ok, err := c.Resolve(context.Background(), &order.Order{})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "EU", resolved.Name)

	// unknown explicit store also falls through to the default
	resolved, ok, err = c.Resolve(context.Background(), &order.Order{StoreID: uuid.New()})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "EU", resolved.Name)
}

func TestChainWithoutDefaultResolvesNothing(t *testing.T) {
	c := store.NewChain(store.NewMemoryRepository())
	_, ok, err := c.Resolve(context.Background(), &order.Order{})
	require.NoError(t, err)
	assert.False(t, ok)
}

package tasks_test

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/commerce-pricing/internal/condition"
	"github.com/noah-isme/commerce-pricing/internal/currency"
	"github.com/noah-isme/commerce-pricing/internal/lock"
	"github.com/noah-isme/commerce-pricing/internal/order"
	"github.com/noah-isme/commerce-pricing/internal/price"
	"github.com/noah-isme/commerce-pricing/internal/pricing"
	"github.com/noah-isme/commerce-pricing/internal/promotion"
	"github.com/noah-isme/commerce-pricing/internal/tasks"
	"github.com/noah-isme/commerce-pricing/internal/tax"
)

func newHandler(t *testing.T, orders order.Repository) *tasks.Handler {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	rounder := currency.Rounder{Currencies: currency.ISORepository()}
	conditions := condition.DefaultRegistry()
	return &tasks.Handler{
		Orders: orders,
		Processor: &pricing.Processor{
			Promotions: &promotion.Engine{
				Promotions: promotion.NewMemoryRepository(),
				Offers:     promotion.DefaultOfferRegistry(promotion.Deps{Rounder: rounder, Conditions: conditions}),
				Conditions: conditions,
			},
			Taxes: &tax.Engine{
				Types:   tax.NewMemoryTypeRepository(),
				Zones:   tax.NewMemoryZoneRepository(),
				Rates:   tax.NewRateChain(conditions),
				Rounder: rounder,
			},
			Rounder: rounder,
		},
		Locker: lock.Locker{R: client},
	}
}

func draftOrder() *order.Order {
	return &order.Order{
		ID:           uuid.New(),
		CurrencyCode: "USD",
		Items: []*order.Item{
			{ID: uuid.New(), Title: "Widget", Quantity: "2", UnitPrice: price.MustNew("4.50", "USD")},
		},
	}
}

func TestProcessTaskRefreshesAndSaves(t *testing.T) {
	orders := order.NewMemoryRepository()
	o := draftOrder()
	require.NoError(t, orders.Create(context.Background(), o))

	h := newHandler(t, orders)
	task, err := tasks.NewRecalculateTask(o.ID, "promotion.changed")
	require.NoError(t, err)

	require.NoError(t, h.ProcessTask(context.Background(), task))

	saved, err := orders.Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), saved.Version)
	assert.True(t, saved.TotalPrice.Equal(price.MustNew("9.00", "USD")), "got %s", saved.TotalPrice)
}

func TestProcessTaskMissingOrderIsDropped(t *testing.T) {
	h := newHandler(t, order.NewMemoryRepository())
	task, err := tasks.NewRecalculateTask(uuid.New(), "tax.changed")
	require.NoError(t, err)

	assert.NoError(t, h.ProcessTask(context.Background(), task))
}

func TestProcessTaskBadPayloadSkipsRetry(t *testing.T) {
	h := newHandler(t, order.NewMemoryRepository())

	err := h.ProcessTask(context.Background(), asynq.NewTask(tasks.TypeOrderRecalculate, []byte("not json")))
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

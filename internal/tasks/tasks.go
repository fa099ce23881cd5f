// Package tasks carries asynchronous order recalculation over asynq. Admin
// writes to promotions, taxes or currencies fan out one task per open order
// instead of recalculating inline.
package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/commerce-pricing/internal/events"
	"github.com/noah-isme/commerce-pricing/internal/order"
)

// TypeOrderRecalculate is the asynq task type for one order refresh.
const TypeOrderRecalculate = "pricing:order:recalculate"

// RecalculatePayload identifies the order to refresh and what caused it.
type RecalculatePayload struct {
	OrderID uuid.UUID `json:"order_id"`
	Trigger string    `json:"trigger"`
}

// NewRecalculateTask builds the asynq task for an order.
func NewRecalculateTask(orderID uuid.UUID, trigger string) (*asynq.Task, error) {
	payload, err := json.Marshal(RecalculatePayload{OrderID: orderID, Trigger: trigger})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeOrderRecalculate, payload, asynq.MaxRetry(5)), nil
}

// Enqueuer submits recalculation tasks.
type Enqueuer struct {
	Client *asynq.Client
	Orders order.Repository
	Logger zerolog.Logger
}

// EnqueueRecalculate schedules a refresh for one order.
func (e Enqueuer) EnqueueRecalculate(ctx context.Context, orderID uuid.UUID, trigger string) error {
	if e.Client == nil {
		return fmt.Errorf("tasks: asynq client not configured")
	}
	task, err := NewRecalculateTask(orderID, trigger)
	if err != nil {
		return err
	}
	if _, err := e.Client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("tasks: enqueue recalculate %s: %w", orderID, err)
	}
	return nil
}

// EnqueueOpenOrders schedules a refresh for every draft order. Individual
// enqueue failures are logged and skipped so one bad order does not block the
// rest.
func (e Enqueuer) EnqueueOpenOrders(ctx context.Context, trigger string) error {
	if e.Orders == nil {
		return fmt.Errorf("tasks: order repository not configured")
	}
	ids, err := e.Orders.ListDraftIDs(ctx)
	if err != nil {
		return fmt.Errorf("tasks: list draft orders: %w", err)
	}
	for _, id := range ids {
		if err := e.EnqueueRecalculate(ctx, id, trigger); err != nil {
			e.Logger.Error().Err(err).Str("order_id", id.String()).Msg("enqueue recalculate")
		}
	}
	return nil
}

// Notifier bridges the event bus to the task queue: any topic that affects
// pricing data triggers recalculation of open orders.
func (e Enqueuer) Notifier() events.Notifier {
	recalc := make(map[string]struct{})
	for _, topic := range events.RecalcTopics() {
		recalc[topic] = struct{}{}
	}
	return events.NotifierFunc(func(ctx context.Context, ev events.Event) error {
		if _, ok := recalc[ev.Topic]; !ok {
			return nil
		}
		return e.EnqueueOpenOrders(ctx, ev.Topic)
	})
}

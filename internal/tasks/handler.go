package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/commerce-pricing/internal/lock"
	"github.com/noah-isme/commerce-pricing/internal/obs"
	"github.com/noah-isme/commerce-pricing/internal/order"
	"github.com/noah-isme/commerce-pricing/internal/pricing"
)

// Handler processes recalculation tasks. A Redis lock serializes work per
// order; the optimistic version check on save catches anything that slips
// through, and a stale save is returned as an error so asynq retries against
// the fresh order state.
type Handler struct {
	Orders    order.Repository
	Processor *pricing.Processor
	Locker    lock.Locker
	LockTTL   time.Duration
	Logger    zerolog.Logger
}

// NewMux returns an asynq mux with the recalculation handler mounted.
func (h *Handler) NewMux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeOrderRecalculate, h.ProcessTask)
	return mux
}

// ProcessTask refreshes and persists one order.
func (h *Handler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload RecalculatePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("tasks: decode payload: %w: %w", err, asynq.SkipRetry)
	}

	start := time.Now()
	err := h.Locker.WithLock(ctx, lock.OrderKey(payload.OrderID), h.LockTTL, func(ctx context.Context) error {
		o, err := h.Orders.Get(ctx, payload.OrderID)
		if err != nil {
			return err
		}
		if err := h.Processor.Refresh(ctx, o); err != nil {
			return err
		}
		return h.Orders.Save(ctx, o)
	})

	trigger := payload.Trigger
	if trigger == "" {
		trigger = "task"
	}
	if obs.CalculationDuration != nil {
		obs.CalculationDuration.WithLabelValues(trigger).Observe(obs.DurationMillis(time.Since(start)))
	}

	switch {
	case err == nil:
		if obs.CalculationTotal != nil {
			obs.CalculationTotal.WithLabelValues(trigger, "ok").Inc()
		}
		return nil
	case errors.Is(err, order.ErrNotFound):
		// the order disappeared between enqueue and processing
		h.Logger.Warn().Str("order_id", payload.OrderID.String()).Msg("recalculate: order not found")
		return nil
	case errors.Is(err, order.ErrStaleVersion):
		if obs.StaleVersionTotal != nil {
			obs.StaleVersionTotal.Inc()
		}
		return err
	default:
		if obs.CalculationTotal != nil {
			obs.CalculationTotal.WithLabelValues(trigger, "error").Inc()
		}
		h.Logger.Error().Err(err).Str("order_id", payload.OrderID.String()).Msg("recalculate failed")
		return err
	}
}

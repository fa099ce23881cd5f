package promotion

import (
	"context"
	"fmt"
	"time"

	"github.com/noah-isme/commerce-pricing/internal/condition"
	"github.com/noah-isme/commerce-pricing/internal/obs"
	"github.com/noah-isme/commerce-pricing/internal/order"
)

// Engine applies every applicable promotion to an order, in descending
// priority order. It mutates only the order's adjustment lists; callers clear
// prior non-locked adjustments before each pass.
type Engine struct {
	Promotions Repository
	Offers     *OfferRegistry
	Conditions *condition.Registry
	Now        func() time.Time
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Apply runs the promotion pass.
func (e *Engine) Apply(ctx context.Context, o *order.Order) error {
	if e.Promotions == nil {
		return nil
	}
	promotions, err := e.Promotions.ListEnabled(ctx)
	if err != nil {
		return fmt.Errorf("promotion: list: %w", err)
	}
	now := e.now()
	for i := range promotions {
		promo := &promotions[i]
		if !promo.Available(now) {
			continue
		}
		group, err := e.Conditions.BuildGroup(promo.Conditions)
		if err != nil {
			return fmt.Errorf("promotion %s: %w", promo.ID, err)
		}
		ok, err := group.Evaluate(ctx, condition.Subject{Order: o})
		if err != nil {
			return fmt.Errorf("promotion %s: %w", promo.ID, err)
		}
		if !ok {
			continue
		}
		offer, err := e.Offers.Build(promo.Offer)
		if err != nil {
			return fmt.Errorf("promotion %s: %w", promo.ID, err)
		}
		before := adjustmentCount(o)
		if err := offer.Apply(ctx, o, promo); err != nil {
			return fmt.Errorf("promotion %s: %w", promo.ID, err)
		}
		if obs.PromotionAppliedTotal != nil {
			if n := adjustmentCount(o) - before; n > 0 {
				obs.PromotionAppliedTotal.WithLabelValues(promo.Offer.ID).Add(float64(n))
			}
		}
		if !promo.Stackable {
			break
		}
	}
	return nil
}

func adjustmentCount(o *order.Order) int {
	n := len(o.Adjustments)
	for _, it := range o.Items {
		n += len(it.Adjustments)
	}
	return n
}

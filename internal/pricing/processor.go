// Package pricing orchestrates a full order refresh: promotions first, then
// taxes, then the order total. A refresh is all-or-nothing; on any error the
// caller's order is left untouched.
package pricing

import (
	"context"
	"fmt"

	"github.com/noah-isme/commerce-pricing/internal/currency"
	"github.com/noah-isme/commerce-pricing/internal/order"
	"github.com/noah-isme/commerce-pricing/internal/promotion"
	"github.com/noah-isme/commerce-pricing/internal/tax"
)

// Processor recalculates an order's adjustments and totals. Prices is
// optional; when set, each item's unit price is resolved through the chain
// before anything else runs.
type Processor struct {
	Prices     *PriceChain
	Promotions *promotion.Engine
	Taxes      *tax.Engine
	Rounder    currency.Rounder
}

// Refresh clears non-locked adjustments, reapplies promotions and taxes in
// order, and recomputes the total. The work happens on a clone; the input
// order is only updated once the whole pass succeeds.
func (p *Processor) Refresh(ctx context.Context, o *order.Order) error {
	draft := o.Clone()
	draft.ClearAdjustments()

	if err := resolvePrices(ctx, p.Prices, draft); err != nil {
		return fmt.Errorf("resolve prices: %w", err)
	}
	if p.Promotions != nil {
		if err := p.Promotions.Apply(ctx, draft); err != nil {
			return fmt.Errorf("apply promotions: %w", err)
		}
	}
	if p.Taxes != nil {
		if err := p.Taxes.Apply(ctx, draft); err != nil {
			return fmt.Errorf("apply taxes: %w", err)
		}
	}
	if err := draft.RecalculateTotal(); err != nil {
		return fmt.Errorf("recalculate total: %w", err)
	}

	total, err := p.Rounder.Round(ctx, draft.TotalPrice)
	if err != nil {
		return fmt.Errorf("round total: %w", err)
	}
	draft.TotalPrice = total

	o.Items = draft.Items
	o.Adjustments = draft.Adjustments
	o.TotalPrice = draft.TotalPrice
	return nil
}

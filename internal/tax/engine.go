package tax

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/noah-isme/commerce-pricing/internal/calc"
	"github.com/noah-isme/commerce-pricing/internal/condition"
	"github.com/noah-isme/commerce-pricing/internal/currency"
	"github.com/noah-isme/commerce-pricing/internal/obs"
	"github.com/noah-isme/commerce-pricing/internal/order"
	"github.com/noah-isme/commerce-pricing/internal/price"
)

// ProfileProvider picks the customer profile used for zone matching.
type ProfileProvider func(*order.Order) *order.Profile

// BillingProfile is the default profile provider.
func BillingProfile(o *order.Order) *order.Profile { return o.BillingProfile }

// ShippingProfile taxes against the shipping address, falling back to billing
// when the order has none.
func ShippingProfile(o *order.Order) *order.Profile {
	if o.ShippingProfile != nil {
		return o.ShippingProfile
	}
	return o.BillingProfile
}

// Engine attaches tax adjustments to order items. Non-compound taxes are
// applied first against the item's promotion-adjusted total; compound taxes
// run in a second pass against the total including those non-compound taxes.
type Engine struct {
	Types   TypeRepository
	Zones   ZoneRepository
	Rates   *Chain
	// ZoneMatch decides whether a candidate zone covers the address; nil
	// means plain territory matching.
	ZoneMatch *ZoneChain
	Rounder   currency.Rounder
	Profile   ProfileProvider
	Now       func() time.Time
}

var territoryOnly = NewZoneChain()

func (e *Engine) matchZone(ctx context.Context, zone Zone, addr order.Address) (Zone, bool, error) {
	c := e.ZoneMatch
	if c == nil {
		c = territoryOnly
	}
	return c.Resolve(ctx, ZoneSubject{Zone: zone, Address: addr})
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Engine) profile(o *order.Order) *order.Profile {
	if e.Profile != nil {
		return e.Profile(o)
	}
	return BillingProfile(o)
}

// Apply runs both tax passes over the order. An order without a usable
// address, or with no matching zone, simply receives no tax adjustments.
func (e *Engine) Apply(ctx context.Context, o *order.Order) error {
	profile := e.profile(o)
	if profile == nil || profile.Address.CountryCode == "" {
		return nil
	}
	types, err := e.Types.ListEnabled(ctx)
	if err != nil {
		return fmt.Errorf("list tax types: %w", err)
	}
	if err := e.pass(ctx, o, profile.Address, types, false); err != nil {
		return err
	}
	return e.pass(ctx, o, profile.Address, types, true)
}

func (e *Engine) pass(ctx context.Context, o *order.Order, addr order.Address, types []Type, compound bool) error {
	// Snapshot item totals once per pass so every tax type in the pass is
	// computed on the same base.
	bases := make([]price.Price, len(o.Items))
	for i, it := range o.Items {
		base, err := it.AdjustedTotal()
		if err != nil {
			return err
		}
		bases[i] = base
	}

	for _, t := range types {
		if t.Compound != compound {
			continue
		}
		zone, err := e.Zones.Get(ctx, t.ZoneID)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("load tax zone %s: %w", t.ZoneID, err)
		}
		matched, ok, err := e.matchZone(ctx, zone, addr)
		if err != nil {
			return fmt.Errorf("match tax zone %q: %w", zone.Label, err)
		}
		if !ok {
			continue
		}
		for i, it := range o.Items {
			if err := e.applyRate(ctx, o, it, bases[i], matched, t); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Engine) applyRate(ctx context.Context, o *order.Order, it *order.Item, base price.Price, zone Zone, t Type) error {
	rate, ok, err := e.Rates.Resolve(ctx, RateSubject{
		Zone:    zone,
		Subject: condition.Subject{Order: o, Item: it},
	})
	if err != nil {
		return fmt.Errorf("resolve tax rate in zone %q: %w", zone.Label, err)
	}
	if !ok {
		return nil
	}
	pct := rate.PercentageAt(e.now())
	if pct == "" {
		return nil
	}
	amount, err := base.Multiply(pct)
	if err != nil {
		return err
	}
	amount, err = e.Rounder.RoundWithMode(ctx, amount, calc.RoundMode(t.RoundingMode))
	if err != nil {
		return err
	}
	if amount.IsZero() {
		return nil
	}
	label := rate.Label
	if label == "" {
		label = t.Label
	}
	it.AddAdjustment(price.Adjustment{
		Type:       price.AdjustmentTax,
		Label:      label,
		Amount:     amount,
		SourceID:   t.ID.String(),
		Percentage: pct,
		Included:   t.DisplayInclusive,
	})
	if obs.TaxAppliedTotal != nil {
		obs.TaxAppliedTotal.WithLabelValues(t.Label).Inc()
	}
	return nil
}

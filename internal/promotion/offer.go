package promotion

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/noah-isme/commerce-pricing/internal/calc"
	"github.com/noah-isme/commerce-pricing/internal/condition"
	"github.com/noah-isme/commerce-pricing/internal/currency"
	"github.com/noah-isme/commerce-pricing/internal/order"
	"github.com/noah-isme/commerce-pricing/internal/price"
)

// ErrUnknownOffer is returned when a definition names an unregistered offer id.
var ErrUnknownOffer = errors.New("promotion: unknown offer")

// Built-in offer ids.
const (
	IDOrderItemPercentageOff = "order_item_percentage_off"
	IDOrderItemFixedOff      = "order_item_fixed_amount_off"
	IDOrderPercentageOff     = "order_percentage_off"
	IDOrderFixedOff          = "order_fixed_amount_off"
	IDProductPercentageOff   = "product_percentage_off"
)

// Offer computes and attaches the adjustments a promotion grants. Offers with
// incomplete configuration are silent no-ops: a half-configured promotion must
// never block an order from being calculated.
type Offer interface {
	ID() string
	Apply(ctx context.Context, o *order.Order, promo *Promotion) error
}

// Deps carries the collaborators offers need.
type Deps struct {
	Rounder    currency.Rounder
	Conditions *condition.Registry
}

// OfferFactory builds a configured offer.
type OfferFactory func(deps Deps, cfg map[string]any) (Offer, error)

// OfferRegistry maps offer ids to factories, assembled at startup.
type OfferRegistry struct {
	factories map[string]OfferFactory
	deps      Deps
}

// NewOfferRegistry builds an empty registry over the given dependencies.
func NewOfferRegistry(deps Deps) *OfferRegistry {
	return &OfferRegistry{factories: make(map[string]OfferFactory), deps: deps}
}

// DefaultOfferRegistry registers all built-in offers.
func DefaultOfferRegistry(deps Deps) *OfferRegistry {
	r := NewOfferRegistry(deps)
	r.Register(IDOrderItemPercentageOff, newOrderItemPercentageOff)
	r.Register(IDOrderItemFixedOff, newOrderItemFixedOff)
	r.Register(IDOrderPercentageOff, newOrderPercentageOff)
	r.Register(IDOrderFixedOff, newOrderFixedOff)
	r.Register(IDProductPercentageOff, newProductPercentageOff)
	return r
}

// Register adds (or replaces) a factory under the given id.
func (r *OfferRegistry) Register(id string, f OfferFactory) {
	r.factories[id] = f
}

// Build constructs the offer a definition describes.
func (r *OfferRegistry) Build(def OfferDefinition) (Offer, error) {
	f, ok := r.factories[def.ID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOffer, def.ID)
	}
	return f(r.deps, def.Config)
}

func discountLabel(promo *Promotion) string {
	if strings.TrimSpace(promo.Label) != "" {
		return promo.Label
	}
	return "Discount"
}

func offerString(cfg map[string]any, key string) string {
	switch v := cfg[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

// offerPercentage reads a decimal fraction ("0.5" for 50%). Missing, zero or
// malformed values disable the offer.
func offerPercentage(cfg map[string]any) string {
	pct := offerString(cfg, "percentage")
	if !calc.Valid(pct) {
		return ""
	}
	if cmp, err := calc.Compare(pct, "0"); err != nil || cmp <= 0 {
		return ""
	}
	return pct
}

func offerItemFilter(deps Deps, cfg map[string]any) (*condition.Group, error) {
	raw, ok := cfg["conditions"]
	if !ok || deps.Conditions == nil {
		return nil, nil
	}
	defs, ok := raw.([]any)
	if !ok {
		return nil, nil
	}
	var group condition.GroupDefinition
	group.Operator = offerString(cfg, "condition_operator")
	for _, item := range defs {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		def := condition.Definition{ID: offerString(m, "id")}
		if c, ok := m["config"].(map[string]any); ok {
			def.Config = c
		}
		group.Conditions = append(group.Conditions, def)
	}
	g, err := deps.Conditions.BuildGroup(group)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// orderItemPercentageOff discounts each matching item by a percentage of its
// line total.
type orderItemPercentageOff struct {
	deps       Deps
	percentage string
	filter     *condition.Group
}

func newOrderItemPercentageOff(deps Deps, cfg map[string]any) (Offer, error) {
	filter, err := offerItemFilter(deps, cfg)
	if err != nil {
		return nil, err
	}
	return &orderItemPercentageOff{deps: deps, percentage: offerPercentage(cfg), filter: filter}, nil
}

func (of *orderItemPercentageOff) ID() string { return IDOrderItemPercentageOff }

func (of *orderItemPercentageOff) Apply(ctx context.Context, o *order.Order, promo *Promotion) error {
	if of.percentage == "" {
		return nil
	}
	for _, it := range o.Items {
		if of.filter != nil {
			ok, err := of.filter.Evaluate(ctx, condition.Subject{Order: o, Item: it})
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
		}
		total, err := it.TotalPrice()
		if err != nil {
			return err
		}
		amount, err := total.Multiply(of.percentage)
		if err != nil {
			return err
		}
		amount, err = of.deps.Rounder.Round(ctx, amount)
		if err != nil {
			return err
		}
		if amount.IsZero() {
			continue
		}
		discount, err := amount.Negate()
		if err != nil {
			return err
		}
		it.AddAdjustment(price.Adjustment{
			Type:       price.AdjustmentPromotion,
			Label:      discountLabel(promo),
			Amount:     discount,
			SourceID:   promo.ID.String(),
			Percentage: of.percentage,
		})
	}
	return nil
}

// orderItemFixedOff discounts each matching item by a fixed amount, clamped at
// the item total so a line never goes negative.
type orderItemFixedOff struct {
	deps   Deps
	amount *price.Price
	filter *condition.Group
}

func newOrderItemFixedOff(deps Deps, cfg map[string]any) (Offer, error) {
	filter, err := offerItemFilter(deps, cfg)
	if err != nil {
		return nil, err
	}
	of := &orderItemFixedOff{deps: deps, filter: filter}
	number := offerString(cfg, "number")
	code := offerString(cfg, "currency_code")
	if p, err := price.New(number, code); err == nil && p.IsPositive() {
		of.amount = &p
	}
	return of, nil
}

func (of *orderItemFixedOff) ID() string { return IDOrderItemFixedOff }

func (of *orderItemFixedOff) Apply(ctx context.Context, o *order.Order, promo *Promotion) error {
	if of.amount == nil || of.amount.CurrencyCode != o.CurrencyCode {
		return nil
	}
	for _, it := range o.Items {
		if of.filter != nil {
			ok, err := of.filter.Evaluate(ctx, condition.Subject{Order: o, Item: it})
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
		}
		total, err := it.TotalPrice()
		if err != nil {
			return err
		}
		amount := *of.amount
		if cmp, err := amount.Compare(total); err != nil {
			return err
		} else if cmp > 0 {
			amount = total
		}
		if amount.IsZero() {
			continue
		}
		discount, err := amount.Negate()
		if err != nil {
			return err
		}
		it.AddAdjustment(price.Adjustment{
			Type:     price.AdjustmentPromotion,
			Label:    discountLabel(promo),
			Amount:   discount,
			SourceID: promo.ID.String(),
		})
	}
	return nil
}

// orderPercentageOff discounts the order subtotal by a percentage, attached at
// order level.
type orderPercentageOff struct {
	deps       Deps
	percentage string
}

func newOrderPercentageOff(deps Deps, cfg map[string]any) (Offer, error) {
	return &orderPercentageOff{deps: deps, percentage: offerPercentage(cfg)}, nil
}

func (of *orderPercentageOff) ID() string { return IDOrderPercentageOff }

func (of *orderPercentageOff) Apply(ctx context.Context, o *order.Order, promo *Promotion) error {
	if of.percentage == "" {
		return nil
	}
	subtotal, err := o.Subtotal()
	if err != nil {
		return err
	}
	amount, err := subtotal.Multiply(of.percentage)
	if err != nil {
		return err
	}
	amount, err = of.deps.Rounder.Round(ctx, amount)
	if err != nil {
		return err
	}
	if amount.IsZero() {
		return nil
	}
	discount, err := amount.Negate()
	if err != nil {
		return err
	}
	o.AddAdjustment(price.Adjustment{
		Type:       price.AdjustmentPromotion,
		Label:      discountLabel(promo),
		Amount:     discount,
		SourceID:   promo.ID.String(),
		Percentage: of.percentage,
	})
	return nil
}

// orderFixedOff discounts the order subtotal by a fixed amount, clamped at the
// subtotal.
type orderFixedOff struct {
	deps   Deps
	amount *price.Price
}

func newOrderFixedOff(deps Deps, cfg map[string]any) (Offer, error) {
	of := &orderFixedOff{deps: deps}
	if p, err := price.New(offerString(cfg, "number"), offerString(cfg, "currency_code")); err == nil && p.IsPositive() {
		of.amount = &p
	}
	return of, nil
}

func (of *orderFixedOff) ID() string { return IDOrderFixedOff }

func (of *orderFixedOff) Apply(_ context.Context, o *order.Order, promo *Promotion) error {
	if of.amount == nil || of.amount.CurrencyCode != o.CurrencyCode {
		return nil
	}
	subtotal, err := o.Subtotal()
	if err != nil {
		return err
	}
	amount := *of.amount
	if cmp, err := amount.Compare(subtotal); err != nil {
		return err
	} else if cmp > 0 {
		amount = subtotal
	}
	if amount.IsZero() {
		return nil
	}
	discount, err := amount.Negate()
	if err != nil {
		return err
	}
	o.AddAdjustment(price.Adjustment{
		Type:     price.AdjustmentPromotion,
		Label:    discountLabel(promo),
		Amount:   discount,
		SourceID: promo.ID.String(),
	})
	return nil
}

// productPercentageOff discounts the unit price of every item referencing the
// configured product. All matching items receive the adjustment, not just the
// first one.
type productPercentageOff struct {
	deps       Deps
	percentage string
	productID  *uuid.UUID
}

func newProductPercentageOff(deps Deps, cfg map[string]any) (Offer, error) {
	of := &productPercentageOff{deps: deps, percentage: offerPercentage(cfg)}
	if id, err := uuid.Parse(offerString(cfg, "product_id")); err == nil {
		of.productID = &id
	}
	return of, nil
}

func (of *productPercentageOff) ID() string { return IDProductPercentageOff }

func (of *productPercentageOff) Apply(ctx context.Context, o *order.Order, promo *Promotion) error {
	if of.percentage == "" || of.productID == nil {
		return nil
	}
	for _, it := range o.Items {
		if it.ProductID == nil || *it.ProductID != *of.productID {
			continue
		}
		amount, err := it.UnitPrice.Multiply(of.percentage)
		if err != nil {
			return err
		}
		amount, err = of.deps.Rounder.Round(ctx, amount)
		if err != nil {
			return err
		}
		if amount.IsZero() {
			continue
		}
		discount, err := amount.Negate()
		if err != nil {
			return err
		}
		it.AddAdjustment(price.Adjustment{
			Type:       price.AdjustmentPromotion,
			Label:      discountLabel(promo),
			Amount:     discount,
			SourceID:   promo.ID.String(),
			Percentage: of.percentage,
		})
	}
	return nil
}

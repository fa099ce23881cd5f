// Package order holds the order snapshot the pricing engine calculates
// against. Orders are loaded, refreshed and saved atomically; the engine never
// persists anything itself.
package order

import (
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/commerce-pricing/internal/calc"
	"github.com/noah-isme/commerce-pricing/internal/price"
)

// Address is the tax-relevant part of a customer address.
type Address struct {
	CountryCode        string `json:"country_code"`
	AdministrativeArea string `json:"administrative_area,omitempty"`
	Locality           string `json:"locality,omitempty"`
	PostalCode         string `json:"postal_code,omitempty"`
}

// Profile carries a customer address. Orders hold a billing profile and
// optionally a shipping profile; tax resolution picks one via the profile
// provider.
type Profile struct {
	Address Address `json:"address"`
}

// Item is a single order line.
type Item struct {
	ID        uuid.UUID  `json:"id"`
	ProductID *uuid.UUID `json:"product_id,omitempty"`
	SKU       string     `json:"sku,omitempty"`
	Title     string     `json:"title"`
	// Quantity is a decimal string so fractional quantities (e.g. weights)
	// accumulate exactly.
	Quantity    string            `json:"quantity"`
	UnitPrice   price.Price       `json:"unit_price"`
	Adjustments price.Adjustments `json:"adjustments,omitempty"`
}

// TotalPrice returns unit price times quantity.
func (it *Item) TotalPrice() (price.Price, error) {
	return it.UnitPrice.Multiply(it.Quantity)
}

// AddAdjustment attaches an adjustment to the item.
func (it *Item) AddAdjustment(a price.Adjustment) {
	it.Adjustments = it.Adjustments.Append(a)
}

// ClearAdjustments removes all non-locked adjustments.
func (it *Item) ClearAdjustments() {
	it.Adjustments = it.Adjustments.Locked()
}

// AdjustedTotal returns the item total plus all of its adjustments.
func (it *Item) AdjustedTotal() (price.Price, error) {
	total, err := it.TotalPrice()
	if err != nil {
		return price.Price{}, err
	}
	adj, err := it.Adjustments.Total(total.CurrencyCode)
	if err != nil {
		return price.Price{}, err
	}
	return total.Add(adj)
}

// Order is a calculation snapshot. Version supports the optimistic concurrency
// check at the persistence boundary; the engine itself performs no locking.
type Order struct {
	ID              uuid.UUID         `json:"id"`
	StoreID         uuid.UUID         `json:"store_id"`
	State           string            `json:"state"`
	Email           string            `json:"email,omitempty"`
	CurrencyCode    string            `json:"currency_code"`
	BillingProfile  *Profile          `json:"billing_profile,omitempty"`
	ShippingProfile *Profile          `json:"shipping_profile,omitempty"`
	Items           []*Item           `json:"items"`
	Adjustments     price.Adjustments `json:"adjustments,omitempty"`
	TotalPrice      price.Price       `json:"total_price"`
	Version         int64             `json:"version"`
	PlacedAt        *time.Time        `json:"placed_at,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// GetItems returns the order's line items.
func (o *Order) GetItems() []*Item { return o.Items }

// AddAdjustment attaches an order-level adjustment.
func (o *Order) AddAdjustment(a price.Adjustment) {
	o.Adjustments = o.Adjustments.Append(a)
}

// ClearAdjustments removes all non-locked adjustments from the order and its
// items. Callers run this before every recalculation pass to avoid stacking
// duplicates.
func (o *Order) ClearAdjustments() {
	o.Adjustments = o.Adjustments.Locked()
	for _, it := range o.Items {
		it.ClearAdjustments()
	}
}

// CollectAdjustments returns item-level then order-level adjustments.
func (o *Order) CollectAdjustments() price.Adjustments {
	var out price.Adjustments
	for _, it := range o.Items {
		out = append(out, it.Adjustments...)
	}
	return append(out, o.Adjustments...)
}

// Subtotal sums the item totals before any adjustment.
func (o *Order) Subtotal() (price.Price, error) {
	total := price.Zero(o.CurrencyCode)
	for _, it := range o.Items {
		line, err := it.TotalPrice()
		if err != nil {
			return price.Price{}, err
		}
		total, err = total.Add(line)
		if err != nil {
			return price.Price{}, err
		}
	}
	return total, nil
}

// TotalQuantity sums item quantities with exact decimal accumulation.
func (o *Order) TotalQuantity() (string, error) {
	total := "0"
	for _, it := range o.Items {
		sum, err := calc.Add(total, it.Quantity)
		if err != nil {
			return "", err
		}
		total = sum
	}
	return total, nil
}

// RecalculateTotal recomputes TotalPrice as subtotal plus every adjustment.
// Display-inclusive adjustments participate like any other; the Included flag
// only drives presentation, which is outside this engine.
func (o *Order) RecalculateTotal() error {
	subtotal, err := o.Subtotal()
	if err != nil {
		return err
	}
	adj, err := o.CollectAdjustments().Total(o.CurrencyCode)
	if err != nil {
		return err
	}
	total, err := subtotal.Add(adj)
	if err != nil {
		return err
	}
	o.TotalPrice = total
	return nil
}

// Clone deep-copies the order so a refresh pass can work on a scratch copy and
// commit only on success.
func (o *Order) Clone() *Order {
	dup := *o
	dup.Items = make([]*Item, len(o.Items))
	for i, it := range o.Items {
		item := *it
		item.Adjustments = append(price.Adjustments(nil), it.Adjustments...)
		dup.Items[i] = &item
	}
	dup.Adjustments = append(price.Adjustments(nil), o.Adjustments...)
	if o.BillingProfile != nil {
		p := *o.BillingProfile
		dup.BillingProfile = &p
	}
	if o.ShippingProfile != nil {
		p := *o.ShippingProfile
		dup.ShippingProfile = &p
	}
	return &dup
}

package pricing

import (
	"context"
	"fmt"

	"github.com/noah-isme/commerce-pricing/internal/calc"
	"github.com/noah-isme/commerce-pricing/internal/chain"
	"github.com/noah-isme/commerce-pricing/internal/order"
	"github.com/noah-isme/commerce-pricing/internal/price"
	"github.com/noah-isme/commerce-pricing/internal/store"
)

// PriceSubject is what a price resolver sees: the item being priced and the
// order it belongs to.
type PriceSubject struct {
	Order *order.Order
	Item  *order.Item
}

// PriceChain resolves an item's unit price.
type PriceChain = chain.Chain[PriceSubject, price.Price]

// ItemPriceResolver resolves to the price recorded on the item itself,
// deferring when the item carries none.
type ItemPriceResolver struct{}

func (ItemPriceResolver) Resolve(_ context.Context, s PriceSubject) (price.Price, bool, error) {
	if s.Item == nil || s.Item.UnitPrice.Number == "" {
		return price.Price{}, false, nil
	}
	return s.Item.UnitPrice, true, nil
}

// NewPriceChain builds the standard price chain: the item's own price only.
func NewPriceChain() *PriceChain {
	return chain.New[PriceSubject, price.Price](ItemPriceResolver{})
}

// NewStorePriceChain resolves currency-less item prices against the order's
// store before falling back to the item's own price.
func NewStorePriceChain(stores store.Repository) *PriceChain {
	return chain.New[PriceSubject, price.Price](
		StorePriceResolver{Stores: stores},
		ItemPriceResolver{},
	)
}

// resolvePrices materializes every item's unit price through the chain. An
// item the chain cannot price is an error: nothing downstream can work with a
// priceless item.
func resolvePrices(ctx context.Context, c *PriceChain, o *order.Order) error {
	if c == nil {
		return nil
	}
	for _, it := range o.Items {
		p, ok, err := c.Resolve(ctx, PriceSubject{Order: o, Item: it})
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: no price for item %s", calc.ErrInvalidNumber, it.ID)
		}
		it.UnitPrice = p
	}
	return nil
}

// StorePriceResolver prices items off the store's currency when an item has a
// number but no currency, completing partial input instead of rejecting it.
type StorePriceResolver struct {
	Stores store.Repository
}

func (r StorePriceResolver) Resolve(ctx context.Context, s PriceSubject) (price.Price, bool, error) {
	if r.Stores == nil || s.Item == nil || s.Order == nil {
		return price.Price{}, false, nil
	}
	if s.Item.UnitPrice.Number == "" || s.Item.UnitPrice.CurrencyCode != "" {
		return price.Price{}, false, nil
	}
	st, err := r.Stores.Get(ctx, s.Order.StoreID)
	if err != nil {
		return price.Price{}, false, nil
	}
	return price.Price{Number: s.Item.UnitPrice.Number, CurrencyCode: st.DefaultCurrency}, true, nil
}

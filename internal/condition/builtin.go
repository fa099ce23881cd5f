package condition

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/noah-isme/commerce-pricing/internal/calc"
	"github.com/noah-isme/commerce-pricing/internal/order"
)

// Built-in condition ids.
const (
	IDOrderItemQuantity = "order_item_quantity"
	IDOrderTotalPrice   = "order_total_price"
	IDOrderCurrency     = "order_currency"
	IDOrderItemProduct  = "order_item_product"
)

// orderItemQuantity sums the quantity of matching items across the order and
// compares it against a threshold. When a nested item filter is configured,
// only items passing it count toward the sum.
type orderItemQuantity struct {
	operator string
	quantity string
	filter   *Group
}

func newOrderItemQuantity(r *Registry, cfg map[string]any) (Condition, error) {
	c := &orderItemQuantity{
		operator: cfgString(cfg, "operator"),
		quantity: cfgString(cfg, "quantity"),
	}
	if c.operator == "" {
		return nil, fmt.Errorf("%w: operator is required", ErrInvalidConfig)
	}
	if _, err := CompareDecimal(c.operator, "0", "0"); err != nil {
		return nil, err
	}
	if !calc.Valid(c.quantity) {
		return nil, fmt.Errorf("%w: quantity %q", ErrInvalidConfig, c.quantity)
	}
	filter, err := cfgGroup(r, cfg, "conditions")
	if err != nil {
		return nil, err
	}
	c.filter = filter
	return c, nil
}

func (c *orderItemQuantity) ID() string { return IDOrderItemQuantity }

func (c *orderItemQuantity) Evaluate(ctx context.Context, s Subject) (bool, error) {
	if s.Order == nil {
		return false, nil
	}
	total := "0"
	for _, it := range s.Order.Items {
		if c.filter != nil {
			ok, err := c.filter.Evaluate(ctx, Subject{Order: s.Order, Item: it})
			if err != nil {
				return false, err
			}
			if !ok {
				continue
			}
		}
		sum, err := calc.Add(total, it.Quantity)
		if err != nil {
			return false, err
		}
		total = sum
	}
	return CompareDecimal(c.operator, total, c.quantity)
}

// orderTotalPrice compares the order subtotal against a configured amount.
type orderTotalPrice struct {
	operator string
	number   string
	currency string
}

func newOrderTotalPrice(_ *Registry, cfg map[string]any) (Condition, error) {
	c := &orderTotalPrice{
		operator: cfgString(cfg, "operator"),
		number:   cfgString(cfg, "number"),
		currency: strings.ToUpper(cfgString(cfg, "currency_code")),
	}
	if _, err := CompareDecimal(c.operator, "0", "0"); err != nil {
		return nil, err
	}
	if !calc.Valid(c.number) {
		return nil, fmt.Errorf("%w: number %q", ErrInvalidConfig, c.number)
	}
	return c, nil
}

func (c *orderTotalPrice) ID() string { return IDOrderTotalPrice }

func (c *orderTotalPrice) Evaluate(_ context.Context, s Subject) (bool, error) {
	if s.Order == nil {
		return false, nil
	}
	if c.currency != "" && c.currency != s.Order.CurrencyCode {
		return false, nil
	}
	subtotal, err := s.Order.Subtotal()
	if err != nil {
		return false, err
	}
	return CompareDecimal(c.operator, subtotal.Number, c.number)
}

// orderCurrency passes when the order currency is in the configured set.
type orderCurrency struct {
	codes map[string]struct{}
}

func newOrderCurrency(_ *Registry, cfg map[string]any) (Condition, error) {
	codes := cfgStrings(cfg, "currencies")
	if len(codes) == 0 {
		return nil, fmt.Errorf("%w: currencies are required", ErrInvalidConfig)
	}
	c := &orderCurrency{codes: make(map[string]struct{}, len(codes))}
	for _, code := range codes {
		c.codes[strings.ToUpper(strings.TrimSpace(code))] = struct{}{}
	}
	return c, nil
}

func (c *orderCurrency) ID() string { return IDOrderCurrency }

func (c *orderCurrency) Evaluate(_ context.Context, s Subject) (bool, error) {
	if s.Order == nil {
		return false, nil
	}
	_, ok := c.codes[s.Order.CurrencyCode]
	return ok, nil
}

// orderItemProduct scopes to items referencing one of the configured products.
// At item scope it checks the single item; at order scope it passes when any
// item matches.
type orderItemProduct struct {
	products map[uuid.UUID]struct{}
}

func newOrderItemProduct(_ *Registry, cfg map[string]any) (Condition, error) {
	raw := cfgStrings(cfg, "product_ids")
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: product_ids are required", ErrInvalidConfig)
	}
	c := &orderItemProduct{products: make(map[uuid.UUID]struct{}, len(raw))}
	for _, s := range raw {
		id, err := uuid.Parse(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("%w: product id %q", ErrInvalidConfig, s)
		}
		c.products[id] = struct{}{}
	}
	return c, nil
}

func (c *orderItemProduct) ID() string { return IDOrderItemProduct }

func (c *orderItemProduct) Evaluate(_ context.Context, s Subject) (bool, error) {
	if s.Item != nil {
		return c.matches(s.Item), nil
	}
	if s.Order == nil {
		return false, nil
	}
	for _, it := range s.Order.Items {
		if c.matches(it) {
			return true, nil
		}
	}
	return false, nil
}

func (c *orderItemProduct) matches(it *order.Item) bool {
	if it.ProductID == nil {
		return false
	}
	_, ok := c.products[*it.ProductID]
	return ok
}

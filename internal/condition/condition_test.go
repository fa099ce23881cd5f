package condition_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/commerce-pricing/internal/condition"
	"github.com/noah-isme/commerce-pricing/internal/order"
	"github.com/noah-isme/commerce-pricing/internal/price"
)

type staticCondition struct {
	result bool
	calls  int
}

func (s *staticCondition) ID() string { return "static" }

func (s *staticCondition) Evaluate(context.Context, condition.Subject) (bool, error) {
	s.calls++
	return s.result, nil
}

func TestEmptyGroupIsTrue(t *testing.T) {
	subject := condition.Subject{Order: &order.Order{CurrencyCode: "USD"}}

	for _, op := range []condition.GroupOperator{condition.And, condition.Or} {
		ok, err := condition.Group{Operator: op}.Evaluate(context.Background(), subject)
		require.NoError(t, err)
		assert.True(t, ok, "empty %s group must evaluate true", op)
	}
}

func TestGroupShortCircuit(t *testing.T) {
	ctx := context.Background()
	subject := condition.Subject{}

	failing := &staticCondition{result: false}
	unreached := &staticCondition{result: true}
	ok, err := condition.Group{Operator: condition.And, Conditions: []condition.Condition{failing, unreached}}.Evaluate(ctx, subject)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, unreached.calls)

	passing := &staticCondition{result: true}
	skipped := &staticCondition{result: false}
	ok, err = condition.Group{Operator: condition.Or, Conditions: []condition.Condition{passing, skipped}}.Evaluate(ctx, subject)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0, skipped.calls)
}

func TestCompareDecimal(t *testing.T) {
	ok, err := condition.CompareDecimal(">=", "3.0", "3")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = condition.CompareDecimal("<", "2.99", "3")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = condition.CompareDecimal("!=", "1", "2")
	require.ErrorIs(t, err, condition.ErrUnsupportedOperator)
}

func quantityOrder() *order.Order {
	productA := uuid.New()
	return &order.Order{
		CurrencyCode: "USD",
		Items: []*order.Item{
			{ProductID: &productA, Quantity: "2", UnitPrice: price.MustNew("3.00", "USD")},
			{Quantity: "1.5", UnitPrice: price.MustNew("10.00", "USD")},
		},
	}
}

func TestOrderItemQuantity(t *testing.T) {
	registry := condition.DefaultRegistry()
	cond, err := registry.Build(condition.Definition{
		ID:     condition.IDOrderItemQuantity,
		Config: map[string]any{"operator": ">=", "quantity": "3.5"},
	})
	require.NoError(t, err)

	ok, err := cond.Evaluate(context.Background(), condition.Subject{Order: quantityOrder()})
	require.NoError(t, err)
	assert.True(t, ok, "2 + 1.5 meets the 3.5 threshold")

	strict, err := registry.Build(condition.Definition{
		ID:     condition.IDOrderItemQuantity,
		Config: map[string]any{"operator": ">", "quantity": "3.5"},
	})
	require.NoError(t, err)
	ok, err = strict.Evaluate(context.Background(), condition.Subject{Order: quantityOrder()})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOrderItemQuantityWithItemFilter(t *testing.T) {
	o := quantityOrder()
	productA := *o.Items[0].ProductID

	cond, err := condition.DefaultRegistry().Build(condition.Definition{
		ID: condition.IDOrderItemQuantity,
		Config: map[string]any{
			"operator": "==",
			"quantity": "2",
			"conditions": []any{
				map[string]any{
					"id":     condition.IDOrderItemProduct,
					"config": map[string]any{"product_ids": []any{productA.String()}},
				},
			},
		},
	})
	require.NoError(t, err)

	ok, err := cond.Evaluate(context.Background(), condition.Subject{Order: o})
	require.NoError(t, err)
	assert.True(t, ok, "only the scoped item's quantity counts")
}

func TestOrderItemQuantityRejectsBadOperator(t *testing.T) {
	_, err := condition.DefaultRegistry().Build(condition.Definition{
		ID:     condition.IDOrderItemQuantity,
		Config: map[string]any{"operator": "~", "quantity": "1"},
	})
	require.ErrorIs(t, err, condition.ErrUnsupportedOperator)
}

func TestOrderTotalPrice(t *testing.T) {
	cond, err := condition.DefaultRegistry().Build(condition.Definition{
		ID:     condition.IDOrderTotalPrice,
		Config: map[string]any{"operator": ">=", "number": "21", "currency_code": "USD"},
	})
	require.NoError(t, err)

	ok, err := cond.Evaluate(context.Background(), condition.Subject{Order: quantityOrder()})
	require.NoError(t, err)
	assert.True(t, ok, "subtotal 6 + 15 = 21")
}

func TestOrderCurrency(t *testing.T) {
	cond, err := condition.DefaultRegistry().Build(condition.Definition{
		ID:     condition.IDOrderCurrency,
		Config: map[string]any{"currencies": []any{"usd", "EUR"}},
	})
	require.NoError(t, err)

	ok, err := cond.Evaluate(context.Background(), condition.Subject{Order: quantityOrder()})
	require.NoError(t, err)
	assert.True(t, ok)

	idr := &order.Order{CurrencyCode: "IDR"}
	ok, err = cond.Evaluate(context.Background(), condition.Subject{Order: idr})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUnknownConditionID(t *testing.T) {
	_, err := condition.DefaultRegistry().Build(condition.Definition{ID: "no_such_condition"})
	require.ErrorIs(t, err, condition.ErrUnknownCondition)
}

func TestBuildGroupDefaultsToAnd(t *testing.T) {
	g, err := condition.DefaultRegistry().BuildGroup(condition.GroupDefinition{
		Conditions: []condition.Definition{
			{ID: condition.IDOrderCurrency, Config: map[string]any{"currencies": []any{"USD"}}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, condition.And, g.Operator)
}

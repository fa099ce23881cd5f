// Package condition implements the boolean predicates promotions and tax types
// are gated on, combined through AND/OR groups. Condition types are registered
// in an explicit registry at startup and built from persisted definitions.
package condition

import (
	"context"
	"errors"
	"fmt"

	"github.com/noah-isme/commerce-pricing/internal/calc"
	"github.com/noah-isme/commerce-pricing/internal/order"
)

var (
	// ErrUnknownCondition is returned when a definition names an unregistered id.
	ErrUnknownCondition = errors.New("condition: unknown condition")
	// ErrInvalidConfig is returned when a definition's config is malformed.
	ErrInvalidConfig = errors.New("condition: invalid config")
	// ErrUnsupportedOperator is returned for a comparison operator outside
	// > >= < <= ==.
	ErrUnsupportedOperator = errors.New("condition: unsupported operator")
)

// Subject is what a condition evaluates against: always an order, and a
// specific item when the condition is applied at item scope.
type Subject struct {
	Order *order.Order
	Item  *order.Item
}

// Condition is a configured boolean predicate. Configuration is fixed at
// construction time.
type Condition interface {
	ID() string
	Evaluate(ctx context.Context, s Subject) (bool, error)
}

// GroupOperator combines the conditions of a group.
type GroupOperator string

const (
	// And requires every condition to pass.
	And GroupOperator = "AND"
	// Or requires at least one condition to pass.
	Or GroupOperator = "OR"
)

// Group combines conditions under one operator. An empty group evaluates to
// true for both operators: no restriction must never exclude everything.
type Group struct {
	Operator   GroupOperator
	Conditions []Condition
}

// Evaluate applies the group with short-circuit semantics.
func (g Group) Evaluate(ctx context.Context, s Subject) (bool, error) {
	if len(g.Conditions) == 0 {
		return true, nil
	}
	switch g.Operator {
	case Or:
		for _, c := range g.Conditions {
			ok, err := c.Evaluate(ctx, s)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case And, "":
		for _, c := range g.Conditions {
			ok, err := c.Evaluate(ctx, s)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	default:
		return false, fmt.Errorf("%w: group operator %q", ErrInvalidConfig, g.Operator)
	}
}

// CompareDecimal applies a comparison operator to two decimal strings.
func CompareDecimal(operator, a, b string) (bool, error) {
	cmp, err := calc.Compare(a, b)
	if err != nil {
		return false, err
	}
	switch operator {
	case ">":
		return cmp > 0, nil
	case ">=":
		return cmp >= 0, nil
	case "<":
		return cmp < 0, nil
	case "<=":
		return cmp <= 0, nil
	case "==":
		return cmp == 0, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrUnsupportedOperator, operator)
	}
}

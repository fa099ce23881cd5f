package order

import (
	"context"

	"github.com/noah-isme/commerce-pricing/internal/chain"
)

// StateDraft is the lifecycle state recalculation targets; placed orders keep
// their priced snapshot until explicitly recalculated.
const StateDraft = "draft"

// TypeChain resolves the lifecycle state a new order starts in.
type TypeChain = chain.Chain[*Order, string]

// ExplicitTypeResolver resolves to the state already set on the order,
// deferring when it carries none.
type ExplicitTypeResolver struct{}

func (ExplicitTypeResolver) Resolve(_ context.Context, o *Order) (string, bool, error) {
	if o == nil || o.State == "" {
		return "", false, nil
	}
	return o.State, true, nil
}

// DefaultTypeResolver resolves every order to a fixed state.
type DefaultTypeResolver struct {
	State string
}

func (r DefaultTypeResolver) Resolve(context.Context, *Order) (string, bool, error) {
	if r.State == "" {
		return StateDraft, true, nil
	}
	return r.State, true, nil
}

// NewTypeChain builds the standard chain: the order's explicit state, then the
// draft default.
func NewTypeChain() *TypeChain {
	return chain.New[*Order, string](ExplicitTypeResolver{}, DefaultTypeResolver{})
}

// Package chain implements the first-match resolver chain used for store,
// order-type, price, tax-zone and tax-rate resolution. Every chain follows the
// same contract: resolvers run in caller-supplied order and the first one that
// does not defer wins.
package chain

import (
	"context"
	"errors"
)

// ErrStop halts resolution without producing a result. A resolver returns it
// when it can decide that nothing applies and later resolvers must not run;
// the chain reports not-found rather than surfacing the sentinel.
var ErrStop = errors.New("chain: resolution stopped")

// Resolver resolves a subject into a result. Returning ok=false defers to the
// next resolver in the chain.
type Resolver[S, T any] interface {
	Resolve(ctx context.Context, subject S) (T, bool, error)
}

// Func adapts a plain function into a Resolver.
type Func[S, T any] func(ctx context.Context, subject S) (T, bool, error)

// Resolve implements Resolver.
func (f Func[S, T]) Resolve(ctx context.Context, subject S) (T, bool, error) {
	return f(ctx, subject)
}

// Chain is an ordered list of resolvers. The zero value and an empty chain
// resolve to not-found without error.
type Chain[S, T any] struct {
	resolvers []Resolver[S, T]
}

// New builds a chain over the given resolvers. Ordering is the caller's
// responsibility, typically descending priority.
func New[S, T any](resolvers ...Resolver[S, T]) *Chain[S, T] {
	return &Chain[S, T]{resolvers: resolvers}
}

// Append returns the chain with extra resolvers added at the end.
func (c *Chain[S, T]) Append(resolvers ...Resolver[S, T]) *Chain[S, T] {
	c.resolvers = append(c.resolvers, resolvers...)
	return c
}

// Resolve walks the chain and returns the first non-deferred result. When all
// resolvers defer, or one stops resolution with ErrStop, it reports ok=false.
func (c *Chain[S, T]) Resolve(ctx context.Context, subject S) (T, bool, error) {
	var zero T
	if c == nil {
		return zero, false, nil
	}
	for _, r := range c.resolvers {
		result, ok, err := r.Resolve(ctx, subject)
		if err != nil {
			if errors.Is(err, ErrStop) {
				return zero, false, nil
			}
			return zero, false, err
		}
		if ok {
			return result, true, nil
		}
	}
	return zero, false, nil
}

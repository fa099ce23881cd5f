// Package store holds the store entity and its resolver chain. The resolved
// store supplies the default currency and the tax territory an order is
// calculated under.
package store

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/noah-isme/commerce-pricing/internal/chain"
	"github.com/noah-isme/commerce-pricing/internal/order"
)

// ErrNotFound is returned when a store id has no entry.
var ErrNotFound = errors.New("store: not found")

// Store is a sales channel with its own defaults.
type Store struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	DefaultCurrency string    `json:"default_currency"`
	CountryCode     string    `json:"country_code"`
	// PricesIncludeTax marks stores whose catalog prices already carry tax.
	PricesIncludeTax bool `json:"prices_include_tax"`
	IsDefault        bool `json:"is_default"`
}

// Repository provides read access to stores.
type Repository interface {
	Get(ctx context.Context, id uuid.UUID) (Store, error)
	Default(ctx context.Context) (Store, error)
}

// Resolver resolves the store an order belongs to, deferring when it cannot.
type Resolver = chain.Resolver[*order.Order, Store]

// Chain is the store resolver chain.
type Chain = chain.Chain[*order.Order, Store]

// NewChain builds the standard chain: the order's own store first, then the
// configured default.
func NewChain(repo Repository) *Chain {
	return chain.New[*order.Order, Store](
		OrderStoreResolver{Stores: repo},
		DefaultStoreResolver{Stores: repo},
	)
}

// OrderStoreResolver resolves the store referenced by the order, deferring
// when the order carries no store id.
type OrderStoreResolver struct {
	Stores Repository
}

// Resolve implements chain.Resolver.
func (r OrderStoreResolver) Resolve(ctx context.Context, o *order.Order) (Store, bool, error) {
	if o == nil || o.StoreID == uuid.Nil {
		return Store{}, false, nil
	}
	s, err := r.Stores.Get(ctx, o.StoreID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Store{}, false, nil
		}
		return Store{}, false, err
	}
	return s, true, nil
}

// DefaultStoreResolver is the chain fallback returning the default store.
type DefaultStoreResolver struct {
	Stores Repository
}

// Resolve implements chain.Resolver.
func (r DefaultStoreResolver) Resolve(ctx context.Context, _ *order.Order) (Store, bool, error) {
	s, err := r.Stores.Default(ctx)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Store{}, false, nil
		}
		return Store{}, false, err
	}
	return s, true, nil
}

// MemoryRepository is an in-memory Repository for tests.
type MemoryRepository struct {
	mu     sync.RWMutex
	stores map[uuid.UUID]Store
}

// NewMemoryRepository builds a repository holding the given stores.
func NewMemoryRepository(stores ...Store) *MemoryRepository {
	r := &MemoryRepository{stores: make(map[uuid.UUID]Store, len(stores))}
	for _, s := range stores {
		r.stores[s.ID] = s
	}
	return r
}

// Get implements Repository.
func (r *MemoryRepository) Get(_ context.Context, id uuid.UUID) (Store, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.stores[id]
	if !ok {
		return Store{}, ErrNotFound
	}
	return s, nil
}

// Default implements Repository.
func (r *MemoryRepository) Default(_ context.Context) (Store, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.stores {
		if s.IsDefault {
			return s, nil
		}
	}
	return Store{}, ErrNotFound
}

// Put inserts or replaces a store.
func (r *MemoryRepository) Put(_ context.Context, s Store) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stores[s.ID] = s
	return nil
}

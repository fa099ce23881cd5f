// Package currency holds the currency table and the currency-aware rounder.
package currency

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
)

// ErrNotFound is returned when a currency code has no entry in the table.
var ErrNotFound = errors.New("currency: not found")

// Currency describes a single ISO 4217 currency. Seeded at install time and
// editable by administrators; read-only during calculation.
type Currency struct {
	Code           string `json:"code"`
	NumericCode    string `json:"numeric_code"`
	Name           string `json:"name"`
	Symbol         string `json:"symbol"`
	FractionDigits int32  `json:"fraction_digits"`
	// RoundingStep, when not "0", overrides fraction-digit rounding with
	// nearest-multiple rounding (e.g. "0.05" for CHF cash amounts).
	RoundingStep string `json:"rounding_step"`
}

// Repository provides read access to the currency table.
type Repository interface {
	// Get returns the currency for the given code, or ErrNotFound.
	Get(ctx context.Context, code string) (Currency, error)
	// List returns all known currencies ordered by code.
	List(ctx context.Context) ([]Currency, error)
}

// MemoryRepository is an in-memory Repository used by tests and the stateless
// preview path when no database is configured.
type MemoryRepository struct {
	mu         sync.RWMutex
	currencies map[string]Currency
}

// NewMemoryRepository builds a repository holding the given currencies.
func NewMemoryRepository(currencies ...Currency) *MemoryRepository {
	repo := &MemoryRepository{currencies: make(map[string]Currency, len(currencies))}
	for _, c := range currencies {
		repo.currencies[strings.ToUpper(c.Code)] = c
	}
	return repo
}

// Get implements Repository.
func (r *MemoryRepository) Get(_ context.Context, code string) (Currency, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.currencies[strings.ToUpper(code)]
	if !ok {
		return Currency{}, ErrNotFound
	}
	return c, nil
}

// List implements Repository.
func (r *MemoryRepository) List(_ context.Context) ([]Currency, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Currency, 0, len(r.currencies))
	for _, c := range r.currencies {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// Put inserts or replaces a currency.
func (r *MemoryRepository) Put(_ context.Context, c Currency) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.currencies[strings.ToUpper(c.Code)] = c
	return nil
}

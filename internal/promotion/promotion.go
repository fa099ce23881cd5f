// Package promotion implements promotions and their offers: the strategies
// that turn a matching order into promotion adjustments.
package promotion

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/commerce-pricing/internal/condition"
)

// ErrNotFound is returned when a promotion id has no entry.
var ErrNotFound = errors.New("promotion: not found")

// OfferDefinition is the persisted form of an offer: a registered id plus its
// configuration.
type OfferDefinition struct {
	ID     string         `json:"id"`
	Config map[string]any `json:"config,omitempty"`
}

// Promotion gates an offer behind a condition group, a validity window and an
// enabled flag. Priority orders application; a non-stackable promotion stops
// the pass after it applies.
type Promotion struct {
	ID          uuid.UUID                 `json:"id"`
	Label       string                    `json:"label"`
	Description string                    `json:"description,omitempty"`
	Enabled     bool                      `json:"enabled"`
	Priority    int                       `json:"priority"`
	Stackable   bool                      `json:"stackable"`
	StartsAt    *time.Time                `json:"starts_at,omitempty"`
	EndsAt      *time.Time                `json:"ends_at,omitempty"`
	Offer       OfferDefinition           `json:"offer"`
	Conditions  condition.GroupDefinition `json:"conditions"`
	CreatedAt   time.Time                 `json:"created_at"`
	UpdatedAt   time.Time                 `json:"updated_at"`
}

// Available reports whether the promotion is inside its validity window.
func (p *Promotion) Available(now time.Time) bool {
	if !p.Enabled {
		return false
	}
	if p.StartsAt != nil && now.Before(*p.StartsAt) {
		return false
	}
	if p.EndsAt != nil && now.After(*p.EndsAt) {
		return false
	}
	return true
}

// Repository persists promotions.
type Repository interface {
	Get(ctx context.Context, id uuid.UUID) (Promotion, error)
	ListEnabled(ctx context.Context) ([]Promotion, error)
	List(ctx context.Context) ([]Promotion, error)
	Upsert(ctx context.Context, p Promotion) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// MemoryRepository is an in-memory Repository for tests and previews.
type MemoryRepository struct {
	mu         sync.RWMutex
	promotions map[uuid.UUID]Promotion
}

// NewMemoryRepository builds a repository holding the given promotions.
func NewMemoryRepository(promotions ...Promotion) *MemoryRepository {
	r := &MemoryRepository{promotions: make(map[uuid.UUID]Promotion, len(promotions))}
	for _, p := range promotions {
		r.promotions[p.ID] = p
	}
	return r
}

// Get implements Repository.
func (r *MemoryRepository) Get(_ context.Context, id uuid.UUID) (Promotion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.promotions[id]
	if !ok {
		return Promotion{}, ErrNotFound
	}
	return p, nil
}

// ListEnabled implements Repository.
func (r *MemoryRepository) ListEnabled(ctx context.Context) ([]Promotion, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, p := range all {
		if p.Enabled {
			out = append(out, p)
		}
	}
	return out, nil
}

// List implements Repository.
func (r *MemoryRepository) List(_ context.Context) ([]Promotion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Promotion, 0, len(r.promotions))
	for _, p := range r.promotions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].Label < out[j].Label
	})
	return out, nil
}

// Upsert implements Repository.
func (r *MemoryRepository) Upsert(_ context.Context, p Promotion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.promotions[p.ID] = p
	return nil
}

// Delete implements Repository.
func (r *MemoryRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.promotions, id)
	return nil
}

package order

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-memory Repository with the same version semantics
// as the Postgres one. Used by tests.
type MemoryRepository struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*Order
}

// NewMemoryRepository builds an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{orders: make(map[uuid.UUID]*Order)}
}

// Get implements Repository.
func (r *MemoryRepository) Get(_ context.Context, id uuid.UUID) (*Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return o.Clone(), nil
}

// Create implements Repository.
func (r *MemoryRepository) Create(_ context.Context, o *Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.State == "" {
		o.State = StateDraft
	}
	o.Version = 1
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now
	r.orders[o.ID] = o.Clone()
	return nil
}

// Save implements Repository.
func (r *MemoryRepository) Save(_ context.Context, o *Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.orders[o.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Version != o.Version {
		return ErrStaleVersion
	}
	o.Version++
	o.UpdatedAt = time.Now().UTC()
	r.orders[o.ID] = o.Clone()
	return nil
}

// ListDraftIDs implements Repository.
func (r *MemoryRepository) ListDraftIDs(_ context.Context) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []uuid.UUID
	for id, o := range r.orders {
		if o.State == StateDraft {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

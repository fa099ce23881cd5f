// Package tax resolves the tax zones and rates that apply to an order and
// turns them into tax adjustments. Zones carry territories and dated rates;
// tax types bind a zone to rounding and display behaviour.
package tax

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/commerce-pricing/internal/condition"
	"github.com/noah-isme/commerce-pricing/internal/order"
)

var ErrNotFound = errors.New("tax: not found")

// Territory is a geographic slice of a zone. An empty field matches anything,
// so {CountryCode: "US"} covers every US address while
// {CountryCode: "US", AdministrativeArea: "WI"} covers Wisconsin only.
type Territory struct {
	CountryCode        string   `json:"country_code"`
	AdministrativeArea string   `json:"administrative_area,omitempty"`
	PostalCodes        []string `json:"postal_codes,omitempty"`
}

// Matches reports whether the territory covers the address.
func (t Territory) Matches(addr order.Address) bool {
	if !strings.EqualFold(t.CountryCode, addr.CountryCode) {
		return false
	}
	if t.AdministrativeArea != "" && !strings.EqualFold(t.AdministrativeArea, addr.AdministrativeArea) {
		return false
	}
	if len(t.PostalCodes) == 0 {
		return true
	}
	for _, pc := range t.PostalCodes {
		if pc == addr.PostalCode {
			return true
		}
	}
	return false
}

// Percentage is one historical value of a rate. StartsAt nil means the value
// has always applied.
type Percentage struct {
	Number   string     `json:"number"`
	StartsAt *time.Time `json:"starts_at,omitempty"`
}

// Rate is one entry in a zone's rate list. Exactly one rate per zone should be
// marked Default; it is the fallback when no other rate resolves. Conditions,
// when present, gate the rate on the order being taxed.
type Rate struct {
	ID          string                    `json:"id"`
	Label       string                    `json:"label"`
	Default     bool                      `json:"default"`
	Percentages []Percentage              `json:"percentages"`
	Conditions  condition.GroupDefinition `json:"conditions,omitempty"`
}

// PercentageAt returns the rate's percentage in force at the given time: the
// latest dated entry that has started, or "" when none applies yet.
func (r Rate) PercentageAt(at time.Time) string {
	var (
		best      string
		bestStart time.Time
		found     bool
	)
	for _, p := range r.Percentages {
		if p.StartsAt == nil {
			if !found {
				best = p.Number
				found = true
			}
			continue
		}
		if p.StartsAt.After(at) {
			continue
		}
		if !found || p.StartsAt.After(bestStart) || bestStart.IsZero() {
			best = p.Number
			bestStart = *p.StartsAt
			found = true
		}
	}
	if !found {
		return ""
	}
	return best
}

// Zone groups territories with the rates charged inside them.
type Zone struct {
	ID          uuid.UUID   `json:"id"`
	Label       string      `json:"label"`
	Territories []Territory `json:"territories,omitempty"`
	Rates       []Rate      `json:"rates"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Matches reports whether any of the zone's territories covers the address.
// A zone with no territories covers nothing.
func (z Zone) Matches(addr order.Address) bool {
	for _, t := range z.Territories {
		if t.Matches(addr) {
			return true
		}
	}
	return false
}

// DefaultRate returns the zone's fallback rate.
func (z Zone) DefaultRate() (Rate, bool) {
	for _, r := range z.Rates {
		if r.Default {
			return r, true
		}
	}
	return Rate{}, false
}

// Type binds a zone to calculation behaviour: the rounding mode for tax
// amounts, whether the tax is already reflected in displayed prices, and
// whether it compounds on top of other taxes.
type Type struct {
	ID               uuid.UUID `json:"id"`
	Label            string    `json:"label"`
	ZoneID           uuid.UUID `json:"zone_id"`
	RoundingMode     string    `json:"rounding_mode,omitempty"`
	DisplayInclusive bool      `json:"display_inclusive"`
	Compound         bool      `json:"compound"`
	Enabled          bool      `json:"enabled"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ZoneRepository loads tax zones.
type ZoneRepository interface {
	Get(ctx context.Context, id uuid.UUID) (Zone, error)
	List(ctx context.Context) ([]Zone, error)
	Upsert(ctx context.Context, z Zone) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// TypeRepository loads tax types.
type TypeRepository interface {
	Get(ctx context.Context, id uuid.UUID) (Type, error)
	ListEnabled(ctx context.Context) ([]Type, error)
	List(ctx context.Context) ([]Type, error)
	Upsert(ctx context.Context, t Type) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// MemoryZoneRepository is an in-memory ZoneRepository for tests and the
// stateless preview endpoint.
type MemoryZoneRepository struct {
	mu    sync.RWMutex
	zones map[uuid.UUID]Zone
}

func NewMemoryZoneRepository(zones ...Zone) *MemoryZoneRepository {
	r := &MemoryZoneRepository{zones: make(map[uuid.UUID]Zone, len(zones))}
	for _, z := range zones {
		r.zones[z.ID] = z
	}
	return r
}

func (r *MemoryZoneRepository) Get(_ context.Context, id uuid.UUID) (Zone, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	z, ok := r.zones[id]
	if !ok {
		return Zone{}, ErrNotFound
	}
	return z, nil
}

func (r *MemoryZoneRepository) List(_ context.Context) ([]Zone, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Zone, 0, len(r.zones))
	for _, z := range r.zones {
		out = append(out, z)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}

func (r *MemoryZoneRepository) Upsert(_ context.Context, z Zone) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.zones[z.ID] = z
	return nil
}

func (r *MemoryZoneRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.zones[id]; !ok {
		return ErrNotFound
	}
	delete(r.zones, id)
	return nil
}

// MemoryTypeRepository is an in-memory TypeRepository.
type MemoryTypeRepository struct {
	mu    sync.RWMutex
	types map[uuid.UUID]Type
}

func NewMemoryTypeRepository(types ...Type) *MemoryTypeRepository {
	r := &MemoryTypeRepository{types: make(map[uuid.UUID]Type, len(types))}
	for _, t := range types {
		r.types[t.ID] = t
	}
	return r
}

func (r *MemoryTypeRepository) Get(_ context.Context, id uuid.UUID) (Type, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[id]
	if !ok {
		return Type{}, ErrNotFound
	}
	return t, nil
}

func (r *MemoryTypeRepository) ListEnabled(ctx context.Context) ([]Type, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, t := range all {
		if t.Enabled {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *MemoryTypeRepository) List(_ context.Context) ([]Type, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Type, 0, len(r.types))
	for _, t := range r.types {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}

func (r *MemoryTypeRepository) Upsert(_ context.Context, t Type) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[t.ID] = t
	return nil
}

func (r *MemoryTypeRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.types[id]; !ok {
		return ErrNotFound
	}
	delete(r.types, id)
	return nil
}

package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/commerce-pricing/internal/price"
)

var (
	// ErrNotFound is returned when an order id has no row.
	ErrNotFound = errors.New("order: not found")
	// ErrStaleVersion is returned when a save loses the optimistic version check.
	ErrStaleVersion = errors.New("order: stale version")
)

// Repository persists orders. Saves are version-checked: the caller passes the
// version it loaded and the write fails with ErrStaleVersion when another
// writer got there first.
type Repository interface {
	Get(ctx context.Context, id uuid.UUID) (*Order, error)
	Create(ctx context.Context, o *Order) error
	Save(ctx context.Context, o *Order) error
	ListDraftIDs(ctx context.Context) ([]uuid.UUID, error)
}

// PGRepository stores orders in Postgres with items and adjustments as JSONB.
type PGRepository struct {
	Pool *pgxpool.Pool
}

type orderRow struct {
	items       []byte
	adjustments []byte
	billing     []byte
	shipping    []byte
}

// Get implements Repository.
func (r PGRepository) Get(ctx context.Context, id uuid.UUID) (*Order, error) {
	const q = `SELECT id, store_id, state, email, currency_code, billing_profile, shipping_profile,
  items, adjustments, total_number, version, placed_at, created_at, updated_at
FROM orders WHERE id = $1`
	o := &Order{}
	var raw orderRow
	var totalNumber string
	err := r.Pool.QueryRow(ctx, q, id).Scan(
		&o.ID, &o.StoreID, &o.State, &o.Email, &o.CurrencyCode,
		&raw.billing, &raw.shipping, &raw.items, &raw.adjustments,
		&totalNumber, &o.Version, &o.PlacedAt, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	o.TotalPrice = price.Price{Number: totalNumber, CurrencyCode: o.CurrencyCode}
	if err := decodeJSON(raw.items, &o.Items); err != nil {
		return nil, fmt.Errorf("order %s: decode items: %w", id, err)
	}
	if err := decodeJSON(raw.adjustments, &o.Adjustments); err != nil {
		return nil, fmt.Errorf("order %s: decode adjustments: %w", id, err)
	}
	if err := decodeJSON(raw.billing, &o.BillingProfile); err != nil {
		return nil, fmt.Errorf("order %s: decode billing profile: %w", id, err)
	}
	if err := decodeJSON(raw.shipping, &o.ShippingProfile); err != nil {
		return nil, fmt.Errorf("order %s: decode shipping profile: %w", id, err)
	}
	return o, nil
}

// Create implements Repository. New orders start at version 1.
func (r PGRepository) Create(ctx context.Context, o *Order) error {
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

	items, adjustments, billing, shipping, err := encodeOrder(o)
	if err != nil {
		return err
	}
	const q = `INSERT INTO orders
  (id, store_id, state, email, currency_code, billing_profile, shipping_profile,
   items, adjustments, total_number, version, placed_at, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`
	_, err = r.Pool.Exec(ctx, q,
		o.ID, o.StoreID, o.State, o.Email, o.CurrencyCode, billing, shipping,
		items, adjustments, o.TotalPrice.Number, o.Version, o.PlacedAt, o.CreatedAt, o.UpdatedAt,
	)
	return err
}

// Save implements Repository. The write only lands when the stored version
// still matches the one the order was loaded with; the in-memory version is
// bumped on success.
func (r PGRepository) Save(ctx context.Context, o *Order) error {
	items, adjustments, billing, shipping, err := encodeOrder(o)
	if err != nil {
		return err
	}
	const q = `UPDATE orders SET
  state = $2, email = $3, currency_code = $4, billing_profile = $5, shipping_profile = $6,
  items = $7, adjustments = $8, total_number = $9, version = version + 1, updated_at = now()
WHERE id = $1 AND version = $10`
	tag, err := r.Pool.Exec(ctx, q,
		o.ID, o.State, o.Email, o.CurrencyCode, billing, shipping,
		items, adjustments, o.TotalPrice.Number, o.Version,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleVersion
	}
	o.Version++
	return nil
}

// ListDraftIDs implements Repository. Draft orders are the ones a promotion or
// tax change must trigger a recalculation for.
func (r PGRepository) ListDraftIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.Pool.Query(ctx, `SELECT id FROM orders WHERE state = 'draft' ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func encodeOrder(o *Order) (items, adjustments, billing, shipping []byte, err error) {
	if items, err = json.Marshal(o.Items); err != nil {
		return
	}
	if adjustments, err = json.Marshal(o.Adjustments); err != nil {
		return
	}
	if billing, err = marshalOrNull(o.BillingProfile); err != nil {
		return
	}
	shipping, err = marshalOrNull(o.ShippingProfile)
	return
}

func marshalOrNull(p *Profile) ([]byte, error) {
	if p == nil {
		return []byte("null"), nil
	}
	return json.Marshal(p)
}

func decodeJSON(data []byte, dst any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dst)
}

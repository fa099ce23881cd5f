package promotion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepository stores promotions in Postgres with the offer and condition
// definitions as JSONB.
type PGRepository struct {
	Pool *pgxpool.Pool
}

const promotionColumns = `id, label, description, enabled, priority, stackable,
  starts_at, ends_at, offer, conditions, created_at, updated_at`

func scanPromotion(row pgx.Row) (Promotion, error) {
	var p Promotion
	var offer, conditions []byte
	err := row.Scan(&p.ID, &p.Label, &p.Description, &p.Enabled, &p.Priority, &p.Stackable,
		&p.StartsAt, &p.EndsAt, &offer, &conditions, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Promotion{}, ErrNotFound
		}
		return Promotion{}, err
	}
	if err := json.Unmarshal(offer, &p.Offer); err != nil {
		return Promotion{}, fmt.Errorf("promotion %s: decode offer: %w", p.ID, err)
	}
	if len(conditions) > 0 {
		if err := json.Unmarshal(conditions, &p.Conditions); err != nil {
			return Promotion{}, fmt.Errorf("promotion %s: decode conditions: %w", p.ID, err)
		}
	}
	return p, nil
}

// Get implements Repository.
func (r PGRepository) Get(ctx context.Context, id uuid.UUID) (Promotion, error) {
	return scanPromotion(r.Pool.QueryRow(ctx, `SELECT `+promotionColumns+` FROM promotions WHERE id = $1`, id))
}

// ListEnabled implements Repository.
func (r PGRepository) ListEnabled(ctx context.Context) ([]Promotion, error) {
	return r.list(ctx, `SELECT `+promotionColumns+` FROM promotions WHERE enabled ORDER BY priority DESC, label`)
}

// List implements Repository.
func (r PGRepository) List(ctx context.Context) ([]Promotion, error) {
	return r.list(ctx, `SELECT `+promotionColumns+` FROM promotions ORDER BY priority DESC, label`)
}

func (r PGRepository) list(ctx context.Context, query string) ([]Promotion, error) {
	rows, err := r.Pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Promotion
	for rows.Next() {
		p, err := scanPromotion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Upsert implements Repository.
func (r PGRepository) Upsert(ctx context.Context, p Promotion) error {
	offer, err := json.Marshal(p.Offer)
	if err != nil {
		return err
	}
	conditions, err := json.Marshal(p.Conditions)
	if err != nil {
		return err
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now().UTC()
	const q = `INSERT INTO promotions
  (id, label, description, enabled, priority, stackable, starts_at, ends_at, offer, conditions, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$11)
ON CONFLICT (id) DO UPDATE SET
  label = EXCLUDED.label,
  description = EXCLUDED.description,
  enabled = EXCLUDED.enabled,
  priority = EXCLUDED.priority,
  stackable = EXCLUDED.stackable,
  starts_at = EXCLUDED.starts_at,
  ends_at = EXCLUDED.ends_at,
  offer = EXCLUDED.offer,
  conditions = EXCLUDED.conditions,
  updated_at = EXCLUDED.updated_at`
	_, err = r.Pool.Exec(ctx, q, p.ID, p.Label, p.Description, p.Enabled, p.Priority, p.Stackable,
		p.StartsAt, p.EndsAt, offer, conditions, now)
	return err
}

// Delete implements Repository.
func (r PGRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.Pool.Exec(ctx, `DELETE FROM promotions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

package tax

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

// PGZoneRepository stores tax zones in Postgres with territories and rates as
// JSONB.
type PGZoneRepository struct {
	Pool *pgxpool.Pool
}

const zoneColumns = `id, label, territories, rates, created_at, updated_at`

func scanZone(row pgx.Row) (Zone, error) {
	var z Zone
	var territories, rates []byte
	err := row.Scan(&z.ID, &z.Label, &territories, &rates, &z.CreatedAt, &z.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Zone{}, ErrNotFound
		}
		return Zone{}, err
	}
	if len(territories) > 0 {
		if err := json.Unmarshal(territories, &z.Territories); err != nil {
			return Zone{}, fmt.Errorf("tax zone %s: decode territories: %w", z.ID, err)
		}
	}
	if len(rates) > 0 {
		if err := json.Unmarshal(rates, &z.Rates); err != nil {
			return Zone{}, fmt.Errorf("tax zone %s: decode rates: %w", z.ID, err)
		}
	}
	return z, nil
}

func (r PGZoneRepository) Get(ctx context.Context, id uuid.UUID) (Zone, error) {
	return scanZone(r.Pool.QueryRow(ctx, `SELECT `+zoneColumns+` FROM tax_zones WHERE id = $1`, id))
}

func (r PGZoneRepository) List(ctx context.Context) ([]Zone, error) {
	rows, err := r.Pool.Query(ctx, `SELECT `+zoneColumns+` FROM tax_zones ORDER BY label`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Zone
	for rows.Next() {
		z, err := scanZone(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, z)
	}
	return out, rows.Err()
}

func (r PGZoneRepository) Upsert(ctx context.Context, z Zone) error {
	territories, err := json.Marshal(z.Territories)
	if err != nil {
		return err
	}
	rates, err := json.Marshal(z.Rates)
	if err != nil {
		return err
	}
	if z.ID == uuid.Nil {
		z.ID = uuid.New()
	}
	now := time.Now().UTC()
	const q = `INSERT INTO tax_zones (id, label, territories, rates, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$5)
ON CONFLICT (id) DO UPDATE SET
  label = EXCLUDED.label,
  territories = EXCLUDED.territories,
  rates = EXCLUDED.rates,
  updated_at = EXCLUDED.updated_at`
	_, err = r.Pool.Exec(ctx, q, z.ID, z.Label, territories, rates, now)
	return err
}

func (r PGZoneRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.Pool.Exec(ctx, `DELETE FROM tax_zones WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// PGTypeRepository stores tax types in Postgres.
type PGTypeRepository struct {
	Pool *pgxpool.Pool
}

const typeColumns = `id, label, zone_id, rounding_mode, display_inclusive, compound, enabled, created_at, updated_at`

func scanType(row pgx.Row) (Type, error) {
	var t Type
	err := row.Scan(&t.ID, &t.Label, &t.ZoneID, &t.RoundingMode, &t.DisplayInclusive,
		&t.Compound, &t.Enabled, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Type{}, ErrNotFound
		}
		return Type{}, err
	}
	return t, nil
}

func (r PGTypeRepository) Get(ctx context.Context, id uuid.UUID) (Type, error) {
	return scanType(r.Pool.QueryRow(ctx, `SELECT `+typeColumns+` FROM tax_types WHERE id = $1`, id))
}

func (r PGTypeRepository) ListEnabled(ctx context.Context) ([]Type, error) {
	return r.list(ctx, `SELECT `+typeColumns+` FROM tax_types WHERE enabled ORDER BY compound, label`)
}

func (r PGTypeRepository) List(ctx context.Context) ([]Type, error) {
	return r.list(ctx, `SELECT `+typeColumns+` FROM tax_types ORDER BY compound, label`)
}

func (r PGTypeRepository) list(ctx context.Context, query string) ([]Type, error) {
	rows, err := r.Pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Type
	for rows.Next() {
		t, err := scanType(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r PGTypeRepository) Upsert(ctx context.Context, t Type) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	now := time.Now().UTC()
	const q = `INSERT INTO tax_types
  (id, label, zone_id, rounding_mode, display_inclusive, compound, enabled, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$8)
ON CONFLICT (id) DO UPDATE SET
  label = EXCLUDED.label,
  zone_id = EXCLUDED.zone_id,
  rounding_mode = EXCLUDED.rounding_mode,
  display_inclusive = EXCLUDED.display_inclusive,
  compound = EXCLUDED.compound,
  enabled = EXCLUDED.enabled,
  updated_at = EXCLUDED.updated_at`
	_, err := r.Pool.Exec(ctx, q, t.ID, t.Label, t.ZoneID, t.RoundingMode,
		t.DisplayInclusive, t.Compound, t.Enabled, now)
	return err
}

func (r PGTypeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.Pool.Exec(ctx, `DELETE FROM tax_types WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

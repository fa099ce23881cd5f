package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepository reads and writes stores in Postgres.
type PGRepository struct {
	Pool *pgxpool.Pool
}

const storeColumns = `id, name, default_currency, country_code, prices_include_tax, is_default`

func scanStore(row pgx.Row) (Store, error) {
	var s Store
	err := row.Scan(&s.ID, &s.Name, &s.DefaultCurrency, &s.CountryCode, &s.PricesIncludeTax, &s.IsDefault)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Store{}, ErrNotFound
		}
		return Store{}, err
	}
	return s, nil
}

// Get implements Repository.
func (r PGRepository) Get(ctx context.Context, id uuid.UUID) (Store, error) {
	return scanStore(r.Pool.QueryRow(ctx, `SELECT `+storeColumns+` FROM stores WHERE id = $1`, id))
}

// Default implements Repository.
func (r PGRepository) Default(ctx context.Context) (Store, error) {
	return scanStore(r.Pool.QueryRow(ctx, `SELECT `+storeColumns+` FROM stores WHERE is_default ORDER BY name LIMIT 1`))
}

// List returns all stores ordered by name.
func (r PGRepository) List(ctx context.Context) ([]Store, error) {
	rows, err := r.Pool.Query(ctx, `SELECT `+storeColumns+` FROM stores ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Store
	for rows.Next() {
		var s Store
		if err := rows.Scan(&s.ID, &s.Name, &s.DefaultCurrency, &s.CountryCode, &s.PricesIncludeTax, &s.IsDefault); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Upsert inserts or updates a store by id.
func (r PGRepository) Upsert(ctx context.Context, s Store) error {
	const q = `INSERT INTO stores (id, name, default_currency, country_code, prices_include_tax, is_default)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET
  name = EXCLUDED.name,
  default_currency = EXCLUDED.default_currency,
  country_code = EXCLUDED.country_code,
  prices_include_tax = EXCLUDED.prices_include_tax,
  is_default = EXCLUDED.is_default`
	_, err := r.Pool.Exec(ctx, q, s.ID, s.Name, s.DefaultCurrency, s.CountryCode, s.PricesIncludeTax, s.IsDefault)
	return err
}

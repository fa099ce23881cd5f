package currency

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepository reads and writes currencies in Postgres.
type PGRepository struct {
	Pool *pgxpool.Pool
}

// Get implements Repository.
func (r PGRepository) Get(ctx context.Context, code string) (Currency, error) {
	const q = `SELECT code, numeric_code, name, symbol, fraction_digits, rounding_step
FROM currencies WHERE code = $1`
	var c Currency
	err := r.Pool.QueryRow(ctx, q, strings.ToUpper(code)).
		Scan(&c.Code, &c.NumericCode, &c.Name, &c.Symbol, &c.FractionDigits, &c.RoundingStep)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Currency{}, ErrNotFound
		}
		return Currency{}, err
	}
	return c, nil
}

// List implements Repository.
func (r PGRepository) List(ctx context.Context) ([]Currency, error) {
	const q = `SELECT code, numeric_code, name, symbol, fraction_digits, rounding_step
FROM currencies ORDER BY code`
	rows, err := r.Pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Currency
	for rows.Next() {
		var c Currency
		if err := rows.Scan(&c.Code, &c.NumericCode, &c.Name, &c.Symbol, &c.FractionDigits, &c.RoundingStep); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Upsert inserts or updates a currency by code.
func (r PGRepository) Upsert(ctx context.Context, c Currency) error {
	const q = `INSERT INTO currencies (code, numeric_code, name, symbol, fraction_digits, rounding_step)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (code) DO UPDATE SET
  numeric_code = EXCLUDED.numeric_code,
  name = EXCLUDED.name,
  symbol = EXCLUDED.symbol,
  fraction_digits = EXCLUDED.fraction_digits,
  rounding_step = EXCLUDED.rounding_step`
	_, err := r.Pool.Exec(ctx, q, strings.ToUpper(c.Code), c.NumericCode, c.Name, c.Symbol, c.FractionDigits, c.RoundingStep)
	return err
}

package app

import (
	"context"

	validator "github.com/go-playground/validator/v10"
	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"
)

// Dependencies enumerates the shared infrastructure the binaries assemble at
// startup; every module is wired from these handles.
type Dependencies struct {
	Context    context.Context
	DB         *pgxpool.Pool
	Redis      *redis.Client
	Validator  *validator.Validate
	TaskClient *asynq.Client
	TaskServer *asynq.Server
}

// RunMigrations applies pending migrations, tolerating an up-to-date schema.
func RunMigrations(m *migrate.Migrate) error {
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/commerce-pricing/internal/app"
	"github.com/noah-isme/commerce-pricing/internal/condition"
	"github.com/noah-isme/commerce-pricing/internal/config"
	"github.com/noah-isme/commerce-pricing/internal/currency"
	"github.com/noah-isme/commerce-pricing/internal/lock"
	"github.com/noah-isme/commerce-pricing/internal/obs"
	"github.com/noah-isme/commerce-pricing/internal/order"
	"github.com/noah-isme/commerce-pricing/internal/pricing"
	"github.com/noah-isme/commerce-pricing/internal/promotion"
	"github.com/noah-isme/commerce-pricing/internal/store"
	"github.com/noah-isme/commerce-pricing/internal/tasks"
	"github.com/noah-isme/commerce-pricing/internal/tax"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("component", "worker").Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "pricing")
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool := mustInitDatabase(ctx, cfg, logger)
	defer pool.Close()

	redisClient, redisOpts := mustInitRedis(ctx, cfg, logger)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

	deps := app.Dependencies{
		Context: ctx,
		DB:      pool,
		Redis:   redisClient,
	}

	currencies := currency.CachedRepository{
		Backing: currency.PGRepository{Pool: deps.DB},
		Cache:   currency.NewCache(deps.Redis, cfg.CurrencyCacheTTL),
	}
	rounder := currency.Rounder{Currencies: currencies}

	conditions := condition.DefaultRegistry()
	promotionEngine := &promotion.Engine{
		Promotions: promotion.PGRepository{Pool: deps.DB},
		Offers: promotion.DefaultOfferRegistry(promotion.Deps{
			Rounder:    rounder,
			Conditions: conditions,
		}),
		Conditions: conditions,
	}
	taxEngine := &tax.Engine{
		Types:   tax.PGTypeRepository{Pool: deps.DB},
		Zones:   tax.PGZoneRepository{Pool: deps.DB},
		Rates:   tax.NewRateChain(conditions),
		Rounder: rounder,
		Profile: tax.ShippingProfile,
	}

	handler := &tasks.Handler{
		Orders: order.PGRepository{Pool: deps.DB},
		Processor: &pricing.Processor{
			Prices:     pricing.NewStorePriceChain(store.PGRepository{Pool: deps.DB}),
			Promotions: promotionEngine,
			Taxes:      taxEngine,
			Rounder:    rounder,
		},
		Locker:  lock.Locker{R: deps.Redis},
		LockTTL: cfg.OrderLockTTL,
		Logger:  logger,
	}

	deps.TaskServer = asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     redisOpts.Addr,
			Password: redisOpts.Password,
			DB:       redisOpts.DB,
		},
		asynq.Config{
			Concurrency: cfg.WorkerConcurrency,
			Logger:      asynqLogger{logger},
		},
	)

	go func() {
		<-ctx.Done()
		deps.TaskServer.Shutdown()
	}()

	logger.Info().Int("concurrency", cfg.WorkerConcurrency).Msg("worker starting")
	if err := deps.TaskServer.Run(handler.NewMux()); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("worker stopped with error")
	} else {
		logger.Info().Msg("worker shutdown complete")
	}
}

// asynqLogger routes asynq's internal logging through zerolog.
type asynqLogger struct {
	l zerolog.Logger
}

func (a asynqLogger) Debug(args ...any) { a.l.Debug().Msgf("%v", args) }
func (a asynqLogger) Info(args ...any)  { a.l.Info().Msgf("%v", args) }
func (a asynqLogger) Warn(args ...any)  { a.l.Warn().Msgf("%v", args) }
func (a asynqLogger) Error(args ...any) { a.l.Error().Msgf("%v", args) }
func (a asynqLogger) Fatal(args ...any) { a.l.Fatal().Msgf("%v", args) }

func mustInitDatabase(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *pgxpool.Pool {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "pricing-worker"
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}
	return pool
}

func mustInitRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*redis.Client, *redis.Options) {
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}
	return redisClient, redisOpts
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	migrate "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/commerce-pricing/internal/app"
	"github.com/noah-isme/commerce-pricing/internal/condition"
	"github.com/noah-isme/commerce-pricing/internal/config"
	"github.com/noah-isme/commerce-pricing/internal/currency"
	"github.com/noah-isme/commerce-pricing/internal/events"
	"github.com/noah-isme/commerce-pricing/internal/health"
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
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "pricing")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		sampling := envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0)
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "pricing-api",
			Endpoint:      valueOr(cfg.OTLPEndpoint, envOrDefault("OBS_OTLP_ENDPOINT", "")),
			Exporter:      envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio: sampling,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				ctx := context.Background()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "pricing-api"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	if envBool("DB_AUTO_MIGRATE", true) {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("run migrations")
		}
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metricsEnabled {
		if err := redisotel.InstrumentMetrics(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	taskClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     redisOpts.Addr,
		Password: redisOpts.Password,
		DB:       redisOpts.DB,
	})
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close task client")
		}
	}()

	deps := app.Dependencies{
		Context:    ctx,
		DB:         pool,
		Redis:      redisClient,
		Validator:  validator.New(validator.WithRequiredStructEnabled()),
		TaskClient: taskClient,
	}

	currencyCache := currency.NewCache(deps.Redis, cfg.CurrencyCacheTTL)
	currencyRepo := currency.PGRepository{Pool: deps.DB}
	currencies := currency.CachedRepository{Backing: currencyRepo, Cache: currencyCache}
	rounder := currency.Rounder{Currencies: currencies}

	storeRepo := store.PGRepository{Pool: deps.DB}
	storeChain := store.NewChain(storeRepo)

	conditions := condition.DefaultRegistry()
	offers := promotion.DefaultOfferRegistry(promotion.Deps{
		Rounder:    rounder,
		Conditions: conditions,
	})
	promotionRepo := promotion.PGRepository{Pool: deps.DB}
	promotionEngine := &promotion.Engine{
		Promotions: promotionRepo,
		Offers:     offers,
		Conditions: conditions,
	}

	zoneRepo := tax.PGZoneRepository{Pool: deps.DB}
	typeRepo := tax.PGTypeRepository{Pool: deps.DB}
	taxEngine := &tax.Engine{
		Types:   typeRepo,
		Zones:   zoneRepo,
		Rates:   tax.NewRateChain(conditions),
		Rounder: rounder,
		Profile: tax.ShippingProfile,
	}

	processor := &pricing.Processor{
		Prices:     pricing.NewStorePriceChain(storeRepo),
		Promotions: promotionEngine,
		Taxes:      taxEngine,
		Rounder:    rounder,
	}

	orderRepo := order.PGRepository{Pool: deps.DB}
	locker := lock.Locker{R: deps.Redis}

	enqueuer := tasks.Enqueuer{
		Client: deps.TaskClient,
		Orders: orderRepo,
		Logger: logger.With().Str("component", "enqueuer").Logger(),
	}

	bus := &events.Bus{
		Store:     events.PGStore{Pool: deps.DB},
		Notifiers: []events.Notifier{enqueuer.Notifier()},
	}

	pricingHandler := &pricing.Handler{
		Orders:    orderRepo,
		Processor: processor,
		Stores:    storeChain,
		Types:     order.NewTypeChain(),
		Validator: deps.Validator,
		Locker:    locker,
		LockTTL:   cfg.OrderLockTTL,
		Bus:       bus,
		Logger:    logger,
	}
	currencyHandler := &currency.Handler{
		Repo:  &currencyRepo,
		Cache: currencyCache,
		OnChange: func(ctx context.Context, code string) {
			if _, err := bus.Emit(ctx, events.TopicCurrencyChanged, uuid.NewSHA1(uuid.NameSpaceOID, []byte(code)), map[string]string{"code": code}); err != nil {
				logger.Error().Err(err).Str("currency", code).Msg("emit currency change")
			}
		},
		Logger: logger,
	}
	promotionHandler := &promotion.Handler{
		Repo:       promotionRepo,
		Offers:     offers,
		Conditions: conditions,
		Bus:        bus,
		Logger:     logger,
	}
	taxHandler := &tax.Handler{
		Zones:  zoneRepo,
		Types:  typeRepo,
		Bus:    bus,
		Logger: logger,
	}
	storeHandler := &store.Handler{
		Repo:   &storeRepo,
		Bus:    bus,
		Logger: logger,
	}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	pprofEnabled := envBool("OBS_ENABLE_PPROF", true)
	if pprofEnabled {
		user := envOrDefault("SECURE_PPROF_BASIC_AUTH_USER", "")
		pass := envOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", "")
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), user, pass))
	}

	healthHandler := health.Handler{
		Checker:      health.Probes{DB: deps.DB, Redis: deps.Redis},
		DBTimeout:    envDurationMillis("HEALTH_READY_DB_TIMEOUT_MS", 500),
		RedisTimeout: envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Post("/pricing/preview", pricingHandler.Preview)

		v.Route("/orders", func(o chi.Router) {
			o.Post("/", pricingHandler.Create)
			o.Get("/{id}", pricingHandler.Get)
			o.Post("/{id}/recalculate", pricingHandler.Recalculate)
		})

		v.Route("/admin", func(admin chi.Router) {
			admin.Get("/currencies", currencyHandler.List)
			admin.Get("/currencies/{code}", currencyHandler.Get)
			admin.Put("/currencies/{code}", currencyHandler.Upsert)

			admin.Get("/promotions", promotionHandler.List)
			admin.Post("/promotions", promotionHandler.Create)
			admin.Get("/promotions/{id}", promotionHandler.Get)
			admin.Put("/promotions/{id}", promotionHandler.Update)
			admin.Delete("/promotions/{id}", promotionHandler.Delete)

			admin.Get("/tax-zones", taxHandler.ListZones)
			admin.Get("/tax-zones/{id}", taxHandler.GetZone)
			admin.Put("/tax-zones/{id}", taxHandler.UpsertZone)
			admin.Delete("/tax-zones/{id}", taxHandler.DeleteZone)

			admin.Get("/tax-types", taxHandler.ListTypes)
			admin.Put("/tax-types/{id}", taxHandler.UpsertType)
			admin.Delete("/tax-types/{id}", taxHandler.DeleteType)

			admin.Get("/stores", storeHandler.List)
			admin.Get("/stores/{id}", storeHandler.Get)
			admin.Put("/stores/{id}", storeHandler.Upsert)
		})
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-shutdownCtx.Done()
		health.SetReady(false)
		drain := envDurationMillis("SHUTDOWN_DRAIN_MS", 5000)
		ctx, cancel := context.WithTimeout(context.Background(), drain)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("shutdown server")
		}
	}()

	logger.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
	logger.Info().Msg("server stopped")
}

// runMigrations applies pending SQL migrations with the pgx/v5 migrate driver,
// which expects a pgx5:// scheme.
func runMigrations(databaseURL string) error {
	url := databaseURL
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(url, scheme) {
			url = "pgx5://" + strings.TrimPrefix(url, scheme)
			break
		}
	}
	path := envOrDefault("DB_MIGRATIONS_PATH", "file://migrations")
	m, err := migrate.New(path, url)
	if err != nil {
		return err
	}
	defer m.Close()
	return app.RunMigrations(m)
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
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

func valueOr(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	mux.Handle("/allocs", pprof.Handler("allocs"))
	mux.Handle("/block", pprof.Handler("block"))
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/heap", pprof.Handler("heap"))
	mux.Handle("/mutex", pprof.Handler("mutex"))
	mux.Handle("/threadcreate", pprof.Handler("threadcreate"))
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}

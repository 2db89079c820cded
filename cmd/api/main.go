// Package main provides the entrypoint for the FieldRoute API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/fieldroute/fieldroute/internal/api"
	"github.com/fieldroute/fieldroute/internal/api/handler"
	"github.com/fieldroute/fieldroute/internal/api/middleware"
	"github.com/fieldroute/fieldroute/internal/auth"
	"github.com/fieldroute/fieldroute/internal/database"
	"github.com/fieldroute/fieldroute/internal/lock"
	"github.com/fieldroute/fieldroute/internal/optimizer"
	"github.com/fieldroute/fieldroute/internal/preferences"
	"github.com/fieldroute/fieldroute/internal/resilience"
	"github.com/fieldroute/fieldroute/internal/route"
	"github.com/fieldroute/fieldroute/internal/telemetry"
	"github.com/fieldroute/fieldroute/internal/territory"
	"github.com/fieldroute/fieldroute/internal/visit"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "fieldroute-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using environment")
	}

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting FieldRoute API")

	port := getEnvOrDefault("APP_PORT", "8080")

	// Initialize OpenTelemetry
	ctx := context.Background()
	telemetryCfg := telemetry.ConfigFromEnv(serviceName, Version)

	tp, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if telemetryCfg.Enabled {
		log.Info().
			Str("otlp_endpoint", telemetryCfg.OTLPEndpoint).
			Float64("sample_ratio", telemetryCfg.SampleRatio).
			Msg("OpenTelemetry initialized")
	}

	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	// Connect to database
	dbConfig := database.ConfigFromEnv()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	log.Info().
		Str("host", dbConfig.Host).
		Int("port", dbConfig.Port).
		Str("database", dbConfig.Database).
		Msg("database connected")

	if getEnvBool("DB_AUTO_MIGRATE") {
		if err := database.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("failed to apply schema")
		}
		log.Info().Msg("database schema applied")
	}

	// Store reads go through retry and circuit breaking; writes do not.
	guards := resilience.NewRegistry()
	visitGuard := newGuard("visits", guards, nil)
	windowGuard := newGuard("time_windows", guards, nil)
	prefsGuard := newGuard("preferences", guards, func(err error) bool {
		return errors.Is(err, preferences.ErrPreferencesNotFound)
	})

	visits := visit.NewGuardedRepository(visit.NewPostgresRepository(pool), visitGuard, windowGuard)

	defaults, err := preferences.LoadDefaults(os.Getenv("PREFERENCES_DEFAULTS_FILE"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load default preferences")
	}

	prefsService := preferences.NewService(preferences.ServiceConfig{
		Repository: preferences.NewPostgresRepository(pool),
		Logger:     log,
		CacheTTL:   1 * time.Minute,
		Defaults:   &defaults,
		Guard:      prefsGuard,
	})
	log.Info().Msg("preferences service initialized")

	engine := optimizer.NewEngine(optimizer.EngineConfig{
		MaxStops:            getEnvInt("OPTIMIZER_MAX_STOPS", optimizer.DefaultMaxStops),
		TwoOptMaxIterations: getEnvInt("OPTIMIZER_TWO_OPT_MAX_ITERATIONS", optimizer.DefaultTwoOptIterations),
	})

	routeRepo := route.NewPostgresRepository(pool)
	routeService := route.NewService(route.ServiceConfig{
		Repository:  routeRepo,
		Visits:      visits,
		Preferences: prefsService,
		Engine:      engine,
		Logger:      log,
	})
	log.Info().Msg("route service initialized")

	checks := map[string]handler.Pinger{
		"database": pool,
	}

	locker, redisCheck := newLocker(log)
	if redisCheck != nil {
		checks["redis"] = redisCheck
	}

	territoryService := territory.NewService(territory.ServiceConfig{
		Visits:        visits,
		Repository:    territory.NewPostgresRepository(pool),
		Locker:        locker,
		Logger:        log,
		MaxIterations: getEnvInt("KMEANS_MAX_ITERATIONS", territory.DefaultMaxIterations),
	})
	log.Info().Msg("territory service initialized")

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		jwtSigningKey = "local-dev-signing-key-change-in-production"
		log.Warn().Msg("using default JWT signing key - not secure for production")
	}

	jwtService := auth.NewJWTService(auth.JWTConfig{
		SigningKey: jwtSigningKey,
		Issuer:     os.Getenv("JWT_ISSUER"),
		Audience:   os.Getenv("JWT_AUDIENCE"),
	})

	router := api.NewRouter(api.RouterConfig{
		Version:            Version,
		BuildTime:          BuildTime,
		Logger:             log,
		ServiceName:        serviceName,
		Metrics:            metrics,
		RequireTLS:         getEnvBool("REQUIRE_TLS"),
		TokenValidator:     jwtService,
		RouteService:       routeService,
		TerritoryService:   territoryService,
		PreferencesService: prefsService,
		ReadinessChecks:    checks,
		Guards:             guards,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}

// newGuard builds a store-read guard registered for health reporting.
func newGuard(name string, registry *resilience.Registry, permanent func(error) bool) *resilience.Guard {
	cfg := resilience.DefaultGuardConfig(name)
	cfg.Permanent = permanent
	cfg.Registry = registry
	return resilience.NewGuard(cfg)
}

// newLocker returns a Redis-backed locker when REDIS_URL is set, otherwise
// an in-process one. The second result is non-nil only for Redis.
func newLocker(log zerolog.Logger) (lock.Locker, handler.Pinger) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		log.Warn().Msg("REDIS_URL not set - clustering locks are process-local")
		return lock.NewLocalLocker(), nil
	}

	client, err := lock.NewRedisClient(url)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to configure redis")
	}
	locker := lock.NewRedisLocker(client, "")
	log.Info().Msg("redis locker initialized")
	return locker, locker
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return defaultValue
}

func getEnvBool(key string) bool {
	v, _ := strconv.ParseBool(os.Getenv(key))
	return v
}

// Package main provides the entrypoint for the FieldRoute clustering worker.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/fieldroute/fieldroute/internal/database"
	"github.com/fieldroute/fieldroute/internal/lock"
	"github.com/fieldroute/fieldroute/internal/resilience"
	"github.com/fieldroute/fieldroute/internal/telemetry"
	"github.com/fieldroute/fieldroute/internal/territory"
	"github.com/fieldroute/fieldroute/internal/visit"
	"github.com/fieldroute/fieldroute/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "fieldroute-worker"

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
		Msg("starting FieldRoute worker")

	// Worker also exposes health endpoint for Cloud Run
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryCfg := telemetry.ConfigFromEnv(serviceName, Version)
	tp, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	pool, err := database.Connect(ctx, database.ConfigFromEnv())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	guards := resilience.NewRegistry()
	visitCfg := resilience.DefaultGuardConfig("visits")
	visitCfg.Registry = guards
	visits := visit.NewGuardedRepository(visit.NewPostgresRepository(pool), resilience.NewGuard(visitCfg), nil)

	checks := map[string]worker.Pinger{"database": pool}

	var locker lock.Locker = lock.NewLocalLocker()
	if url := os.Getenv("REDIS_URL"); url != "" {
		client, err := lock.NewRedisClient(url)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to configure redis")
		}
		redisLocker := lock.NewRedisLocker(client, "")
		locker = redisLocker
		checks["redis"] = redisLocker
	} else {
		log.Warn().Msg("REDIS_URL not set - clustering locks are process-local")
	}

	maxIterations := territory.DefaultMaxIterations
	if v, err := strconv.Atoi(os.Getenv("KMEANS_MAX_ITERATIONS")); err == nil && v > 0 {
		maxIterations = v
	}

	territoryService := territory.NewService(territory.ServiceConfig{
		Visits:        visits,
		Repository:    territory.NewPostgresRepository(pool),
		Locker:        locker,
		Logger:        log,
		MaxIterations: maxIterations,
	})

	job := worker.NewClusterJob(worker.ClusterJobConfig{
		Config:    worker.ConfigFromEnv(),
		Clusterer: territoryService,
		Logger:    log,
	})
	processor := worker.NewProcessor(job, checks, log)

	// Create HTTP server for health checks
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		m := job.Metrics()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":    "healthy",
			"version":   Version,
			"runs":      m.Runs,
			"succeeded": m.Succeeded,
			"skipped":   m.Skipped,
			"failed":    m.Failed,
		})
	})

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health check server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	projectID := os.Getenv("PUBSUB_PROJECT_ID")
	subscription := os.Getenv("PUBSUB_SUBSCRIPTION")
	if projectID == "" || subscription == "" {
		log.Fatal().Msg("PUBSUB_PROJECT_ID and PUBSUB_SUBSCRIPTION are required")
	}

	handler, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
		ProjectID:        projectID,
		SubscriptionName: subscription,
		Processor:        processor,
		Logger:           log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create pubsub handler")
	}
	defer func() {
		if err := handler.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close pubsub client")
		}
	}()

	go func() {
		if err := handler.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("pubsub handler stopped")
			cancel()
		}
	}()

	// Wait for interrupt signal or handler failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}

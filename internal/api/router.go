// Package api provides the HTTP API for FieldRoute.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/fieldroute/fieldroute/internal/api/handler"
	"github.com/fieldroute/fieldroute/internal/api/middleware"
	"github.com/fieldroute/fieldroute/internal/resilience"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics
	RequireTLS  bool

	TokenValidator     middleware.TokenValidator
	RouteService       handler.RouteService
	TerritoryService   handler.TerritoryService
	PreferencesService handler.PreferencesService

	// ReadinessChecks are pinged by /v1/ops/ready and /v1/ops/status.
	ReadinessChecks map[string]handler.Pinger
	// Guards is reported by /v1/ops/status.
	Guards *resilience.Registry

	// Rate limits default to middleware.ExpensiveRateLimit and
	// middleware.StandardRateLimit.
	ExpensiveRateLimit *middleware.RateLimitConfig
	StandardRateLimit  *middleware.RateLimitConfig
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "fieldroute-api"
	}
	expensive := middleware.ExpensiveRateLimit
	if cfg.ExpensiveRateLimit != nil {
		expensive = *cfg.ExpensiveRateLimit
	}
	standard := middleware.StandardRateLimit
	if cfg.StandardRateLimit != nil {
		standard = *cfg.StandardRateLimit
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	r.Use(middleware.ContentTypeJSON)
	r.Use(middleware.RequireJSON)

	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.ReadinessChecks, cfg.Guards)
	routeHandler := handler.NewRouteHandler(cfg.RouteService, cfg.Logger)
	territoryHandler := handler.NewTerritoryHandler(cfg.TerritoryService, cfg.Logger)
	preferencesHandler := handler.NewPreferencesHandler(cfg.PreferencesService, cfg.Logger)

	authMiddleware := middleware.Auth(cfg.TokenValidator)
	expensiveRateLimit := middleware.RateLimitBySalesperson(expensive)
	standardRateLimit := middleware.RateLimitBySalesperson(standard)

	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Use(middleware.RateLimitByIP(standard))
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		// Everything else is scoped to the token's tenant
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)

			// Expensive compute, strict rate limiting
			r.With(expensiveRateLimit).Post("/routes:optimize", routeHandler.OptimizeRoute)
			r.With(expensiveRateLimit).Post("/territories:cluster", territoryHandler.ClusterVisits)

			r.Group(func(r chi.Router) {
				r.Use(standardRateLimit)

				r.Route("/routes/{routeId}", func(r chi.Router) {
					r.Get("/", routeHandler.GetRoute)
					r.Post("/start", routeHandler.StartRoute)
					r.Post("/complete", routeHandler.CompleteRoute)
					r.Post("/cancel", routeHandler.CancelRoute)
					r.Get("/history", routeHandler.GetRouteHistory)
				})

				r.Get("/performance", routeHandler.GetPerformance)
				r.Get("/territories", territoryHandler.GetTerritories)
				r.Get("/preferences", preferencesHandler.GetPreferences)
				r.Put("/preferences", preferencesHandler.PutPreferences)
			})
		})
	})

	return r
}

package route

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fieldroute/fieldroute/internal/geo"
	"github.com/fieldroute/fieldroute/internal/optimizer"
	"github.com/fieldroute/fieldroute/internal/preferences"
	"github.com/fieldroute/fieldroute/internal/visit"
	"github.com/fieldroute/fieldroute/pkg/polyline"
)

const instrumentationName = "github.com/fieldroute/fieldroute/internal/route"

// VisitReader reads the visits and windows a plan needs.
type VisitReader interface {
	GetVisits(ctx context.Context, tenantID string, ids []string) ([]*visit.Visit, error)
	ActiveTimeWindows(ctx context.Context, tenantID string, customerIDs []string) ([]optimizer.TimeWindow, error)
}

// PreferencesReader resolves the effective preferences of a salesperson.
type PreferencesReader interface {
	Get(ctx context.Context, tenantID, salespersonID string) (preferences.Resolved, error)
}

// ServiceConfig holds configuration for the route service.
type ServiceConfig struct {
	Repository  Repository
	Visits      VisitReader
	Preferences PreferencesReader
	Engine      *optimizer.Engine
	Logger      zerolog.Logger

	Tracer trace.Tracer
	Meter  metric.Meter

	// Now defaults to time.Now.
	Now func() time.Time
}

// Service plans routes and applies lifecycle changes.
type Service struct {
	repo   Repository
	visits VisitReader
	prefs  PreferencesReader
	engine *optimizer.Engine
	logger zerolog.Logger
	tracer trace.Tracer
	now    func() time.Time

	optimizations metric.Int64Counter
	duration      metric.Float64Histogram
	nonConverged  metric.Int64Counter
	excluded      metric.Int64Counter
}

// NewService creates a new route service.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Engine == nil {
		cfg.Engine = optimizer.NewEngine(optimizer.DefaultEngineConfig())
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer(instrumentationName)
	}
	if cfg.Meter == nil {
		cfg.Meter = otel.Meter(instrumentationName)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	s := &Service{
		repo:   cfg.Repository,
		visits: cfg.Visits,
		prefs:  cfg.Preferences,
		engine: cfg.Engine,
		logger: cfg.Logger,
		tracer: cfg.Tracer,
		now:    cfg.Now,
	}
	s.initMetrics(cfg.Meter)
	return s
}

func (s *Service) initMetrics(meter metric.Meter) {
	var err error

	if s.optimizations, err = meter.Int64Counter(
		"fieldroute.optimizations.total",
		metric.WithDescription("Route optimisations by outcome"),
		metric.WithUnit("{optimization}"),
	); err != nil {
		s.logger.Warn().Err(err).Msg("failed to create optimizations counter")
	}

	if s.duration, err = meter.Float64Histogram(
		"fieldroute.optimization.duration",
		metric.WithDescription("Route optimisation duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5),
	); err != nil {
		s.logger.Warn().Err(err).Msg("failed to create optimization duration histogram")
	}

	if s.nonConverged, err = meter.Int64Counter(
		"fieldroute.optimization.nonconverged.total",
		metric.WithDescription("Optimisations where 2-opt hit its pass limit"),
	); err != nil {
		s.logger.Warn().Err(err).Msg("failed to create non-converged counter")
	}

	if s.excluded, err = meter.Int64Counter(
		"fieldroute.locations.excluded.total",
		metric.WithDescription("Visits dropped for missing or invalid coordinates"),
	); err != nil {
		s.logger.Warn().Err(err).Msg("failed to create excluded locations counter")
	}
}

// OptimizeRequest is the input of OptimizeRoute.
type OptimizeRequest struct {
	TenantID      string
	SalespersonID string
	VisitIDs      []string
	Start         *geo.Point
	// Date is the day the route is for. Zero means today in UTC.
	Date      time.Time
	Overrides *preferences.Overrides
}

// OptimizeRoute plans and stores a route for the requested visits.
func (s *Service) OptimizeRoute(ctx context.Context, req OptimizeRequest) (*Route, error) {
	ctx, span := s.tracer.Start(ctx, "route.optimize", trace.WithAttributes(
		attribute.String("tenant_id", req.TenantID),
		attribute.Int("visits.requested", len(req.VisitIDs)),
	))
	defer span.End()

	started := s.now()
	rt, err := s.optimize(ctx, req, started)
	elapsed := s.now().Sub(started)

	outcome := "success"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	if s.optimizations != nil {
		s.optimizations.Add(ctx, 1, attrs)
	}
	if s.duration != nil {
		s.duration.Record(ctx, elapsed.Seconds(), attrs)
	}
	if err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.String("route_id", rt.ID),
		attribute.Int("stops", len(rt.Stops)),
		attribute.Float64("distance_km", rt.Plan.DistanceKm),
		attribute.Bool("converged", rt.Plan.Converged),
	)
	return rt, nil
}

func (s *Service) optimize(ctx context.Context, req OptimizeRequest, started time.Time) (*Route, error) {
	if req.Start == nil {
		return nil, &optimizer.InputError{Field: "start_location", Reason: "is required"}
	}
	ids := dedupe(req.VisitIDs)
	if len(ids) == 0 {
		return nil, &optimizer.InputError{Field: "visit_ids", Reason: "at least one visit id is required"}
	}

	visits, err := s.visits.GetVisits(ctx, req.TenantID, ids)
	if err != nil {
		return nil, fmt.Errorf("read visits: %w", err)
	}
	missing := len(ids) - len(visits)

	stops, excluded := visit.ToLocations(visits)
	if excluded > 0 && s.excluded != nil {
		s.excluded.Add(ctx, int64(excluded))
	}
	if len(stops) == 0 {
		return nil, &optimizer.InputError{
			Field:  "visit_ids",
			Reason: fmt.Sprintf("none of the %d requested visits has valid coordinates (%d not found, %d excluded)", len(ids), missing, excluded),
		}
	}

	windows, err := s.visits.ActiveTimeWindows(ctx, req.TenantID, customerIDs(stops))
	if err != nil {
		return nil, fmt.Errorf("read time windows: %w", err)
	}

	resolved, err := s.prefs.Get(ctx, req.TenantID, req.SalespersonID)
	if err != nil {
		return nil, err
	}
	prefs := req.Overrides.Apply(resolved.Preferences)

	date := req.Date
	if date.IsZero() {
		date = started.UTC()
	}
	date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

	plan, err := s.engine.Plan(ctx, optimizer.PlanInput{
		Start:       &optimizer.Location{ID: optimizer.StartID, Lat: req.Start.Lat, Lon: req.Start.Lon},
		Stops:       stops,
		Windows:     visit.WindowsByCustomer(windows),
		Day:         date.Weekday(),
		Preferences: prefs,
	})
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	rt := buildRoute(req, date, plan, prefs, now)
	rt.Plan.ExcludedCount = excluded
	rt.Plan.MissingCount = missing
	rt.Plan.OptimizationMs = now.Sub(started).Milliseconds()
	rt.Warnings = append(rt.Warnings, optimizer.DataQualityWarnings(excluded, missing)...)

	if err := s.repo.Create(ctx, rt, historyFor(rt, newHistoryID())); err != nil {
		return nil, fmt.Errorf("store route: %w", err)
	}

	if !plan.Converged && s.nonConverged != nil {
		s.nonConverged.Add(ctx, 1)
	}

	event := s.logger.Info()
	if !plan.Converged {
		event = s.logger.Warn()
	}
	event.
		Str("tenant_id", rt.TenantID).
		Str("route_id", rt.ID).
		Int("visits", len(stops)).
		Int("excluded", excluded).
		Int("missing", missing).
		Float64("initial_km", plan.InitialKm).
		Float64("final_km", rt.Plan.DistanceKm).
		Int("iterations", plan.TwoOptIterations).
		Bool("converged", plan.Converged).
		Int64("duration_ms", rt.Plan.OptimizationMs).
		Msg("route optimized")

	return rt, nil
}

func buildRoute(req OptimizeRequest, date time.Time, plan *optimizer.Plan, prefs optimizer.Preferences, now time.Time) *Route {
	rt := &Route{
		ID:            "rte_" + uuid.New().String(),
		TenantID:      req.TenantID,
		SalespersonID: req.SalespersonID,
		RouteDate:     date,
		Status:        StatusPlanned,
		Start:         *req.Start,
		Stops:         make([]Stop, len(plan.Route)),
		Preferences:   prefs,
		Warnings:      plan.Warnings,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	points := make([]polyline.Point, len(plan.Route))
	for i, loc := range plan.Route {
		m := plan.Metrics.Stops[i]
		stop := Stop{
			Sequence:     i,
			LocationID:   loc.ID,
			CustomerID:   loc.CustomerID,
			Lat:          loc.Lat,
			Lon:          loc.Lon,
			Potential:    loc.Potential,
			LegKm:        m.LegKm,
			CumulativeKm: m.CumulativeKm,
			Arrival:      m.Arrival,
			Departure:    m.Departure,
		}
		if w, ok := plan.Windows[loc.ID]; ok {
			stop.Window = &StopWindow{Start: w.Start, End: w.End, Strict: w.Strict}
		}
		rt.Stops[i] = stop
		points[i] = polyline.Point{Lat: loc.Lat, Lon: loc.Lon}
	}
	rt.Polyline = polyline.Encode(points)

	rt.Plan = Plan{
		DistanceKm:       plan.Metrics.TotalKm,
		TravelMinutes:    plan.Metrics.TravelMinutes,
		DurationMinutes:  float64(plan.Metrics.EndOfDay - prefs.WorkStart),
		FuelCost:         plan.Metrics.FuelCost,
		EstimatedEnd:     plan.Metrics.EndOfDay,
		InitialKm:        plan.InitialKm,
		SavedKm:          plan.InitialKm - plan.TwoOptKm,
		TwoOptIterations: plan.TwoOptIterations,
		Converged:        plan.Converged,
	}
	return rt
}

// Get returns a route of the tenant.
func (s *Service) Get(ctx context.Context, tenantID, routeID string) (*Route, error) {
	return s.repo.Get(ctx, tenantID, routeID)
}

// Start moves a planned route to in_progress. Starting an in-progress
// route is a no-op.
func (s *Service) Start(ctx context.Context, tenantID, routeID string) (*Route, error) {
	return s.apply(ctx, tenantID, routeID, "start", startTransition)
}

// Complete finishes an in-progress route, recording actuals when given.
// Repeating the call with the stored actuals is a no-op; different actuals
// replace the stored ones and append a history entry.
func (s *Service) Complete(ctx context.Context, tenantID, routeID string, actuals *Actuals) (*Route, error) {
	return s.apply(ctx, tenantID, routeID, "complete", completeTransition(actuals))
}

// Cancel cancels a planned or in-progress route. Cancelling a cancelled
// route is a no-op.
func (s *Service) Cancel(ctx context.Context, tenantID, routeID string) (*Route, error) {
	return s.apply(ctx, tenantID, routeID, "cancel", cancelTransition)
}

func (s *Service) apply(ctx context.Context, tenantID, routeID, action string, t transition) (*Route, error) {
	ctx, span := s.tracer.Start(ctx, "route."+action, trace.WithAttributes(
		attribute.String("tenant_id", tenantID),
		attribute.String("route_id", routeID),
	))
	defer span.End()

	now := s.now().UTC()
	changed := false
	rt, err := s.repo.Mutate(ctx, tenantID, routeID, func(r *Route) (*HistoryEntry, error) {
		ok, err := t(r, now)
		if err != nil || !ok {
			return nil, err
		}
		changed = true
		return historyFor(r, newHistoryID()), nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Bool("changed", changed), attribute.String("status", string(rt.Status)))
	if changed {
		s.logger.Info().
			Str("tenant_id", tenantID).
			Str("route_id", routeID).
			Str("status", string(rt.Status)).
			Msg("route status updated")
	}
	return rt, nil
}

// History returns a route's history, oldest first.
func (s *Service) History(ctx context.Context, tenantID, routeID string) ([]*HistoryEntry, error) {
	return s.repo.ListHistory(ctx, tenantID, routeID)
}

func newHistoryID() string {
	return "rhe_" + uuid.New().String()
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func customerIDs(stops []optimizer.Location) []string {
	seen := make(map[string]struct{}, len(stops))
	var out []string
	for _, s := range stops {
		if s.CustomerID == "" {
			continue
		}
		if _, ok := seen[s.CustomerID]; ok {
			continue
		}
		seen[s.CustomerID] = struct{}{}
		out = append(out, s.CustomerID)
	}
	return out
}

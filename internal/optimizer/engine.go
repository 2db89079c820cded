package optimizer

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fieldroute/fieldroute/internal/geo"
)

const tracerName = "github.com/fieldroute/fieldroute/internal/optimizer"

// DefaultMaxStops bounds the stops accepted by a single run.
const DefaultMaxStops = 200

// EngineConfig holds the guards applied to every run.
type EngineConfig struct {
	MaxStops            int
	TwoOptMaxIterations int
	// Tracer receives the per-phase spans. Defaults to the global provider.
	Tracer trace.Tracer
}

// DefaultEngineConfig returns the default guards.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MaxStops:            DefaultMaxStops,
		TwoOptMaxIterations: DefaultTwoOptIterations,
	}
}

// Engine runs the full planning pipeline.
type Engine struct {
	maxStops      int
	maxIterations int
	tracer        trace.Tracer
}

// NewEngine creates an Engine. Zero config values take their defaults.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.MaxStops <= 0 {
		cfg.MaxStops = DefaultMaxStops
	}
	if cfg.TwoOptMaxIterations <= 0 {
		cfg.TwoOptMaxIterations = DefaultTwoOptIterations
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer(tracerName)
	}
	return &Engine{
		maxStops:      cfg.MaxStops,
		maxIterations: cfg.TwoOptMaxIterations,
		tracer:        cfg.Tracer,
	}
}

// PlanInput is everything a single run needs. Stops must already be
// filtered to valid coordinates; the engine rejects anything else.
type PlanInput struct {
	Start       *Location
	Stops       []Location
	Windows     map[string][]TimeWindow
	Day         time.Weekday
	Preferences Preferences
}

// Plan is the result of a run.
type Plan struct {
	Route   []Location
	Metrics Metrics
	// Windows holds the governing window per stop id.
	Windows           map[string]TimeWindow
	InitialKm         float64
	TwoOptKm          float64
	TwoOptIterations  int
	Converged         bool
	StrictWindowStops int
	Warnings          []Warning
}

// Plan validates the input and runs matrix, construction, 2-opt,
// scheduling and metrics in that order.
func (e *Engine) Plan(ctx context.Context, in PlanInput) (*Plan, error) {
	if err := e.validate(in); err != nil {
		return nil, err
	}

	start := *in.Start
	start.ID = StartID
	prefs := in.Preferences

	nodes := make([]Location, 0, len(in.Stops)+2)
	nodes = append(nodes, start)
	nodes = append(nodes, in.Stops...)
	if prefs.ReturnToStart {
		nodes = append(nodes, endFor(start))
	}

	_, span := e.tracer.Start(ctx, "optimizer.matrix", trace.WithAttributes(attribute.Int("nodes", len(nodes))))
	m, err := geo.BuildMatrix(nodes)
	span.End()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	_, span = e.tracer.Start(ctx, "optimizer.construct")
	initial := NearestNeighbor(start, in.Stops, m, prefs.ReturnToStart)
	span.End()

	_, span = e.tracer.Start(ctx, "optimizer.two_opt")
	improved := TwoOpt(initial, m, e.maxIterations)
	span.SetAttributes(
		attribute.Int("iterations", improved.Iterations),
		attribute.Bool("converged", improved.Converged),
		attribute.Float64("initial_km", improved.InitialKm),
		attribute.Float64("final_km", improved.FinalKm),
	)
	span.End()

	_, span = e.tracer.Start(ctx, "optimizer.schedule")
	sched := ApplyTimeWindows(improved.Route, in.Windows, in.Day)
	span.SetAttributes(attribute.Int("strict_stops", sched.Strict))
	span.End()

	_, span = e.tracer.Start(ctx, "optimizer.metrics")
	metrics := ComputeMetrics(sched.Route, m, prefs)
	span.End()

	plan := &Plan{
		Route:             sched.Route,
		Metrics:           metrics,
		Windows:           sched.Windows,
		InitialKm:         improved.InitialKm,
		TwoOptKm:          improved.FinalKm,
		TwoOptIterations:  improved.Iterations,
		Converged:         improved.Converged,
		StrictWindowStops: sched.Strict,
	}
	plan.Warnings = planWarnings(plan, len(in.Stops), prefs, e.maxIterations)
	return plan, nil
}

func (e *Engine) validate(in PlanInput) error {
	if in.Start == nil {
		return invalid("start_location", "is required")
	}
	if !geo.ValidCoordinates(in.Start.Lat, in.Start.Lon) {
		return invalid("start_location", "coordinates (%g, %g) are not valid", in.Start.Lat, in.Start.Lon)
	}
	if len(in.Stops) == 0 {
		return invalid("visit_ids", "no stops with valid coordinates")
	}
	if len(in.Stops) > e.maxStops {
		return invalid("visit_ids", "requested %d stops, at most %d are allowed", len(in.Stops), e.maxStops)
	}

	seen := make(map[string]struct{}, len(in.Stops))
	for _, s := range in.Stops {
		if s.ID == "" || s.IsTerminal() {
			return invalid("visit_ids", "stop id %q is reserved or empty", s.ID)
		}
		if _, dup := seen[s.ID]; dup {
			return invalid("visit_ids", "stop %q appears more than once", s.ID)
		}
		seen[s.ID] = struct{}{}
		if !geo.ValidCoordinates(s.Lat, s.Lon) {
			return invalid("visit_ids", "stop %q has invalid coordinates (%g, %g)", s.ID, s.Lat, s.Lon)
		}
	}

	return in.Preferences.Validate()
}

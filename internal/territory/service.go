package territory

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fieldroute/fieldroute/internal/lock"
	"github.com/fieldroute/fieldroute/internal/visit"
)

const instrumentationName = "github.com/fieldroute/fieldroute/internal/territory"

// VisitReader reads a tenant's visit history.
type VisitReader interface {
	ListHistory(ctx context.Context, tenantID string) ([]*visit.Visit, error)
}

// ServiceConfig holds configuration for the clustering service.
type ServiceConfig struct {
	Visits     VisitReader
	Repository Repository
	Locker     lock.Locker
	Logger     zerolog.Logger

	// MaxIterations caps k-means passes when a request does not set it.
	MaxIterations int

	// LockTTL bounds how long a crashed run can block the tenant.
	LockTTL time.Duration

	// Deterministic makes runs without an explicit seed use DefaultSeed
	// instead of a random one.
	Deterministic bool

	Tracer trace.Tracer
	Meter  metric.Meter
}

// Service runs clustering for tenants.
type Service struct {
	visits        VisitReader
	repo          Repository
	locker        lock.Locker
	logger        zerolog.Logger
	maxIterations int
	lockTTL       time.Duration
	deterministic bool
	tracer        trace.Tracer
	runs          metric.Int64Counter
}

// NewService creates a new clustering service.
func NewService(cfg ServiceConfig) *Service {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 5 * time.Minute
	}
	if cfg.Locker == nil {
		cfg.Locker = lock.NewLocalLocker()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer(instrumentationName)
	}
	if cfg.Meter == nil {
		cfg.Meter = otel.Meter(instrumentationName)
	}

	runs, err := cfg.Meter.Int64Counter(
		"fieldroute.clustering.runs.total",
		metric.WithDescription("Clustering runs by outcome"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		cfg.Logger.Warn().Err(err).Msg("failed to create clustering counter")
	}

	return &Service{
		visits:        cfg.Visits,
		repo:          cfg.Repository,
		locker:        cfg.Locker,
		logger:        cfg.Logger,
		maxIterations: cfg.MaxIterations,
		lockTTL:       cfg.LockTTL,
		deterministic: cfg.Deterministic,
		tracer:        cfg.Tracer,
		runs:          runs,
	}
}

// ClusterVisits clusters the tenant's geotagged history into opts.K
// territories and replaces the tenant's stored cluster set.
func (s *Service) ClusterVisits(ctx context.Context, tenantID string, opts Options) (*ClusterSet, error) {
	ctx, span := s.tracer.Start(ctx, "territory.cluster", trace.WithAttributes(
		attribute.String("tenant_id", tenantID),
		attribute.Int("k", opts.K),
	))
	defer span.End()

	set, err := s.clusterVisits(ctx, tenantID, opts)
	s.record(ctx, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("clusters", len(set.Clusters)),
		attribute.Int("iterations", set.Iterations),
		attribute.Bool("converged", set.Converged),
	)
	return set, nil
}

func (s *Service) clusterVisits(ctx context.Context, tenantID string, opts Options) (*ClusterSet, error) {
	if opts.K < 1 {
		return nil, ErrInvalidOptions
	}

	lease, err := s.locker.TryLock(ctx, "cluster:"+tenantID, s.lockTTL)
	if err != nil {
		if errors.Is(err, lock.ErrLocked) {
			return nil, ErrRunInProgress
		}
		return nil, err
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn().Err(err).Str("tenant_id", tenantID).Msg("failed to release clustering lock")
		}
	}()

	history, err := s.visits.ListHistory(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("read visit history: %w", err)
	}

	points := make([]Point, 0, len(history))
	excluded := 0
	for _, v := range history {
		if !v.Geotagged() {
			excluded++
			continue
		}
		points = append(points, Point{ID: v.ID, Lat: *v.Lat, Lon: *v.Lon, Potential: v.Potential})
	}

	if opts.MaxIterations <= 0 {
		opts.MaxIterations = s.maxIterations
	}
	if opts.Seed == nil {
		seed := s.nextSeed()
		opts.Seed = &seed
	}

	start := time.Now()
	res, err := KMeans(points, opts)
	if err != nil {
		return nil, err
	}

	set := &ClusterSet{
		ID:            "cls_" + uuid.New().String(),
		TenantID:      tenantID,
		K:             opts.K,
		Seed:          res.Seed,
		Iterations:    res.Iterations,
		Converged:     res.Converged,
		PointCount:    len(points),
		ExcludedCount: excluded,
		Clusters:      res.Clusters,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.repo.ReplaceClusterSet(ctx, set); err != nil {
		return nil, fmt.Errorf("store cluster set: %w", err)
	}

	event := s.logger.Info()
	if !res.Converged {
		event = s.logger.Warn()
	}
	event.
		Str("tenant_id", tenantID).
		Str("cluster_set_id", set.ID).
		Int("k", opts.K).
		Int("clusters", len(set.Clusters)).
		Int("points", len(points)).
		Int("excluded", excluded).
		Int64("seed", res.Seed).
		Int("iterations", res.Iterations).
		Bool("converged", res.Converged).
		Dur("duration", time.Since(start)).
		Msg("clustering run completed")

	return set, nil
}

// GetClusterSet returns the tenant's latest cluster set.
func (s *Service) GetClusterSet(ctx context.Context, tenantID string) (*ClusterSet, error) {
	return s.repo.GetLatest(ctx, tenantID)
}

func (s *Service) nextSeed() int64 {
	if s.deterministic {
		return DefaultSeed
	}
	return rand.Int63() //nolint:gosec // seed selection only
}

func (s *Service) record(ctx context.Context, err error) {
	if s.runs == nil {
		return
	}
	outcome := "success"
	switch {
	case err == nil:
	case errors.Is(err, ErrInsufficientData):
		outcome = "insufficient_data"
	case errors.Is(err, ErrRunInProgress):
		outcome = "in_progress"
	default:
		outcome = "error"
	}
	s.runs.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

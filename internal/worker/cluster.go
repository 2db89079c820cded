package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/fieldroute/fieldroute/internal/territory"
)

// Clusterer runs one tenant's clustering.
type Clusterer interface {
	ClusterVisits(ctx context.Context, tenantID string, opts territory.Options) (*territory.ClusterSet, error)
}

// ClusterJob clusters many tenants with a bounded worker pool.
type ClusterJob struct {
	config    Config
	clusterer Clusterer
	logger    zerolog.Logger
	metrics   *JobMetrics
}

// JobMetrics tracks cumulative job statistics.
type JobMetrics struct {
	mu sync.RWMutex

	Runs      int64
	Succeeded int64
	Skipped   int64
	Failed    int64

	LastRunAt       time.Time
	LastRunDuration time.Duration
}

// ClusterJobConfig holds configuration for creating a ClusterJob.
type ClusterJobConfig struct {
	Config    Config
	Clusterer Clusterer
	Logger    zerolog.Logger
}

// NewClusterJob creates a new clustering job.
func NewClusterJob(cfg ClusterJobConfig) *ClusterJob {
	return &ClusterJob{
		config:    cfg.Config.withDefaults(),
		clusterer: cfg.Clusterer,
		logger:    cfg.Logger,
		metrics:   &JobMetrics{},
	}
}

// RunResult is the outcome of one job over a tenant list.
type RunResult struct {
	StartTime time.Time
	Duration  time.Duration
	Total     int
	Succeeded int
	// Skipped counts tenants with too little data or a run already in
	// progress elsewhere.
	Skipped int
	Failed  int
	Errors  []TenantError
}

// TenantError records a failed or skipped tenant.
type TenantError struct {
	TenantID string
	Skipped  bool
	Error    string
}

// Run clusters each tenant with opts. A zero opts.K uses the configured
// default.
func (j *ClusterJob) Run(ctx context.Context, tenantIDs []string, opts territory.Options) *RunResult {
	start := time.Now()
	result := &RunResult{StartTime: start, Total: len(tenantIDs)}
	if opts.K <= 0 {
		opts.K = j.config.DefaultK
	}

	j.logger.Info().
		Int("tenants", len(tenantIDs)).
		Int("k", opts.K).
		Int("concurrency", j.config.Concurrency).
		Msg("starting clustering job")

	tenants := make(chan string, len(tenantIDs))
	results := make(chan tenantResult, len(tenantIDs))

	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.clusterWorker(ctx, opts, tenants, results)
		}()
	}

	for _, id := range tenantIDs {
		tenants <- id
	}
	close(tenants)

	go func() {
		wg.Wait()
		close(results)
	}()

	for tr := range results {
		switch {
		case tr.err == nil:
			result.Succeeded++
		case tr.skipped:
			result.Skipped++
			result.Errors = append(result.Errors, TenantError{TenantID: tr.tenantID, Skipped: true, Error: tr.err.Error()})
		default:
			result.Failed++
			result.Errors = append(result.Errors, TenantError{TenantID: tr.tenantID, Error: tr.err.Error()})
		}
	}

	// Tenants never picked up before cancellation count as failed
	if missed := result.Total - result.Succeeded - result.Skipped - result.Failed; missed > 0 {
		result.Failed += missed
	}
	result.Duration = time.Since(start)

	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("succeeded", result.Succeeded).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("clustering job completed")

	return result
}

type tenantResult struct {
	tenantID string
	err      error
	skipped  bool
}

func (j *ClusterJob) clusterWorker(ctx context.Context, opts territory.Options, tenants <-chan string, results chan<- tenantResult) {
	for tenantID := range tenants {
		select {
		case <-ctx.Done():
			return
		default:
			results <- j.clusterTenant(ctx, tenantID, opts)
		}
	}
}

func (j *ClusterJob) clusterTenant(ctx context.Context, tenantID string, opts territory.Options) tenantResult {
	tenantCtx, cancel := context.WithTimeout(ctx, j.config.TenantTimeout)
	defer cancel()

	set, err := j.clusterer.ClusterVisits(tenantCtx, tenantID, opts)
	if err != nil {
		skipped := errors.Is(err, territory.ErrInsufficientData) || errors.Is(err, territory.ErrRunInProgress)
		event := j.logger.Error()
		if skipped {
			event = j.logger.Info()
		}
		event.Err(err).Str("tenant_id", tenantID).Bool("skipped", skipped).Msg("tenant clustering not completed")
		return tenantResult{tenantID: tenantID, err: err, skipped: skipped}
	}

	j.logger.Debug().
		Str("tenant_id", tenantID).
		Str("cluster_set_id", set.ID).
		Msg("tenant clustered")
	return tenantResult{tenantID: tenantID}
}

func (j *ClusterJob) updateMetrics(result *RunResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.Runs++
	j.metrics.Succeeded += int64(result.Succeeded)
	j.metrics.Skipped += int64(result.Skipped)
	j.metrics.Failed += int64(result.Failed)
	j.metrics.LastRunAt = result.StartTime.Add(result.Duration)
	j.metrics.LastRunDuration = result.Duration
}

// Metrics returns a copy of the cumulative metrics.
func (j *ClusterJob) Metrics() JobMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return JobMetrics{
		Runs:            j.metrics.Runs,
		Succeeded:       j.metrics.Succeeded,
		Skipped:         j.metrics.Skipped,
		Failed:          j.metrics.Failed,
		LastRunAt:       j.metrics.LastRunAt,
		LastRunDuration: j.metrics.LastRunDuration,
	}
}

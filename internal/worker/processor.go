package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/fieldroute/fieldroute/internal/territory"
)

// Job types accepted on the subscription.
const (
	JobClusterVisits = "cluster_visits"
	JobHealthCheck   = "health_check"
)

// ErrMalformedMessage is returned for messages that cannot be decoded or
// describe an impossible job.
var ErrMalformedMessage = errors.New("malformed job message")

// JobMessage is the Pub/Sub message payload.
type JobMessage struct {
	JobType       string   `json:"job_type"`
	TenantIDs     []string `json:"tenant_ids,omitempty"`
	K             int      `json:"k,omitempty"`
	Seed          *int64   `json:"seed,omitempty"`
	MaxIterations int      `json:"max_iterations,omitempty"`
}

// Pinger reports store connectivity for health_check jobs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Processor decodes and runs job messages. A nil error means the message
// should be acked.
type Processor struct {
	job    *ClusterJob
	checks map[string]Pinger
	logger zerolog.Logger
}

// NewProcessor creates a Processor.
func NewProcessor(job *ClusterJob, checks map[string]Pinger, logger zerolog.Logger) *Processor {
	return &Processor{job: job, checks: checks, logger: logger}
}

// Process runs one message. Unknown job types are logged and acked.
func (p *Processor) Process(ctx context.Context, data []byte) error {
	var msg JobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("%w: %s", ErrMalformedMessage, err.Error())
	}

	switch msg.JobType {
	case JobClusterVisits:
		return p.clusterVisits(ctx, msg)
	case JobHealthCheck:
		return p.healthCheck(ctx)
	default:
		p.logger.Warn().Str("job_type", msg.JobType).Msg("unknown job type")
		return nil
	}
}

func (p *Processor) clusterVisits(ctx context.Context, msg JobMessage) error {
	if len(msg.TenantIDs) == 0 {
		return fmt.Errorf("%w: tenant_ids is required", ErrMalformedMessage)
	}
	if msg.K < 0 {
		return fmt.Errorf("%w: k must be positive", ErrMalformedMessage)
	}

	result := p.job.Run(ctx, msg.TenantIDs, territory.Options{
		K:             msg.K,
		Seed:          msg.Seed,
		MaxIterations: msg.MaxIterations,
	})

	if result.Failed > result.Succeeded {
		return fmt.Errorf("too many clustering failures: %d/%d", result.Failed, result.Total)
	}
	return nil
}

func (p *Processor) healthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	for name, c := range p.checks {
		if err := c.Ping(ctx); err != nil {
			return fmt.Errorf("health check %s: %w", name, err)
		}
	}
	p.logger.Debug().Msg("health check passed")
	return nil
}

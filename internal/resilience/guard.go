// Package resilience wraps idempotent store reads in retries with
// exponential backoff and a circuit breaker.
//
// Writes are never routed through a Guard: a failed write is surfaced to the
// caller unchanged.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// GuardConfig holds configuration for a Guard.
type GuardConfig struct {
	Name string

	// MaxRetries is the number of retries after the first attempt.
	MaxRetries uint64

	InitialInterval time.Duration
	MaxInterval     time.Duration

	CircuitBreaker *CircuitBreakerConfig

	// Permanent reports errors that are answers rather than faults, such as
	// not-found. They are returned immediately and do not count against the
	// breaker.
	Permanent func(error) bool

	// Registry, when set, tracks this guard for health reporting.
	Registry *Registry
}

// DefaultGuardConfig returns the default guard configuration.
func DefaultGuardConfig(name string) GuardConfig {
	cbConfig := DefaultCircuitBreakerConfig(name)
	return GuardConfig{
		Name:            name,
		MaxRetries:      3,
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		CircuitBreaker:  &cbConfig,
	}
}

// Guard applies retry and circuit breaking to a class of operations.
type Guard struct {
	name           string
	circuitBreaker *gobreaker.CircuitBreaker[any]
	config         GuardConfig
	registry       *Registry
}

// NewGuard creates a Guard. Zero config values take their defaults.
func NewGuard(cfg GuardConfig) *Guard {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 50 * time.Millisecond
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = 2 * time.Second
	}
	if cfg.CircuitBreaker == nil {
		defaultCB := DefaultCircuitBreakerConfig(cfg.Name)
		cfg.CircuitBreaker = &defaultCB
	}

	g := &Guard{
		name:     cfg.Name,
		config:   cfg,
		registry: cfg.Registry,
	}
	g.circuitBreaker = newCircuitBreaker[any](*cfg.CircuitBreaker, func(err error) bool {
		return err == nil || g.isPermanent(err)
	})

	if cfg.Registry != nil {
		cfg.Registry.Register(cfg.Name, g)
	}

	return g
}

// Name returns the guard name.
func (g *Guard) Name() string { return g.name }

// State returns the current breaker state.
func (g *Guard) State() gobreaker.State { return g.circuitBreaker.State() }

// Counts returns the current breaker counts.
func (g *Guard) Counts() gobreaker.Counts { return g.circuitBreaker.Counts() }

func (g *Guard) isPermanent(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return g.config.Permanent != nil && g.config.Permanent(err)
}

// Execute runs op under g. A nil guard runs op directly.
func Execute[T any](ctx context.Context, g *Guard, op func(context.Context) (T, error)) (T, error) {
	var result T
	if g == nil {
		return op(ctx)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = g.config.InitialInterval
	bo.MaxInterval = g.config.MaxInterval
	bo.MaxElapsedTime = 0 // bounded by WithMaxRetries

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, g.config.MaxRetries), ctx)

	operation := func() error {
		v, err := g.circuitBreaker.Execute(func() (any, error) {
			v, err := op(ctx)
			return v, err
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(ErrCircuitOpen)
			}
			if g.isPermanent(err) {
				return backoff.Permanent(err)
			}
			return err
		}

		result, _ = v.(T)
		return nil
	}

	err := backoff.Retry(operation, policy)
	if g.registry != nil {
		if err == nil || g.isPermanent(err) {
			g.registry.RecordSuccess(g.name)
		} else {
			g.registry.RecordFailure(g.name, err)
		}
	}
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

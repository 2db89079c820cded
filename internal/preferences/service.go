package preferences

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/fieldroute/fieldroute/internal/optimizer"
	"github.com/fieldroute/fieldroute/internal/resilience"
)

// ServiceConfig holds configuration for the preferences service.
type ServiceConfig struct {
	Repository Repository
	Logger     zerolog.Logger
	CacheTTL   time.Duration // How long resolved preferences stay cached
	Defaults   *optimizer.Preferences
	// Guard wraps repository reads. Optional.
	Guard *resilience.Guard
}

// Service resolves preferences with caching and default fallback.
type Service struct {
	repo     Repository
	logger   zerolog.Logger
	cacheTTL time.Duration
	defaults optimizer.Preferences
	guard    *resilience.Guard

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	resolved Resolved
	expires  time.Time
}

// NewService creates a new preferences service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 1 * time.Minute
	}

	defaults := optimizer.DefaultPreferences()
	if cfg.Defaults != nil {
		defaults = *cfg.Defaults
	}

	return &Service{
		repo:     cfg.Repository,
		logger:   cfg.Logger,
		cacheTTL: cacheTTL,
		defaults: defaults,
		guard:    cfg.Guard,
		cache:    make(map[string]cacheEntry),
	}
}

// Defaults returns the configured fallback preferences.
func (s *Service) Defaults() optimizer.Preferences {
	return s.defaults
}

// Get resolves the effective preferences: the salesperson row, then the
// tenant row, then the configured defaults. Only a missing row falls
// through; any other store error is returned.
func (s *Service) Get(ctx context.Context, tenantID, salespersonID string) (Resolved, error) {
	key := scopeKey(tenantID, salespersonID)
	if r, ok := s.getCached(key); ok {
		return r, nil
	}

	lookups := []struct {
		salespersonID string
		source        Source
	}{
		{salespersonID, SourceSalesperson},
		{"", SourceTenant},
	}
	if salespersonID == "" {
		lookups = lookups[1:]
	}

	for _, l := range lookups {
		rec, err := s.read(ctx, tenantID, l.salespersonID)
		if err == nil {
			r := Resolved{Preferences: rec.Preferences, Source: l.source}
			s.setCached(key, r)
			return r, nil
		}
		if !errors.Is(err, ErrPreferencesNotFound) {
			return Resolved{}, fmt.Errorf("read preferences: %w", err)
		}
	}

	s.logger.Debug().
		Str("tenant_id", tenantID).
		Str("salesperson_id", salespersonID).
		Msg("no stored route preferences, using defaults")

	r := Resolved{Preferences: s.defaults, Source: SourceDefault}
	s.setCached(key, r)
	return r, nil
}

func (s *Service) read(ctx context.Context, tenantID, salespersonID string) (*Record, error) {
	return resilience.Execute(ctx, s.guard, func(ctx context.Context) (*Record, error) {
		return s.repo.Get(ctx, tenantID, salespersonID)
	})
}

// Put validates and stores preferences for a scope. An empty salespersonID
// writes the tenant-wide row.
func (s *Service) Put(ctx context.Context, tenantID, salespersonID string, prefs optimizer.Preferences) (*Record, error) {
	if err := prefs.Validate(); err != nil {
		return nil, err
	}

	rec := &Record{
		TenantID:      tenantID,
		SalespersonID: salespersonID,
		Preferences:   prefs,
		UpdatedAt:     time.Now().UTC(),
	}
	if err := s.repo.Put(ctx, rec); err != nil {
		return nil, err
	}

	// A tenant-wide change can alter every salesperson of the tenant.
	if salespersonID == "" {
		s.InvalidateTenant(tenantID)
	} else {
		s.setCached(scopeKey(tenantID, salespersonID), Resolved{Preferences: prefs, Source: SourceSalesperson})
	}
	return rec, nil
}

// InvalidateTenant drops every cached entry of a tenant.
func (s *Service) InvalidateTenant(tenantID string) {
	prefix := tenantID + "/"

	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.cache {
		if strings.HasPrefix(k, prefix) {
			delete(s.cache, k)
		}
	}
}

// InvalidateCache clears the whole cache.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]cacheEntry)
}

func (s *Service) getCached(key string) (Resolved, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.cache[key]
	if !ok || time.Now().After(e.expires) {
		return Resolved{}, false
	}
	return e.resolved, true
}

func (s *Service) setCached(key string, r Resolved) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[key] = cacheEntry{resolved: r, expires: time.Now().Add(s.cacheTTL)}
}

package route

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use the PostgreSQL implementation.
type InMemoryRepository struct {
	mu      sync.Mutex
	routes  map[string]*Route // keyed by route ID
	history []*HistoryEntry
}

// NewInMemoryRepository creates a new in-memory route repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		routes: make(map[string]*Route),
	}
}

// Create inserts a route and its first history entry.
func (r *InMemoryRepository) Create(_ context.Context, rt *Route, entry *HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.routes[rt.ID] = copyRoute(rt)
	if entry != nil {
		e := *entry
		r.history = append(r.history, &e)
	}
	return nil
}

// Get returns a route of the tenant.
func (r *InMemoryRepository) Get(_ context.Context, tenantID, routeID string) (*Route, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rt, ok := r.routes[routeID]
	if !ok || rt.TenantID != tenantID {
		return nil, ErrRouteNotFound
	}
	return copyRoute(rt), nil
}

// Mutate applies fn to a copy under the repository lock and stores it only
// when fn returns a history entry.
func (r *InMemoryRepository) Mutate(_ context.Context, tenantID, routeID string, fn MutateFunc) (*Route, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.routes[routeID]
	if !ok || stored.TenantID != tenantID {
		return nil, ErrRouteNotFound
	}

	working := copyRoute(stored)
	entry, err := fn(working)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return copyRoute(stored), nil
	}

	r.routes[routeID] = copyRoute(working)
	e := *entry
	r.history = append(r.history, &e)
	return working, nil
}

// ListHistory returns a route's history, oldest first.
func (r *InMemoryRepository) ListHistory(_ context.Context, tenantID, routeID string) ([]*HistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rt, ok := r.routes[routeID]; !ok || rt.TenantID != tenantID {
		return nil, ErrRouteNotFound
	}

	var out []*HistoryEntry
	for _, e := range r.history {
		if e.RouteID == routeID {
			c := *e
			out = append(out, &c)
		}
	}
	return out, nil
}

// ListHistoryRange returns the tenant's history recorded in [from, to).
func (r *InMemoryRepository) ListHistoryRange(_ context.Context, tenantID, salespersonID string, from, to time.Time) ([]*HistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*HistoryEntry
	for _, e := range r.history {
		if e.TenantID != tenantID {
			continue
		}
		if salespersonID != "" && e.SalespersonID != salespersonID {
			continue
		}
		if e.RecordedAt.Before(from) || !e.RecordedAt.Before(to) {
			continue
		}
		c := *e
		out = append(out, &c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RecordedAt.Before(out[j].RecordedAt) })
	return out, nil
}

// Ping always succeeds.
func (r *InMemoryRepository) Ping(context.Context) error { return nil }

package visit

import (
	"context"
	"sort"
	"sync"

	"github.com/fieldroute/fieldroute/internal/optimizer"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use the PostgreSQL implementation.
type InMemoryRepository struct {
	mu      sync.RWMutex
	visits  map[string]*Visit // keyed by tenant ID + visit ID
	order   []string
	windows map[string][]optimizer.TimeWindow // keyed by tenant ID
}

// NewInMemoryRepository creates a new in-memory visit repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		visits:  make(map[string]*Visit),
		windows: make(map[string][]optimizer.TimeWindow),
	}
}

func visitKey(tenantID, visitID string) string {
	return tenantID + "/" + visitID
}

// AddVisit stores a visit, replacing any visit with the same id.
func (r *InMemoryRepository) AddVisit(v *Visit) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := visitKey(v.TenantID, v.ID)
	if _, ok := r.visits[key]; !ok {
		r.order = append(r.order, key)
	}
	r.visits[key] = copyVisit(v)
}

// AddTimeWindow stores a time window for a tenant.
func (r *InMemoryRepository) AddTimeWindow(tenantID string, w optimizer.TimeWindow) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.windows[tenantID] = append(r.windows[tenantID], w)
}

// GetVisits returns the tenant's visits with the given ids.
func (r *InMemoryRepository) GetVisits(_ context.Context, tenantID string, ids []string) ([]*Visit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Visit, 0, len(ids))
	for _, id := range ids {
		if v, ok := r.visits[visitKey(tenantID, id)]; ok {
			out = append(out, copyVisit(v))
		}
	}
	return out, nil
}

// ListHistory returns every visit of the tenant in insertion order.
func (r *InMemoryRepository) ListHistory(_ context.Context, tenantID string) ([]*Visit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Visit
	for _, key := range r.order {
		v := r.visits[key]
		if v.TenantID == tenantID {
			out = append(out, copyVisit(v))
		}
	}
	return out, nil
}

// ActiveTimeWindows returns active windows for the given customers.
func (r *InMemoryRepository) ActiveTimeWindows(_ context.Context, tenantID string, customerIDs []string) ([]optimizer.TimeWindow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wanted := make(map[string]struct{}, len(customerIDs))
	for _, id := range customerIDs {
		wanted[id] = struct{}{}
	}

	var out []optimizer.TimeWindow
	for _, w := range r.windows[tenantID] {
		if _, ok := wanted[w.CustomerID]; ok && w.Active {
			out = append(out, w)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CustomerID < out[j].CustomerID })
	return out, nil
}

// Ping always succeeds.
func (r *InMemoryRepository) Ping(context.Context) error { return nil }

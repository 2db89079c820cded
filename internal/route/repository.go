package route

import (
	"context"
	"time"
)

// MutateFunc changes a route in place and returns the history entry to
// append. A nil entry means the route is unchanged and nothing is written.
type MutateFunc func(r *Route) (*HistoryEntry, error)

// Repository persists routes and their history.
type Repository interface {
	// Create inserts a new route and its "planned" history entry.
	Create(ctx context.Context, r *Route, entry *HistoryEntry) error

	// Get returns a route of the tenant.
	Get(ctx context.Context, tenantID, routeID string) (*Route, error)

	// Mutate loads the route, applies fn and stores the result together with
	// the returned history entry. Concurrent calls for the same route are
	// serialised.
	Mutate(ctx context.Context, tenantID, routeID string, fn MutateFunc) (*Route, error)

	// ListHistory returns a route's history, oldest first.
	ListHistory(ctx context.Context, tenantID, routeID string) ([]*HistoryEntry, error)

	// ListHistoryRange returns the tenant's history recorded in [from, to).
	// An empty salespersonID matches every salesperson.
	ListHistoryRange(ctx context.Context, tenantID, salespersonID string, from, to time.Time) ([]*HistoryEntry, error)

	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error
}

package visit

import (
	"context"

	"github.com/fieldroute/fieldroute/internal/optimizer"
)

// Repository reads visits and customer time windows.
type Repository interface {
	// GetVisits returns the tenant's visits with the given ids, in request
	// order. Unknown ids are skipped, not reported as errors.
	GetVisits(ctx context.Context, tenantID string, ids []string) ([]*Visit, error)

	// ListHistory returns every visit recorded for the tenant, geotagged or not.
	ListHistory(ctx context.Context, tenantID string) ([]*Visit, error)

	// ActiveTimeWindows returns the active windows for the given customers.
	ActiveTimeWindows(ctx context.Context, tenantID string, customerIDs []string) ([]optimizer.TimeWindow, error)

	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error
}

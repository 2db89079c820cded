package visit

import (
	"context"

	"github.com/fieldroute/fieldroute/internal/optimizer"
	"github.com/fieldroute/fieldroute/internal/resilience"
)

// GuardedRepository retries reads of the wrapped repository and stops calling
// it while its circuit is open.
type GuardedRepository struct {
	next    Repository
	visits  *resilience.Guard
	windows *resilience.Guard
}

// NewGuardedRepository wraps next. Visits and windows get separate breakers
// so a failing window table does not block visit reads.
func NewGuardedRepository(next Repository, visits, windows *resilience.Guard) *GuardedRepository {
	return &GuardedRepository{next: next, visits: visits, windows: windows}
}

// GetVisits implements Repository.
func (r *GuardedRepository) GetVisits(ctx context.Context, tenantID string, ids []string) ([]*Visit, error) {
	return resilience.Execute(ctx, r.visits, func(ctx context.Context) ([]*Visit, error) {
		return r.next.GetVisits(ctx, tenantID, ids)
	})
}

// ListHistory implements Repository.
func (r *GuardedRepository) ListHistory(ctx context.Context, tenantID string) ([]*Visit, error) {
	return resilience.Execute(ctx, r.visits, func(ctx context.Context) ([]*Visit, error) {
		return r.next.ListHistory(ctx, tenantID)
	})
}

// ActiveTimeWindows implements Repository.
func (r *GuardedRepository) ActiveTimeWindows(ctx context.Context, tenantID string, customerIDs []string) ([]optimizer.TimeWindow, error) {
	return resilience.Execute(ctx, r.windows, func(ctx context.Context) ([]optimizer.TimeWindow, error) {
		return r.next.ActiveTimeWindows(ctx, tenantID, customerIDs)
	})
}

// Ping bypasses the guards so health checks see the raw store state.
func (r *GuardedRepository) Ping(ctx context.Context) error {
	return r.next.Ping(ctx)
}

package visit_test

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldroute/fieldroute/internal/optimizer"
	"github.com/fieldroute/fieldroute/internal/resilience"
	"github.com/fieldroute/fieldroute/internal/visit"
)

func ptr(f float64) *float64 { return &f }

func TestToLocations_ExcludesInvalidCoordinates(t *testing.T) {
	visits := []*visit.Visit{
		{ID: "ok", CustomerID: "c1", Lat: ptr(12.9), Lon: ptr(77.5), Potential: optimizer.PotentialHigh},
		{ID: "nil-lat", Lon: ptr(77.5)},
		{ID: "zero", Lat: ptr(0), Lon: ptr(0)},
		{ID: "range", Lat: ptr(95), Lon: ptr(77.5)},
		{ID: "nan", Lat: ptr(math.NaN()), Lon: ptr(77.5)},
		{ID: "ok2", Lat: ptr(12.8), Lon: ptr(77.4)},
	}

	locs, excluded := visit.ToLocations(visits)

	assert.Equal(t, 4, excluded)
	require.Len(t, locs, 2)
	assert.Equal(t, "ok", locs[0].ID)
	assert.Equal(t, "c1", locs[0].CustomerID)
	assert.Equal(t, optimizer.PotentialHigh, locs[0].Potential)
	assert.Equal(t, "ok2", locs[1].ID)
}

func TestWindowsByCustomer(t *testing.T) {
	grouped := visit.WindowsByCustomer([]optimizer.TimeWindow{
		{CustomerID: "a", Start: 1},
		{CustomerID: "b", Start: 2},
		{CustomerID: "a", Start: 3},
	})
	assert.Len(t, grouped["a"], 2)
	assert.Len(t, grouped["b"], 1)
}

func TestInMemoryRepository_GetVisitsKeepsRequestOrderAndTenant(t *testing.T) {
	repo := visit.NewInMemoryRepository()
	repo.AddVisit(&visit.Visit{ID: "v1", TenantID: "t1", Lat: ptr(12.9), Lon: ptr(77.5)})
	repo.AddVisit(&visit.Visit{ID: "v2", TenantID: "t1", Lat: ptr(12.8), Lon: ptr(77.4)})
	repo.AddVisit(&visit.Visit{ID: "v3", TenantID: "t2", Lat: ptr(12.7), Lon: ptr(77.3)})

	got, err := repo.GetVisits(context.Background(), "t1", []string{"v2", "missing", "v1", "v3"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "v2", got[0].ID)
	assert.Equal(t, "v1", got[1].ID)

	// Returned values are copies.
	*got[0].Lat = 1
	again, err := repo.GetVisits(context.Background(), "t1", []string{"v2"})
	require.NoError(t, err)
	assert.Equal(t, 12.8, *again[0].Lat)
}

func TestInMemoryRepository_ActiveTimeWindows(t *testing.T) {
	repo := visit.NewInMemoryRepository()
	tue := time.Tuesday
	repo.AddTimeWindow("t1", optimizer.TimeWindow{CustomerID: "c1", Active: true, DayOfWeek: &tue})
	repo.AddTimeWindow("t1", optimizer.TimeWindow{CustomerID: "c1", Active: false})
	repo.AddTimeWindow("t1", optimizer.TimeWindow{CustomerID: "c2", Active: true})
	repo.AddTimeWindow("t2", optimizer.TimeWindow{CustomerID: "c1", Active: true})

	got, err := repo.ActiveTimeWindows(context.Background(), "t1", []string{"c1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, time.Tuesday, *got[0].DayOfWeek)
}

type flakyRepository struct {
	*visit.InMemoryRepository
	failures atomic.Int32
}

func (f *flakyRepository) GetVisits(ctx context.Context, tenantID string, ids []string) ([]*visit.Visit, error) {
	if f.failures.Add(-1) >= 0 {
		return nil, errors.New("connection refused")
	}
	return f.InMemoryRepository.GetVisits(ctx, tenantID, ids)
}

func TestGuardedRepository_RetriesReads(t *testing.T) {
	inner := &flakyRepository{InMemoryRepository: visit.NewInMemoryRepository()}
	inner.AddVisit(&visit.Visit{ID: "v1", TenantID: "t1", Lat: ptr(12.9), Lon: ptr(77.5)})
	inner.failures.Store(2)

	cfg := resilience.DefaultGuardConfig("visits")
	cfg.InitialInterval = time.Millisecond
	cfg.MaxInterval = 2 * time.Millisecond
	guard := resilience.NewGuard(cfg)

	repo := visit.NewGuardedRepository(inner, guard, nil)

	got, err := repo.GetVisits(context.Background(), "t1", []string{"v1"})
	require.NoError(t, err)
	require.Len(t, got, 1)

	windows, err := repo.ActiveTimeWindows(context.Background(), "t1", []string{"c1"})
	require.NoError(t, err)
	assert.Empty(t, windows)
	assert.NoError(t, repo.Ping(context.Background()))
}

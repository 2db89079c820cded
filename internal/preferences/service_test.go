package preferences_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldroute/fieldroute/internal/optimizer"
	"github.com/fieldroute/fieldroute/internal/preferences"
)

type failingRepository struct {
	err   error
	calls int
}

func (f *failingRepository) Get(context.Context, string, string) (*preferences.Record, error) {
	f.calls++
	return nil, f.err
}

func (f *failingRepository) Put(context.Context, *preferences.Record) error { return f.err }

func newService(repo preferences.Repository) *preferences.Service {
	return preferences.NewService(preferences.ServiceConfig{
		Repository: repo,
		Logger:     zerolog.Nop(),
	})
}

func TestService_Get_FallsBackToDefaults(t *testing.T) {
	svc := newService(preferences.NewInMemoryRepository())

	got, err := svc.Get(context.Background(), "t1", "sp1")
	require.NoError(t, err)
	assert.Equal(t, preferences.SourceDefault, got.Source)
	assert.Equal(t, optimizer.DefaultPreferences(), got.Preferences)
}

func TestService_Get_LookupOrder(t *testing.T) {
	repo := preferences.NewInMemoryRepository()
	tenantPrefs := optimizer.DefaultPreferences()
	tenantPrefs.FuelCostPerKm = 7
	spPrefs := optimizer.DefaultPreferences()
	spPrefs.FuelCostPerKm = 12

	require.NoError(t, repo.Put(context.Background(), &preferences.Record{TenantID: "t1", Preferences: tenantPrefs}))
	require.NoError(t, repo.Put(context.Background(), &preferences.Record{TenantID: "t1", SalespersonID: "sp1", Preferences: spPrefs}))

	svc := newService(repo)

	got, err := svc.Get(context.Background(), "t1", "sp1")
	require.NoError(t, err)
	assert.Equal(t, preferences.SourceSalesperson, got.Source)
	assert.Equal(t, 12.0, got.Preferences.FuelCostPerKm)

	got, err = svc.Get(context.Background(), "t1", "sp2")
	require.NoError(t, err)
	assert.Equal(t, preferences.SourceTenant, got.Source)
	assert.Equal(t, 7.0, got.Preferences.FuelCostPerKm)
}

func TestService_Get_StoreErrorIsNotMaskedByDefaults(t *testing.T) {
	storeErr := errors.New("connection refused")
	svc := newService(&failingRepository{err: storeErr})

	_, err := svc.Get(context.Background(), "t1", "sp1")
	require.ErrorIs(t, err, storeErr)
}

func TestService_Get_CachesResolvedPreferences(t *testing.T) {
	repo := &failingRepository{err: preferences.ErrPreferencesNotFound}
	svc := newService(repo)

	_, err := svc.Get(context.Background(), "t1", "sp1")
	require.NoError(t, err)
	calls := repo.calls

	_, err = svc.Get(context.Background(), "t1", "sp1")
	require.NoError(t, err)
	assert.Equal(t, calls, repo.calls)

	svc.InvalidateCache()
	_, err = svc.Get(context.Background(), "t1", "sp1")
	require.NoError(t, err)
	assert.Greater(t, repo.calls, calls)
}

func TestService_Put_ValidatesAndRefreshesCache(t *testing.T) {
	repo := preferences.NewInMemoryRepository()
	svc := preferences.NewService(preferences.ServiceConfig{
		Repository: repo,
		Logger:     zerolog.Nop(),
		CacheTTL:   time.Hour,
	})

	_, err := svc.Get(context.Background(), "t1", "sp1")
	require.NoError(t, err)

	bad := optimizer.DefaultPreferences()
	bad.TravelBuffer = 0.8
	_, err = svc.Put(context.Background(), "t1", "", bad)
	require.ErrorIs(t, err, optimizer.ErrInvalidInput)

	tenant := optimizer.DefaultPreferences()
	tenant.MaxVisitsPerDay = 4
	rec, err := svc.Put(context.Background(), "t1", "", tenant)
	require.NoError(t, err)
	assert.False(t, rec.UpdatedAt.IsZero())

	got, err := svc.Get(context.Background(), "t1", "sp1")
	require.NoError(t, err)
	assert.Equal(t, preferences.SourceTenant, got.Source)
	assert.Equal(t, 4, got.Preferences.MaxVisitsPerDay)
}

func TestService_Defaults(t *testing.T) {
	custom := optimizer.DefaultPreferences()
	custom.ReturnToStart = false

	svc := preferences.NewService(preferences.ServiceConfig{
		Repository: preferences.NewInMemoryRepository(),
		Logger:     zerolog.Nop(),
		Defaults:   &custom,
	})

	got, err := svc.Get(context.Background(), "t1", "")
	require.NoError(t, err)
	assert.False(t, got.Preferences.ReturnToStart)
	assert.False(t, svc.Defaults().ReturnToStart)
}

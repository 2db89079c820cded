package preferences_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldroute/fieldroute/internal/optimizer"
	"github.com/fieldroute/fieldroute/internal/preferences"
)

func TestParseDefaults_OverridesOnlyPresentKeys(t *testing.T) {
	data := []byte(`
work_start_time: "08:30"
lunch_break_duration_minutes: 30
return_to_start: false
weights:
  distance: 0.6
  time: 0.2
  visit_count: 0.2
`)

	p, err := preferences.ParseDefaults(data)
	require.NoError(t, err)

	assert.Equal(t, optimizer.NewClock(8, 30), p.WorkStart)
	assert.Equal(t, 30, p.LunchBreakMinutes)
	assert.False(t, p.ReturnToStart)
	assert.Equal(t, 0.6, p.Weights.Distance)

	defaults := optimizer.DefaultPreferences()
	assert.Equal(t, defaults.WorkEnd, p.WorkEnd)
	assert.Equal(t, defaults.TravelBuffer, p.TravelBuffer)
	assert.Equal(t, defaults.AverageVisitMinutes, p.AverageVisitMinutes)
}

func TestParseDefaults_Invalid(t *testing.T) {
	_, err := preferences.ParseDefaults([]byte(`work_start_time: "9am"`))
	assert.Error(t, err)

	_, err = preferences.ParseDefaults([]byte(`travel_buffer_percentage: 0.5`))
	assert.ErrorIs(t, err, optimizer.ErrInvalidInput)

	// Hours past 23 decode but are not a valid time of day
	_, err = preferences.ParseDefaults([]byte(`work_end_time: "25:00"`))
	assert.ErrorIs(t, err, optimizer.ErrInvalidInput)
}

func TestLoadDefaults(t *testing.T) {
	p, err := preferences.LoadDefaults("")
	require.NoError(t, err)
	assert.Equal(t, optimizer.DefaultPreferences(), p)

	path := filepath.Join(t.TempDir(), "defaults.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fuel_cost_per_km: 8.5\n"), 0o600))

	p, err = preferences.LoadDefaults(path)
	require.NoError(t, err)
	assert.Equal(t, 8.5, p.FuelCostPerKm)

	_, err = preferences.LoadDefaults(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestOverrides_ApplyNil(t *testing.T) {
	var o *preferences.Overrides
	assert.Equal(t, optimizer.DefaultPreferences(), o.Apply(optimizer.DefaultPreferences()))
}

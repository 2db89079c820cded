package optimizer_test

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldroute/fieldroute/internal/optimizer"
)

func TestClock_ParseAndFormat(t *testing.T) {
	c, err := optimizer.ParseClock("09:05")
	require.NoError(t, err)
	assert.Equal(t, optimizer.NewClock(9, 5), c)
	assert.Equal(t, "09:05", c.String())
	assert.Equal(t, "25:10", optimizer.Clock(25*60+10).String())

	for _, bad := range []string{"9:05", "24:00", "12:60", "noon", ""} {
		_, err := optimizer.ParseClock(bad)
		assert.Error(t, err, bad)
	}
}

func TestClock_TextRoundTrip(t *testing.T) {
	for _, c := range []optimizer.Clock{
		optimizer.NewClock(0, 0),
		optimizer.NewClock(13, 30),
		optimizer.NewClock(23, 59),
		optimizer.NewClock(24, 0),
		optimizer.NewClock(25, 15),
		optimizer.NewClock(150, 45),
	} {
		out, err := c.MarshalText()
		require.NoError(t, err)

		var back optimizer.Clock
		require.NoError(t, back.UnmarshalText(out), string(out))
		assert.Equal(t, c, back, string(out))
	}
}

func TestClock_ParseElapsed(t *testing.T) {
	c, err := optimizer.ParseElapsed("24:30")
	require.NoError(t, err)
	assert.Equal(t, optimizer.NewClock(24, 30), c)
	assert.False(t, c.WithinDay())
	assert.True(t, optimizer.NewClock(23, 59).WithinDay())

	for _, bad := range []string{"9:05", "24:60", "-1:00", "ab:cd", ""} {
		_, err := optimizer.ParseElapsed(bad)
		assert.Error(t, err, bad)
	}
}

func TestComputeMetrics_DayOverrunsMidnight(t *testing.T) {
	start := optimizer.Location{ID: optimizer.StartID, Lat: 10, Lon: 10}
	route := []optimizer.Location{start}
	for i := 1; i <= 20; i++ {
		route = append(route, optimizer.Location{ID: fmt.Sprintf("v%d", i), Lat: 10 + float64(i)*0.01, Lon: 10})
	}
	m := matrixFor(t, route...)

	got := optimizer.ComputeMetrics(route, m, optimizer.DefaultPreferences())

	// 09:00 + 20 visits of 45 minutes + 60 minutes lunch is already 01:00 next day
	assert.GreaterOrEqual(t, int(got.EndOfDay), optimizer.MinutesPerDay)
	assert.False(t, got.EndOfDay.WithinDay())

	out, err := got.EndOfDay.MarshalText()
	require.NoError(t, err)
	var back optimizer.Clock
	require.NoError(t, back.UnmarshalText(out))
	assert.Equal(t, got.EndOfDay, back)
}

func TestComputeMetrics_TravelAndVisitTime(t *testing.T) {
	start := optimizer.Location{ID: optimizer.StartID, Lat: 10, Lon: 10}
	a := optimizer.Location{ID: "a", Lat: 10.1, Lon: 10}
	b := optimizer.Location{ID: "b", Lat: 10.2, Lon: 10}
	route := []optimizer.Location{start, a, b}
	m := matrixFor(t, route...)

	prefs := optimizer.DefaultPreferences()
	got := optimizer.ComputeMetrics(route, m, prefs)

	leg1 := m.Between(optimizer.StartID, "a")
	leg2 := m.Between("a", "b")
	travel1 := leg1 / 40 * 60 * 1.2
	travel2 := leg2 / 40 * 60 * 1.2

	require.Len(t, got.Stops, 3)
	assert.Equal(t, optimizer.NewClock(9, 0), got.Stops[0].Arrival)
	assert.Equal(t, optimizer.NewClock(9, 0), got.Stops[0].Departure)

	assert.Equal(t, optimizer.ClockFromMinutes(540+travel1), got.Stops[1].Arrival)
	assert.Equal(t, optimizer.ClockFromMinutes(540+travel1+45), got.Stops[1].Departure)
	assert.InDelta(t, leg1, got.Stops[1].CumulativeKm, 1e-9)

	assert.Equal(t, optimizer.ClockFromMinutes(540+travel1+45+travel2), got.Stops[2].Arrival)
	assert.InDelta(t, leg1+leg2, got.Stops[2].CumulativeKm, 1e-9)
	assert.InDelta(t, leg2, got.Stops[2].LegKm, 1e-9)

	assert.InDelta(t, leg1+leg2, got.TotalKm, 1e-9)
	assert.InDelta(t, travel1+travel2, got.TravelMinutes, 1e-9)
	assert.InDelta(t, (leg1+leg2)*prefs.FuelCostPerKm, got.FuelCost, 1e-9)
	assert.Equal(t, optimizer.ClockFromMinutes(540+travel1+45+travel2+45), got.EndOfDay)
}

func TestComputeMetrics_VisitEndingInLunchClampsDeparture(t *testing.T) {
	start := optimizer.Location{ID: optimizer.StartID, Lat: 10, Lon: 10}
	a := optimizer.Location{ID: "a", Lat: 10.01, Lon: 10}
	route := []optimizer.Location{start, a}
	m := matrixFor(t, route...)

	prefs := optimizer.DefaultPreferences()
	prefs.WorkStart = optimizer.NewClock(12, 0)
	prefs.AverageVisitMinutes = 60

	got := optimizer.ComputeMetrics(route, m, prefs)

	assert.Less(t, got.Stops[1].Arrival, optimizer.NewClock(13, 0))
	assert.Equal(t, optimizer.NewClock(14, 0), got.Stops[1].Departure)
	assert.Equal(t, optimizer.NewClock(14, 0), got.EndOfDay)
}

func TestComputeMetrics_ArrivalInLunchClampsArrival(t *testing.T) {
	start := optimizer.Location{ID: optimizer.StartID, Lat: 10, Lon: 10}
	a := optimizer.Location{ID: "a", Lat: 10.05, Lon: 10}
	route := []optimizer.Location{start, a}
	m := matrixFor(t, route...)

	prefs := optimizer.DefaultPreferences()
	prefs.WorkStart = optimizer.NewClock(12, 58)

	got := optimizer.ComputeMetrics(route, m, prefs)

	assert.Equal(t, optimizer.NewClock(14, 0), got.Stops[1].Arrival)
	assert.Equal(t, optimizer.NewClock(14, 45), got.Stops[1].Departure)
}

func TestComputeMetrics_NoLunchWhenDurationZero(t *testing.T) {
	start := optimizer.Location{ID: optimizer.StartID, Lat: 10, Lon: 10}
	a := optimizer.Location{ID: "a", Lat: 10.05, Lon: 10}
	route := []optimizer.Location{start, a}
	m := matrixFor(t, route...)

	prefs := optimizer.DefaultPreferences()
	prefs.WorkStart = optimizer.NewClock(12, 58)
	prefs.LunchBreakMinutes = 0

	got := optimizer.ComputeMetrics(route, m, prefs)
	travel := m.Between(optimizer.StartID, "a") / 40 * 60 * 1.2
	assert.Equal(t, optimizer.Clock(int(math.Round(778+travel))), got.Stops[1].Arrival)
}

func TestComputeMetrics_EndStopAddsNoVisitTime(t *testing.T) {
	start := optimizer.Location{ID: optimizer.StartID, Lat: 10, Lon: 10}
	a := optimizer.Location{ID: "a", Lat: 10.05, Lon: 10}
	end := optimizer.Location{ID: optimizer.EndID, Lat: 10, Lon: 10}
	route := []optimizer.Location{start, a, end}
	m := matrixFor(t, route...)

	got := optimizer.ComputeMetrics(route, m, optimizer.DefaultPreferences())
	last := got.Stops[2]
	assert.Equal(t, last.Arrival, last.Departure)
	assert.Equal(t, last.Departure, got.EndOfDay)
}

func TestPreferences_Validate(t *testing.T) {
	require.NoError(t, optimizer.DefaultPreferences().Validate())

	tests := []struct {
		name   string
		mutate func(*optimizer.Preferences)
		field  string
	}{
		{"buffer below one", func(p *optimizer.Preferences) { p.TravelBuffer = 0.9 }, "travel_buffer_percentage"},
		{"start after end", func(p *optimizer.Preferences) { p.WorkStart = optimizer.NewClock(19, 0) }, "work_start_time"},
		{"negative lunch", func(p *optimizer.Preferences) { p.LunchBreakMinutes = -1 }, "lunch_break_duration_minutes"},
		{"negative visit", func(p *optimizer.Preferences) { p.AverageVisitMinutes = -5 }, "average_visit_duration_minutes"},
		{"negative fuel", func(p *optimizer.Preferences) { p.FuelCostPerKm = -1 }, "fuel_cost_per_km"},
		{"work end past midnight", func(p *optimizer.Preferences) { p.WorkEnd = optimizer.NewClock(25, 0) }, "work_end_time"},
		{"lunch past midnight", func(p *optimizer.Preferences) { p.LunchBreakStart = optimizer.NewClock(24, 0) }, "lunch_break_start"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := optimizer.DefaultPreferences()
			tt.mutate(&p)

			err := p.Validate()
			require.ErrorIs(t, err, optimizer.ErrInvalidInput)
			var ie *optimizer.InputError
			require.ErrorAs(t, err, &ie)
			assert.Equal(t, tt.field, ie.Field)
		})
	}
}

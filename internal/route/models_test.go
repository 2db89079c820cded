package route_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldroute/fieldroute/internal/optimizer"
	"github.com/fieldroute/fieldroute/internal/route"
)

func TestStoredColumns_RoundTripDayPastMidnight(t *testing.T) {
	stops := []route.Stop{
		{Sequence: 0, LocationID: optimizer.StartID, Arrival: optimizer.NewClock(9, 0), Departure: optimizer.NewClock(9, 0)},
		{
			Sequence:   1,
			LocationID: "v20",
			Arrival:    optimizer.NewClock(24, 30),
			Departure:  optimizer.NewClock(25, 15),
			Window:     &route.StopWindow{Start: optimizer.NewClock(8, 0), End: optimizer.NewClock(23, 0), Strict: true},
		},
		{Sequence: 2, LocationID: optimizer.EndID, Arrival: optimizer.NewClock(25, 40), Departure: optimizer.NewClock(25, 40)},
	}
	plan := route.Plan{DistanceKm: 84.2, DurationMinutes: 1000, EstimatedEnd: optimizer.NewClock(25, 40)}

	stopsJSON, err := json.Marshal(stops)
	require.NoError(t, err)
	assert.Contains(t, string(stopsJSON), `"arrival":"24:30"`)

	var gotStops []route.Stop
	require.NoError(t, json.Unmarshal(stopsJSON, &gotStops))
	assert.Equal(t, stops, gotStops)

	planJSON, err := json.Marshal(plan)
	require.NoError(t, err)

	var gotPlan route.Plan
	require.NoError(t, json.Unmarshal(planJSON, &gotPlan))
	assert.Equal(t, plan, gotPlan)
}

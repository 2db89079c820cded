package optimizer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldroute/fieldroute/internal/geo"
	"github.com/fieldroute/fieldroute/internal/optimizer"
)

func ids(route []optimizer.Location) []string {
	out := make([]string, len(route))
	for i, l := range route {
		out[i] = l.ID
	}
	return out
}

func matrixFor(t *testing.T, locs ...optimizer.Location) *geo.DistanceMatrix {
	t.Helper()
	m, err := geo.BuildMatrix(locs)
	require.NoError(t, err)
	return m
}

func TestPotential_Score(t *testing.T) {
	assert.Equal(t, 100.0, optimizer.PotentialHigh.Score())
	assert.Equal(t, 50.0, optimizer.PotentialMedium.Score())
	assert.Equal(t, 25.0, optimizer.PotentialLow.Score())
	assert.Equal(t, 50.0, optimizer.Potential("").Score())
	assert.Equal(t, 50.0, optimizer.Potential("Platinum").Score())
}

func TestParsePotential(t *testing.T) {
	assert.Equal(t, optimizer.PotentialHigh, optimizer.ParsePotential("high"))
	assert.Equal(t, optimizer.PotentialLow, optimizer.ParsePotential("LOW"))
	assert.Equal(t, optimizer.Potential(""), optimizer.ParsePotential("unknown"))
}

func TestNearestNeighbor_PrefersHighPotentialWithinTenPercent(t *testing.T) {
	start := optimizer.Location{ID: optimizer.StartID, Lat: 10, Lon: 10}
	// Roughly 10.0 km north and 10.5 km south of start.
	low := optimizer.Location{ID: "low", Lat: 10.09, Lon: 10, Potential: optimizer.PotentialLow}
	high := optimizer.Location{ID: "high", Lat: 9.9055, Lon: 10, Potential: optimizer.PotentialHigh}

	m := matrixFor(t, start, low, high)
	require.Less(t, m.Between(optimizer.StartID, "low"), m.Between(optimizer.StartID, "high"))

	route := optimizer.NearestNeighbor(start, []optimizer.Location{low, high}, m, false)
	assert.Equal(t, []string{optimizer.StartID, "high", "low"}, ids(route))
}

func TestNearestNeighbor_ProximityWinsOverLargeGap(t *testing.T) {
	start := optimizer.Location{ID: optimizer.StartID, Lat: 10, Lon: 10}
	low := optimizer.Location{ID: "low", Lat: 10.09, Lon: 10, Potential: optimizer.PotentialLow}
	// Roughly 12 km away: the 10% discount no longer closes the gap.
	high := optimizer.Location{ID: "high", Lat: 9.892, Lon: 10, Potential: optimizer.PotentialHigh}

	m := matrixFor(t, start, low, high)
	route := optimizer.NearestNeighbor(start, []optimizer.Location{high, low}, m, false)
	assert.Equal(t, []string{optimizer.StartID, "low", "high"}, ids(route))
}

func TestNearestNeighbor_TieGoesToFirstCandidate(t *testing.T) {
	start := optimizer.Location{ID: optimizer.StartID, Lat: 10, Lon: 10}
	a := optimizer.Location{ID: "a", Lat: 10.05, Lon: 10}
	b := optimizer.Location{ID: "b", Lat: 9.95, Lon: 10}

	m := matrixFor(t, start, a, b)
	require.Equal(t, m.Between(optimizer.StartID, "a"), m.Between(optimizer.StartID, "b"))

	route := optimizer.NearestNeighbor(start, []optimizer.Location{b, a}, m, false)
	assert.Equal(t, []string{optimizer.StartID, "b", "a"}, ids(route))
}

func TestNearestNeighbor_ReturnToStartAppendsEnd(t *testing.T) {
	start := optimizer.Location{ID: optimizer.StartID, Lat: 10, Lon: 10}
	a := optimizer.Location{ID: "a", Lat: 10.05, Lon: 10.02}
	end := optimizer.Location{ID: optimizer.EndID, Lat: 10, Lon: 10}

	m := matrixFor(t, start, a, end)
	route := optimizer.NearestNeighbor(start, []optimizer.Location{a}, m, true)

	require.Equal(t, []string{optimizer.StartID, "a", optimizer.EndID}, ids(route))
	assert.Equal(t, start.Lat, route[2].Lat)
	assert.Equal(t, start.Lon, route[2].Lon)
}

func TestNearestNeighbor_DoesNotMutateInput(t *testing.T) {
	start := optimizer.Location{ID: optimizer.StartID, Lat: 10, Lon: 10}
	stops := []optimizer.Location{
		{ID: "far", Lat: 10.3, Lon: 10},
		{ID: "near", Lat: 10.01, Lon: 10},
	}
	m := matrixFor(t, start, stops[0], stops[1])

	_ = optimizer.NearestNeighbor(start, stops, m, false)
	assert.Equal(t, "far", stops[0].ID)
	assert.Equal(t, "near", stops[1].ID)
}

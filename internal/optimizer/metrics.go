package optimizer

import (
	"github.com/fieldroute/fieldroute/internal/geo"
)

// AverageSpeedKmh is the assumed constant travel speed.
const AverageSpeedKmh = 40.0

// StopMetrics is the per-stop timing of a route.
type StopMetrics struct {
	LocationID   string
	Sequence     int
	LegKm        float64
	CumulativeKm float64
	Arrival      Clock
	Departure    Clock
}

// Metrics summarises a walked route.
type Metrics struct {
	Stops         []StopMetrics
	TotalKm       float64
	TravelMinutes float64
	FuelCost      float64
	EndOfDay      Clock
}

// ComputeMetrics walks the route from the work start time. Travel time is
// distance at AverageSpeedKmh scaled by the travel buffer, each visit adds
// the average visit duration and a clock that lands inside the lunch break
// jumps to its end.
func ComputeMetrics(route []Location, m *geo.DistanceMatrix, prefs Preferences) Metrics {
	var (
		out        = Metrics{Stops: make([]StopMetrics, 0, len(route))}
		clock      = float64(prefs.WorkStart)
		lunchStart = float64(prefs.LunchBreakStart)
		lunchEnd   = lunchStart + float64(prefs.LunchBreakMinutes)
	)

	clampLunch := func() {
		if prefs.LunchBreakMinutes > 0 && clock >= lunchStart && clock < lunchEnd {
			clock = lunchEnd
		}
	}

	for i, loc := range route {
		stop := StopMetrics{LocationID: loc.ID, Sequence: i}

		if i > 0 {
			leg := m.Between(route[i-1].ID, loc.ID)
			travel := leg / AverageSpeedKmh * 60 * prefs.TravelBuffer

			out.TotalKm += leg
			out.TravelMinutes += travel
			stop.LegKm = leg
			clock += travel
			clampLunch()
		}
		stop.CumulativeKm = out.TotalKm
		stop.Arrival = ClockFromMinutes(clock)

		if !loc.IsTerminal() {
			clock += float64(prefs.AverageVisitMinutes)
			clampLunch()
		}
		stop.Departure = ClockFromMinutes(clock)

		out.Stops = append(out.Stops, stop)
	}

	out.FuelCost = out.TotalKm * prefs.FuelCostPerKm
	out.EndOfDay = ClockFromMinutes(clock)
	return out
}

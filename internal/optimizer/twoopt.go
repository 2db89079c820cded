package optimizer

import (
	"github.com/fieldroute/fieldroute/internal/geo"
)

// DefaultTwoOptIterations bounds the number of full 2-opt passes.
const DefaultTwoOptIterations = 100

// improvementEpsilon keeps floating-point noise from counting as a gain.
const improvementEpsilon = 1e-9

// TwoOptResult is the outcome of TwoOpt.
type TwoOptResult struct {
	Route      []Location
	InitialKm  float64
	FinalKm    float64
	Iterations int
	// Converged is false when the pass limit was reached while the last pass
	// still found an improvement.
	Converged bool
}

// TwoOpt improves a tour by segment reversal. Each pass evaluates every
// reversal of route[i..j] with the first element fixed, and the last one too
// when it is END, then adopts the single best strictly-improving reversal.
// The returned route is never longer than the input.
func TwoOpt(route []Location, m *geo.DistanceMatrix, maxIterations int) TwoOptResult {
	if maxIterations <= 0 {
		maxIterations = DefaultTwoOptIterations
	}

	current := make([]Location, len(route))
	copy(current, route)
	currentKm := m.PathLength(routeIDs(current))

	res := TwoOptResult{InitialKm: currentKm}

	upper := len(current)
	if upper > 0 && current[upper-1].ID == EndID {
		upper--
	}

	improved := true
	for improved && res.Iterations < maxIterations {
		improved = false
		res.Iterations++

		bestI, bestJ := -1, -1
		bestDelta := -improvementEpsilon
		for i := 1; i < upper-1; i++ {
			for j := i + 1; j < upper; j++ {
				if d := reversalDelta(current, m, i, j); d < bestDelta {
					bestI, bestJ, bestDelta = i, j, d
				}
			}
		}

		if bestI >= 0 {
			reverse(current, bestI, bestJ)
			currentKm = m.PathLength(routeIDs(current))
			improved = true
		}
	}

	res.Route = current
	res.FinalKm = currentKm
	res.Converged = !improved
	return res
}

// reversalDelta is the change in tour length from reversing route[i..j].
// Only the two boundary edges change because the matrix is symmetric.
func reversalDelta(route []Location, m *geo.DistanceMatrix, i, j int) float64 {
	prev := route[i-1].ID
	first := route[i].ID
	last := route[j].ID

	delta := m.Between(prev, last) - m.Between(prev, first)
	if j+1 < len(route) {
		next := route[j+1].ID
		delta += m.Between(first, next) - m.Between(last, next)
	}
	return delta
}

func reverse(route []Location, i, j int) {
	for ; i < j; i, j = i+1, j-1 {
		route[i], route[j] = route[j], route[i]
	}
}

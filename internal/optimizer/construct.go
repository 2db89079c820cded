package optimizer

import (
	"math"

	"github.com/fieldroute/fieldroute/internal/geo"
)

// potentialDiscount scales a candidate's potential score into a distance
// discount: a High (100) stop looks 10% closer than it is.
const potentialDiscount = 1000.0

// EffectiveDistance is the biased distance used when choosing the next stop.
func EffectiveDistance(km float64, p Potential) float64 {
	return km * (1 - p.Score()/potentialDiscount)
}

// NearestNeighbor builds the initial tour. It starts at start, repeatedly
// moves to the unvisited stop with the smallest effective distance and, when
// returnToStart is set, appends the synthetic END. Ties go to the stop that
// appears first in stops.
//
// The matrix must contain start, every stop and, when returnToStart is set, END.
func NearestNeighbor(start Location, stops []Location, m *geo.DistanceMatrix, returnToStart bool) []Location {
	route := make([]Location, 0, len(stops)+2)
	route = append(route, start)

	unvisited := make([]Location, len(stops))
	copy(unvisited, stops)

	current := start
	for len(unvisited) > 0 {
		best := -1
		bestScore := math.Inf(1)
		for i, candidate := range unvisited {
			score := EffectiveDistance(m.Between(current.ID, candidate.ID), candidate.Potential)
			if score < bestScore {
				best, bestScore = i, score
			}
		}

		current = unvisited[best]
		route = append(route, current)
		unvisited = append(unvisited[:best], unvisited[best+1:]...)
	}

	if returnToStart {
		route = append(route, endFor(start))
	}
	return route
}

// Package optimizer implements the single-day visit route engine: a
// potential-biased nearest-neighbour constructor, 2-opt improvement,
// time-window scheduling and route metrics.
//
// Everything in this package is a pure, synchronous computation over
// in-memory data. Reading visits and persisting results belongs to callers.
package optimizer

import (
	"strings"
	"time"

	"github.com/fieldroute/fieldroute/internal/geo"
)

// Reserved location identifiers.
const (
	StartID = "START"
	EndID   = "END"
)

// Potential is a business-assigned customer value tier.
type Potential string

// Potential tiers.
const (
	PotentialHigh   Potential = "High"
	PotentialMedium Potential = "Medium"
	PotentialLow    Potential = "Low"
)

// Score maps a tier to its numeric score. Unknown or empty tiers score as Medium.
func (p Potential) Score() float64 {
	switch p {
	case PotentialHigh:
		return 100
	case PotentialLow:
		return 25
	default:
		return 50
	}
}

// ParsePotential normalises a stored tier string. Matching is
// case-insensitive; anything unrecognised becomes the empty tier.
func ParsePotential(s string) Potential {
	switch {
	case strings.EqualFold(s, string(PotentialHigh)):
		return PotentialHigh
	case strings.EqualFold(s, string(PotentialMedium)):
		return PotentialMedium
	case strings.EqualFold(s, string(PotentialLow)):
		return PotentialLow
	default:
		return ""
	}
}

// Location is a stop in a single optimisation run.
type Location struct {
	// ID is StartID, EndID or a visit id.
	ID         string
	Lat        float64
	Lon        float64
	CustomerID string
	Potential  Potential
}

// NodeID implements geo.Node.
func (l Location) NodeID() string { return l.ID }

// Position implements geo.Node.
func (l Location) Position() geo.Point { return geo.Point{Lat: l.Lat, Lon: l.Lon} }

// IsTerminal reports whether the location is the synthetic start or end.
func (l Location) IsTerminal() bool {
	return l.ID == StartID || l.ID == EndID
}

// endFor returns the synthetic END location, co-located with start.
func endFor(start Location) Location {
	return Location{ID: EndID, Lat: start.Lat, Lon: start.Lon}
}

// TimeWindow constrains when a customer may be visited.
type TimeWindow struct {
	CustomerID string
	// DayOfWeek restricts the window to one weekday. Nil applies every day.
	DayOfWeek *time.Weekday
	Start     Clock
	End       Clock
	Strict    bool
	// Priority orders competing windows; the highest value wins.
	Priority int
	Active   bool
}

// AppliesOn reports whether the window is active on the given weekday.
func (w TimeWindow) AppliesOn(day time.Weekday) bool {
	if !w.Active {
		return false
	}
	return w.DayOfWeek == nil || *w.DayOfWeek == day
}

// Contains reports whether the clock falls inside the window (inclusive).
func (w TimeWindow) Contains(c Clock) bool {
	return c >= w.Start && c <= w.End
}

// routeIDs returns the id sequence of a route.
func routeIDs(route []Location) []string {
	ids := make([]string, len(route))
	for i, l := range route {
		ids[i] = l.ID
	}
	return ids
}

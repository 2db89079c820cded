// Package visit reads customer visits and time windows, the inputs of route
// planning and territory clustering.
package visit

import (
	"time"

	"github.com/fieldroute/fieldroute/internal/geo"
	"github.com/fieldroute/fieldroute/internal/optimizer"
)

// Visit is a recorded or planned visit to a customer. Coordinates are nil
// when the visit was never geotagged.
type Visit struct {
	ID            string
	TenantID      string
	CustomerID    string
	SalespersonID string
	Lat           *float64
	Lon           *float64
	Potential     optimizer.Potential
	VisitedAt     *time.Time
}

// Geotagged reports whether the visit has usable coordinates.
func (v *Visit) Geotagged() bool {
	return v.Lat != nil && v.Lon != nil && geo.ValidCoordinates(*v.Lat, *v.Lon)
}

// Location converts a geotagged visit into an optimizer location.
func (v *Visit) Location() optimizer.Location {
	loc := optimizer.Location{
		ID:         v.ID,
		CustomerID: v.CustomerID,
		Potential:  v.Potential,
	}
	if v.Lat != nil && v.Lon != nil {
		loc.Lat, loc.Lon = *v.Lat, *v.Lon
	}
	return loc
}

// ToLocations keeps the geotagged visits in order and returns how many were
// dropped for missing, zero or out-of-range coordinates.
func ToLocations(visits []*Visit) ([]optimizer.Location, int) {
	locs := make([]optimizer.Location, 0, len(visits))
	excluded := 0
	for _, v := range visits {
		if !v.Geotagged() {
			excluded++
			continue
		}
		locs = append(locs, v.Location())
	}
	return locs, excluded
}

// WindowsByCustomer groups windows by customer id.
func WindowsByCustomer(windows []optimizer.TimeWindow) map[string][]optimizer.TimeWindow {
	out := make(map[string][]optimizer.TimeWindow)
	for _, w := range windows {
		out[w.CustomerID] = append(out[w.CustomerID], w)
	}
	return out
}

func copyVisit(v *Visit) *Visit {
	c := *v
	if v.Lat != nil {
		lat := *v.Lat
		c.Lat = &lat
	}
	if v.Lon != nil {
		lon := *v.Lon
		c.Lon = &lon
	}
	if v.VisitedAt != nil {
		at := *v.VisitedAt
		c.VisitedAt = &at
	}
	return &c
}

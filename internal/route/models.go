// Package route plans single-day visit routes and tracks their execution.
package route

import (
	"errors"
	"fmt"
	"time"

	"github.com/fieldroute/fieldroute/internal/geo"
	"github.com/fieldroute/fieldroute/internal/optimizer"
)

// Errors.
var (
	ErrRouteNotFound     = errors.New("route not found")
	ErrInvalidTransition = errors.New("invalid route status transition")
	ErrInvalidActuals    = errors.New("invalid actual metrics")
	ErrInvalidPeriod     = errors.New("invalid reporting period")
)

// Status is a route lifecycle state.
type Status string

// Route statuses.
const (
	StatusPlanned    Status = "planned"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether no further transitions are allowed, other than
// a completion retry.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// StopWindow is the time window that governed a stop.
type StopWindow struct {
	Start  optimizer.Clock `json:"start"`
	End    optimizer.Clock `json:"end"`
	Strict bool            `json:"strict"`
}

// Stop is one entry of a planned route.
type Stop struct {
	Sequence     int                 `json:"sequence"`
	LocationID   string              `json:"location_id"`
	CustomerID   string              `json:"customer_id,omitempty"`
	Lat          float64             `json:"lat"`
	Lon          float64             `json:"lon"`
	Potential    optimizer.Potential `json:"potential,omitempty"`
	LegKm        float64             `json:"leg_km"`
	CumulativeKm float64             `json:"cumulative_km"`
	Arrival      optimizer.Clock     `json:"arrival"`
	Departure    optimizer.Clock     `json:"departure"`
	Window       *StopWindow         `json:"window,omitempty"`
}

// VisitID returns the visit id, or "" for START and END.
func (s Stop) VisitID() string {
	if s.LocationID == optimizer.StartID || s.LocationID == optimizer.EndID {
		return ""
	}
	return s.LocationID
}

// Plan holds the planned metrics of a route.
type Plan struct {
	DistanceKm       float64         `json:"distance_km"`
	TravelMinutes    float64         `json:"travel_minutes"`
	DurationMinutes  float64         `json:"duration_minutes"`
	FuelCost         float64         `json:"fuel_cost"`
	EstimatedEnd     optimizer.Clock `json:"estimated_end"`
	InitialKm        float64         `json:"initial_km"`
	SavedKm          float64         `json:"saved_km"`
	TwoOptIterations int             `json:"two_opt_iterations"`
	Converged        bool            `json:"converged"`
	ExcludedCount    int             `json:"excluded_count"`
	MissingCount     int             `json:"missing_count"`
	OptimizationMs   int64           `json:"optimization_ms"`
}

// Actuals are the outcome reported when a route is completed.
type Actuals struct {
	DistanceKm  float64 `json:"distance_km"`
	TimeMinutes float64 `json:"time_minutes"`
}

// Validate checks that actuals can produce an efficiency score.
func (a Actuals) Validate() error {
	if a.DistanceKm <= 0 {
		return fmt.Errorf("%w: actual distance must be greater than zero", ErrInvalidActuals)
	}
	if a.TimeMinutes < 0 {
		return fmt.Errorf("%w: actual time must not be negative", ErrInvalidActuals)
	}
	return nil
}

// Route is a planned visiting order and its lifecycle.
type Route struct {
	ID            string
	TenantID      string
	SalespersonID string
	RouteDate     time.Time
	Status        Status
	Start         geo.Point
	Stops         []Stop
	Plan          Plan
	Preferences   optimizer.Preferences
	Warnings      []optimizer.Warning
	Polyline      string

	Actual           *Actuals
	EfficiencyScore  *float64
	TimeSavedMinutes *float64

	CreatedAt   time.Time
	UpdatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	CancelledAt *time.Time
}

// VisitIDs returns the visit ids in visiting order.
func (r *Route) VisitIDs() []string {
	ids := make([]string, 0, len(r.Stops))
	for _, s := range r.Stops {
		if id := s.VisitID(); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// HistoryEntry is an append-only record of a lifecycle event.
type HistoryEntry struct {
	ID                 string
	RouteID            string
	TenantID           string
	SalespersonID      string
	Status             Status
	PlannedDistanceKm  float64
	PlannedTimeMinutes float64
	ActualDistanceKm   *float64
	ActualTimeMinutes  *float64
	EfficiencyScore    *float64
	TimeSavedMinutes   *float64
	RecordedAt         time.Time
}

func copyRoute(r *Route) *Route {
	c := *r
	c.Stops = append([]Stop(nil), r.Stops...)
	for i, s := range c.Stops {
		if s.Window != nil {
			w := *s.Window
			c.Stops[i].Window = &w
		}
	}
	c.Warnings = append([]optimizer.Warning(nil), r.Warnings...)
	if r.Actual != nil {
		a := *r.Actual
		c.Actual = &a
	}
	c.EfficiencyScore = copyFloat(r.EfficiencyScore)
	c.TimeSavedMinutes = copyFloat(r.TimeSavedMinutes)
	c.StartedAt = copyTime(r.StartedAt)
	c.CompletedAt = copyTime(r.CompletedAt)
	c.CancelledAt = copyTime(r.CancelledAt)
	return &c
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

package models

import (
	"github.com/fieldroute/fieldroute/internal/optimizer"
	"github.com/fieldroute/fieldroute/internal/preferences"
)

// OptimizeRouteRequest is the body of POST /v1/routes:optimize.
type OptimizeRouteRequest struct {
	VisitIDs      []string `json:"visit_ids"`
	StartLocation *Point   `json:"start_location"`
	// RouteDate is YYYY-MM-DD. Empty means today (UTC).
	RouteDate   string                 `json:"route_date,omitempty"`
	Preferences *preferences.Overrides `json:"preferences,omitempty"`
}

// CompleteRouteRequest is the optional body of POST /v1/routes/{routeId}/complete.
type CompleteRouteRequest struct {
	ActualDistanceKm  *float64 `json:"actual_distance_km,omitempty"`
	ActualTimeMinutes *float64 `json:"actual_time_minutes,omitempty"`
}

// StopWindow is the time window that governed a stop.
type StopWindow struct {
	Start  optimizer.Clock `json:"start"`
	End    optimizer.Clock `json:"end"`
	Strict bool            `json:"strict"`
}

// RouteStop is one stop of a route in visiting order.
type RouteStop struct {
	Sequence     int                 `json:"sequence"`
	LocationID   string              `json:"location_id"`
	VisitID      string              `json:"visit_id,omitempty"`
	CustomerID   string              `json:"customer_id,omitempty"`
	Location     Point               `json:"location"`
	Potential    optimizer.Potential `json:"potential,omitempty"`
	LegKm        float64             `json:"leg_km"`
	CumulativeKm float64             `json:"cumulative_km"`
	Arrival      optimizer.Clock     `json:"arrival"`
	Departure    optimizer.Clock     `json:"departure"`
	Window       *StopWindow         `json:"window,omitempty"`
}

// RouteSummary holds the planned totals of a route.
type RouteSummary struct {
	TotalDistanceKm      float64         `json:"total_distance_km"`
	EstimatedTravelMin   float64         `json:"estimated_travel_minutes"`
	EstimatedDurationMin float64         `json:"estimated_duration_minutes"`
	EstimatedEnd         optimizer.Clock `json:"estimated_end"`
	FuelCost             float64         `json:"fuel_cost"`
	InitialDistanceKm    float64         `json:"initial_distance_km"`
	DistanceSavedKm      float64         `json:"distance_saved_km"`
	TwoOptIterations     int             `json:"two_opt_iterations"`
	Converged            bool            `json:"converged"`
	ExcludedCount        int             `json:"excluded_count"`
	MissingCount         int             `json:"missing_count"`
	OptimizationMs       int64           `json:"optimization_ms"`
}

// ActualMetrics are the reported outcome of a completed route.
type ActualMetrics struct {
	DistanceKm  float64 `json:"distance_km"`
	TimeMinutes float64 `json:"time_minutes"`
}

// Route is the API view of a route.
type Route struct {
	ID               string                `json:"id"`
	SalespersonID    string                `json:"salesperson_id"`
	RouteDate        string                `json:"route_date"`
	Status           string                `json:"status"`
	StartLocation    Point                 `json:"start_location"`
	Stops            []RouteStop           `json:"stops"`
	Summary          RouteSummary          `json:"summary"`
	Preferences      optimizer.Preferences `json:"preferences"`
	Warnings         []optimizer.Warning   `json:"warnings"`
	Polyline         string                `json:"polyline"`
	Actual           *ActualMetrics        `json:"actual,omitempty"`
	EfficiencyScore  *float64              `json:"efficiency_score,omitempty"`
	TimeSavedMinutes *float64              `json:"time_saved_minutes,omitempty"`
	CreatedAt        Timestamp             `json:"created_at"`
	UpdatedAt        Timestamp             `json:"updated_at"`
	StartedAt        *Timestamp            `json:"started_at,omitempty"`
	CompletedAt      *Timestamp            `json:"completed_at,omitempty"`
	CancelledAt      *Timestamp            `json:"cancelled_at,omitempty"`
}

// RouteHistoryEntry is one lifecycle event of a route.
type RouteHistoryEntry struct {
	ID                 string    `json:"id"`
	Status             string    `json:"status"`
	PlannedDistanceKm  float64   `json:"planned_distance_km"`
	PlannedTimeMinutes float64   `json:"planned_time_minutes"`
	ActualDistanceKm   *float64  `json:"actual_distance_km,omitempty"`
	ActualTimeMinutes  *float64  `json:"actual_time_minutes,omitempty"`
	EfficiencyScore    *float64  `json:"efficiency_score,omitempty"`
	TimeSavedMinutes   *float64  `json:"time_saved_minutes,omitempty"`
	RecordedAt         Timestamp `json:"recorded_at"`
}

// RouteHistory is the response of GET /v1/routes/{routeId}/history.
type RouteHistory struct {
	RouteID string              `json:"route_id"`
	Items   []RouteHistoryEntry `json:"items"`
}

// Performance is the response of GET /v1/performance.
type Performance struct {
	SalespersonID         string    `json:"salesperson_id,omitempty"`
	From                  Timestamp `json:"from"`
	To                    Timestamp `json:"to"`
	RoutesCompleted       int       `json:"routes_completed"`
	RoutesWithActuals     int       `json:"routes_with_actuals"`
	AverageEfficiency     *float64  `json:"average_efficiency,omitempty"`
	TotalTimeSavedMinutes float64   `json:"total_time_saved_minutes"`
	TotalPlannedKm        float64   `json:"total_planned_km"`
	TotalActualKm         float64   `json:"total_actual_km"`
}

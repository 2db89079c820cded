// Package preferences stores route preferences per tenant and salesperson
// and resolves the effective preferences for a planning run.
package preferences

import (
	"errors"
	"time"

	"github.com/fieldroute/fieldroute/internal/optimizer"
)

// ErrPreferencesNotFound is returned when no row exists for a scope.
var ErrPreferencesNotFound = errors.New("route preferences not found")

// Source tells where resolved preferences came from.
type Source string

// Sources in lookup order.
const (
	SourceSalesperson Source = "salesperson"
	SourceTenant      Source = "tenant"
	SourceDefault     Source = "default"
)

// Record is a stored preferences row. An empty SalespersonID is the
// tenant-wide row.
type Record struct {
	TenantID      string
	SalespersonID string
	Preferences   optimizer.Preferences
	UpdatedAt     time.Time
}

// Resolved is the outcome of a lookup.
type Resolved struct {
	Preferences optimizer.Preferences
	Source      Source
}

// Overrides replaces individual preference fields. Nil fields keep the
// underlying value. It doubles as the YAML defaults file format.
type Overrides struct {
	Weights             *optimizer.Weights `json:"weights,omitempty" yaml:"weights"`
	MaxVisitsPerDay     *int               `json:"max_visits_per_day,omitempty" yaml:"max_visits_per_day"`
	MaxDistancePerDayKm *float64           `json:"max_distance_per_day_km,omitempty" yaml:"max_distance_per_day_km"`
	WorkStart           *optimizer.Clock   `json:"work_start_time,omitempty" yaml:"work_start_time"`
	WorkEnd             *optimizer.Clock   `json:"work_end_time,omitempty" yaml:"work_end_time"`
	LunchBreakStart     *optimizer.Clock   `json:"lunch_break_start,omitempty" yaml:"lunch_break_start"`
	LunchBreakMinutes   *int               `json:"lunch_break_duration_minutes,omitempty" yaml:"lunch_break_duration_minutes"`
	AverageVisitMinutes *int               `json:"average_visit_duration_minutes,omitempty" yaml:"average_visit_duration_minutes"`
	TravelBuffer        *float64           `json:"travel_buffer_percentage,omitempty" yaml:"travel_buffer_percentage"`
	ReturnToStart       *bool              `json:"return_to_start,omitempty" yaml:"return_to_start"`
	FuelCostPerKm       *float64           `json:"fuel_cost_per_km,omitempty" yaml:"fuel_cost_per_km"`
}

// Apply returns p with every set override applied.
func (o *Overrides) Apply(p optimizer.Preferences) optimizer.Preferences {
	if o == nil {
		return p
	}
	if o.Weights != nil {
		p.Weights = *o.Weights
	}
	if o.MaxVisitsPerDay != nil {
		p.MaxVisitsPerDay = *o.MaxVisitsPerDay
	}
	if o.MaxDistancePerDayKm != nil {
		p.MaxDistancePerDayKm = *o.MaxDistancePerDayKm
	}
	if o.WorkStart != nil {
		p.WorkStart = *o.WorkStart
	}
	if o.WorkEnd != nil {
		p.WorkEnd = *o.WorkEnd
	}
	if o.LunchBreakStart != nil {
		p.LunchBreakStart = *o.LunchBreakStart
	}
	if o.LunchBreakMinutes != nil {
		p.LunchBreakMinutes = *o.LunchBreakMinutes
	}
	if o.AverageVisitMinutes != nil {
		p.AverageVisitMinutes = *o.AverageVisitMinutes
	}
	if o.TravelBuffer != nil {
		p.TravelBuffer = *o.TravelBuffer
	}
	if o.ReturnToStart != nil {
		p.ReturnToStart = *o.ReturnToStart
	}
	if o.FuelCostPerKm != nil {
		p.FuelCostPerKm = *o.FuelCostPerKm
	}
	return p
}

func copyRecord(r *Record) *Record {
	c := *r
	return &c
}

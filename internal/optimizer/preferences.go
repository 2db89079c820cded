package optimizer

// Weights are the informational objective weights reported with a route.
// The engine does not optimise against them.
type Weights struct {
	Distance   float64 `json:"distance" yaml:"distance"`
	Time       float64 `json:"time" yaml:"time"`
	VisitCount float64 `json:"visit_count" yaml:"visit_count"`
}

// Preferences configures a single optimisation run.
type Preferences struct {
	Weights             Weights `json:"weights"`
	MaxVisitsPerDay     int     `json:"max_visits_per_day"`
	MaxDistancePerDayKm float64 `json:"max_distance_per_day_km"`
	WorkStart           Clock   `json:"work_start_time"`
	WorkEnd             Clock   `json:"work_end_time"`
	LunchBreakStart     Clock   `json:"lunch_break_start"`
	LunchBreakMinutes   int     `json:"lunch_break_duration_minutes"`
	AverageVisitMinutes int     `json:"average_visit_duration_minutes"`
	// TravelBuffer multiplies naive travel time. Must be at least 1.
	TravelBuffer  float64 `json:"travel_buffer_percentage"`
	ReturnToStart bool    `json:"return_to_start"`
	FuelCostPerKm float64 `json:"fuel_cost_per_km"`
}

// DefaultPreferences returns the built-in defaults.
func DefaultPreferences() Preferences {
	return Preferences{
		Weights:             Weights{Distance: 0.4, Time: 0.3, VisitCount: 0.3},
		MaxVisitsPerDay:     10,
		MaxDistancePerDayKm: 200,
		WorkStart:           NewClock(9, 0),
		WorkEnd:             NewClock(18, 0),
		LunchBreakStart:     NewClock(13, 0),
		LunchBreakMinutes:   60,
		AverageVisitMinutes: 45,
		TravelBuffer:        1.2,
		ReturnToStart:       true,
		FuelCostPerKm:       10,
	}
}

// Validate checks that the preferences can drive the metrics calculator.
func (p Preferences) Validate() error {
	switch {
	case !p.WorkStart.WithinDay():
		return invalid("work_start_time", "must be before 24:00, got %s", p.WorkStart)
	case !p.WorkEnd.WithinDay():
		return invalid("work_end_time", "must be before 24:00, got %s", p.WorkEnd)
	case !p.LunchBreakStart.WithinDay():
		return invalid("lunch_break_start", "must be before 24:00, got %s", p.LunchBreakStart)
	case p.TravelBuffer < 1:
		return invalid("travel_buffer_percentage", "must be at least 1, got %g", p.TravelBuffer)
	case p.WorkStart >= p.WorkEnd:
		return invalid("work_start_time", "must be before work_end_time (%s >= %s)", p.WorkStart, p.WorkEnd)
	case p.LunchBreakMinutes < 0:
		return invalid("lunch_break_duration_minutes", "must not be negative")
	case p.AverageVisitMinutes < 0:
		return invalid("average_visit_duration_minutes", "must not be negative")
	case p.FuelCostPerKm < 0:
		return invalid("fuel_cost_per_km", "must not be negative")
	case p.MaxVisitsPerDay < 0:
		return invalid("max_visits_per_day", "must not be negative")
	case p.MaxDistancePerDayKm < 0:
		return invalid("max_distance_per_day_km", "must not be negative")
	}
	return nil
}

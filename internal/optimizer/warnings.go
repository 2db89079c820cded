package optimizer

import "fmt"

// WarningCode identifies a non-fatal planning condition.
type WarningCode string

// Warning codes.
const (
	WarnMaxVisitsExceeded   WarningCode = "max_visits_exceeded"
	WarnMaxDistanceExceeded WarningCode = "max_distance_exceeded"
	WarnEndsAfterWorkEnd    WarningCode = "ends_after_work_end"
	WarnStrictWindowMissed  WarningCode = "strict_window_missed"
	WarnNotConverged        WarningCode = "two_opt_not_converged"
	WarnLocationsExcluded   WarningCode = "locations_excluded"
	WarnVisitsNotFound      WarningCode = "visits_not_found"
)

// Warning is attached to a plan without failing it.
type Warning struct {
	Code    WarningCode `json:"code"`
	Message string      `json:"message"`
	// LocationID is set for stop-specific warnings.
	LocationID string `json:"location_id,omitempty"`
}

func planWarnings(p *Plan, stops int, prefs Preferences, maxIterations int) []Warning {
	var out []Warning

	if prefs.MaxVisitsPerDay > 0 && stops > prefs.MaxVisitsPerDay {
		out = append(out, Warning{
			Code:    WarnMaxVisitsExceeded,
			Message: fmt.Sprintf("%d visits planned, preference allows %d per day", stops, prefs.MaxVisitsPerDay),
		})
	}
	if prefs.MaxDistancePerDayKm > 0 && p.Metrics.TotalKm > prefs.MaxDistancePerDayKm {
		out = append(out, Warning{
			Code:    WarnMaxDistanceExceeded,
			Message: fmt.Sprintf("route is %.1f km, preference allows %.1f km per day", p.Metrics.TotalKm, prefs.MaxDistancePerDayKm),
		})
	}
	if p.Metrics.EndOfDay > prefs.WorkEnd {
		out = append(out, Warning{
			Code:    WarnEndsAfterWorkEnd,
			Message: fmt.Sprintf("estimated end %s is after work end %s", p.Metrics.EndOfDay, prefs.WorkEnd),
		})
	}

	for _, s := range p.Metrics.Stops {
		w, ok := p.Windows[s.LocationID]
		if !ok || !w.Strict || w.Contains(s.Arrival) {
			continue
		}
		out = append(out, Warning{
			Code:       WarnStrictWindowMissed,
			Message:    fmt.Sprintf("arrival %s is outside window %s-%s", s.Arrival, w.Start, w.End),
			LocationID: s.LocationID,
		})
	}

	if !p.Converged {
		out = append(out, Warning{
			Code:    WarnNotConverged,
			Message: fmt.Sprintf("2-opt stopped after %d passes without converging", maxIterations),
		})
	}
	return out
}

// DataQualityWarnings reports inputs dropped before planning.
func DataQualityWarnings(excluded, missing int) []Warning {
	var out []Warning
	if excluded > 0 {
		out = append(out, Warning{
			Code:    WarnLocationsExcluded,
			Message: fmt.Sprintf("%d visits excluded for missing or invalid coordinates", excluded),
		})
	}
	if missing > 0 {
		out = append(out, Warning{
			Code:    WarnVisitsNotFound,
			Message: fmt.Sprintf("%d requested visits were not found", missing),
		})
	}
	return out
}

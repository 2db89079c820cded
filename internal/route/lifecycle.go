package route

import (
	"fmt"
	"math"
	"time"
)

// transition applies a lifecycle change in place. It reports whether the
// route changed; an unchanged route must not be written or logged.
type transition func(r *Route, now time.Time) (bool, error)

func startTransition(r *Route, now time.Time) (bool, error) {
	switch r.Status {
	case StatusPlanned:
		r.Status = StatusInProgress
		r.StartedAt = &now
		r.UpdatedAt = now
		return true, nil
	case StatusInProgress:
		return false, nil
	default:
		return false, fmt.Errorf("%w: cannot start a %s route", ErrInvalidTransition, r.Status)
	}
}

func cancelTransition(r *Route, now time.Time) (bool, error) {
	switch r.Status {
	case StatusPlanned, StatusInProgress:
		r.Status = StatusCancelled
		r.CancelledAt = &now
		r.UpdatedAt = now
		return true, nil
	case StatusCancelled:
		return false, nil
	default:
		return false, fmt.Errorf("%w: cannot cancel a %s route", ErrInvalidTransition, r.Status)
	}
}

func completeTransition(actuals *Actuals) transition {
	return func(r *Route, now time.Time) (bool, error) {
		if actuals != nil {
			if err := actuals.Validate(); err != nil {
				return false, err
			}
		}

		switch r.Status {
		case StatusInProgress:
			r.Status = StatusCompleted
			r.CompletedAt = &now
		case StatusCompleted:
			// Retries without actuals, or with the stored ones, change nothing.
			if actuals == nil || (r.Actual != nil && *r.Actual == *actuals) {
				return false, nil
			}
		default:
			return false, fmt.Errorf("%w: cannot complete a %s route", ErrInvalidTransition, r.Status)
		}

		if actuals != nil {
			a := *actuals
			r.Actual = &a
			eff := Efficiency(r.Plan.DistanceKm, a.DistanceKm)
			saved := r.Plan.DurationMinutes - a.TimeMinutes
			r.EfficiencyScore = &eff
			r.TimeSavedMinutes = &saved
		}
		r.UpdatedAt = now
		return true, nil
	}
}

// Efficiency is planned over actual distance as a percentage, capped at 100.
func Efficiency(plannedKm, actualKm float64) float64 {
	if actualKm <= 0 {
		return 0
	}
	return math.Min(100, plannedKm/actualKm*100)
}

func historyFor(r *Route, id string) *HistoryEntry {
	e := &HistoryEntry{
		ID:                 id,
		RouteID:            r.ID,
		TenantID:           r.TenantID,
		SalespersonID:      r.SalespersonID,
		Status:             r.Status,
		PlannedDistanceKm:  r.Plan.DistanceKm,
		PlannedTimeMinutes: r.Plan.DurationMinutes,
		EfficiencyScore:    copyFloat(r.EfficiencyScore),
		TimeSavedMinutes:   copyFloat(r.TimeSavedMinutes),
		RecordedAt:         r.UpdatedAt,
	}
	if r.Actual != nil {
		d, t := r.Actual.DistanceKm, r.Actual.TimeMinutes
		e.ActualDistanceKm = &d
		e.ActualTimeMinutes = &t
	}
	return e
}

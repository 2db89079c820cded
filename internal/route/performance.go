package route

import (
	"context"
	"fmt"
	"time"
)

// PerformanceSummary aggregates completed routes over a period.
type PerformanceSummary struct {
	TenantID          string    `json:"tenant_id"`
	SalespersonID     string    `json:"salesperson_id,omitempty"`
	From              time.Time `json:"from"`
	To                time.Time `json:"to"`
	RoutesCompleted   int       `json:"routes_completed"`
	RoutesWithActuals int       `json:"routes_with_actuals"`
	// AverageEfficiency is nil when no completed route reported actuals.
	AverageEfficiency     *float64 `json:"average_efficiency,omitempty"`
	TotalTimeSavedMinutes float64  `json:"total_time_saved_minutes"`
	TotalPlannedKm        float64  `json:"total_planned_km"`
	TotalActualKm         float64  `json:"total_actual_km"`
}

// Summarize folds history entries into a summary. Only the latest completed
// entry of each route counts, so overwritten actuals are not double counted.
func Summarize(entries []*HistoryEntry) PerformanceSummary {
	latest := make(map[string]*HistoryEntry)
	var order []string
	for _, e := range entries {
		if e.Status != StatusCompleted {
			continue
		}
		prev, ok := latest[e.RouteID]
		if !ok {
			order = append(order, e.RouteID)
		}
		if !ok || !e.RecordedAt.Before(prev.RecordedAt) {
			latest[e.RouteID] = e
		}
	}

	var (
		s        PerformanceSummary
		effTotal float64
		effCount int
	)
	for _, id := range order {
		e := latest[id]
		s.RoutesCompleted++
		s.TotalPlannedKm += e.PlannedDistanceKm
		if e.ActualDistanceKm != nil {
			s.RoutesWithActuals++
			s.TotalActualKm += *e.ActualDistanceKm
		}
		if e.EfficiencyScore != nil {
			effTotal += *e.EfficiencyScore
			effCount++
		}
		if e.TimeSavedMinutes != nil {
			s.TotalTimeSavedMinutes += *e.TimeSavedMinutes
		}
	}
	if effCount > 0 {
		avg := effTotal / float64(effCount)
		s.AverageEfficiency = &avg
	}
	return s
}

// PerformanceSummary reports completed-route performance recorded in
// [from, to). An empty salespersonID covers the whole tenant.
func (s *Service) PerformanceSummary(ctx context.Context, tenantID, salespersonID string, from, to time.Time) (*PerformanceSummary, error) {
	if !from.Before(to) {
		return nil, fmt.Errorf("%w: from must be before to", ErrInvalidPeriod)
	}

	entries, err := s.repo.ListHistoryRange(ctx, tenantID, salespersonID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list route history: %w", err)
	}

	summary := Summarize(entries)
	summary.TenantID = tenantID
	summary.SalespersonID = salespersonID
	summary.From = from
	summary.To = to
	return &summary, nil
}

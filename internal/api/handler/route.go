package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/fieldroute/fieldroute/internal/api/models"
	"github.com/fieldroute/fieldroute/internal/api/response"
	"github.com/fieldroute/fieldroute/internal/geo"
	"github.com/fieldroute/fieldroute/internal/optimizer"
	"github.com/fieldroute/fieldroute/internal/route"
)

const dateLayout = "2006-01-02"

// RouteService is the route planning and lifecycle API.
type RouteService interface {
	OptimizeRoute(ctx context.Context, req route.OptimizeRequest) (*route.Route, error)
	Get(ctx context.Context, tenantID, routeID string) (*route.Route, error)
	Start(ctx context.Context, tenantID, routeID string) (*route.Route, error)
	Complete(ctx context.Context, tenantID, routeID string, actuals *route.Actuals) (*route.Route, error)
	Cancel(ctx context.Context, tenantID, routeID string) (*route.Route, error)
	History(ctx context.Context, tenantID, routeID string) ([]*route.HistoryEntry, error)
	PerformanceSummary(ctx context.Context, tenantID, salespersonID string, from, to time.Time) (*route.PerformanceSummary, error)
}

// RouteHandler handles route endpoints.
type RouteHandler struct {
	routes RouteService
	logger zerolog.Logger
}

// NewRouteHandler creates a new RouteHandler.
func NewRouteHandler(routes RouteService, logger zerolog.Logger) *RouteHandler {
	return &RouteHandler{routes: routes, logger: logger}
}

// OptimizeRoute handles POST /v1/routes:optimize - plan a route for the caller.
func (h *RouteHandler) OptimizeRoute(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var input models.OptimizeRouteRequest
	if err := response.Decode(r, &input); err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}

	var fieldErrors []models.FieldError
	if input.StartLocation == nil {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "start_location", Message: "is required", Code: models.CodeRequired})
	}
	if len(input.VisitIDs) == 0 {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "visit_ids", Message: "at least one visit id is required", Code: models.CodeRequired})
	}
	var date time.Time
	if input.RouteDate != "" {
		d, err := time.Parse(dateLayout, input.RouteDate)
		if err != nil {
			fieldErrors = append(fieldErrors, models.FieldError{Field: "route_date", Message: "must be YYYY-MM-DD", Code: models.CodeInvalid})
		}
		date = d
	}
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "invalid optimization request", fieldErrors)
		return
	}

	rt, err := h.routes.OptimizeRoute(r.Context(), route.OptimizeRequest{
		TenantID:      p.TenantID,
		SalespersonID: p.SalespersonID,
		VisitIDs:      input.VisitIDs,
		Start:         &geo.Point{Lat: input.StartLocation.Lat, Lon: input.StartLocation.Lon},
		Date:          date,
		Overrides:     input.Preferences,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response.Created(w, r, "/v1/routes/"+rt.ID, toRouteModel(rt))
}

// GetRoute handles GET /v1/routes/{routeId}.
func (h *RouteHandler) GetRoute(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	rt, err := h.routes.Get(r.Context(), p.TenantID, chi.URLParam(r, "routeId"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toRouteModel(rt))
}

// StartRoute handles POST /v1/routes/{routeId}/start.
func (h *RouteHandler) StartRoute(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.routes.Start)
}

// CancelRoute handles POST /v1/routes/{routeId}/cancel.
func (h *RouteHandler) CancelRoute(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.routes.Cancel)
}

// CompleteRoute handles POST /v1/routes/{routeId}/complete. The body is
// optional; when present both actual fields are required.
func (h *RouteHandler) CompleteRoute(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var input models.CompleteRouteRequest
	if err := response.Decode(r, &input); err != nil && !errors.Is(err, response.ErrEmptyBody) {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}
	actuals, fieldErrors := actualsFrom(input)
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "invalid actual metrics", fieldErrors)
		return
	}

	rt, err := h.routes.Complete(r.Context(), p.TenantID, chi.URLParam(r, "routeId"), actuals)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toRouteModel(rt))
}

func actualsFrom(in models.CompleteRouteRequest) (*route.Actuals, []models.FieldError) {
	switch {
	case in.ActualDistanceKm == nil && in.ActualTimeMinutes == nil:
		return nil, nil
	case in.ActualDistanceKm == nil:
		return nil, []models.FieldError{{Field: "actual_distance_km", Message: "is required with actual_time_minutes", Code: models.CodeRequired}}
	case in.ActualTimeMinutes == nil:
		return nil, []models.FieldError{{Field: "actual_time_minutes", Message: "is required with actual_distance_km", Code: models.CodeRequired}}
	}
	return &route.Actuals{DistanceKm: *in.ActualDistanceKm, TimeMinutes: *in.ActualTimeMinutes}, nil
}

func (h *RouteHandler) transition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, tenantID, routeID string) (*route.Route, error)) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	rt, err := fn(r.Context(), p.TenantID, chi.URLParam(r, "routeId"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toRouteModel(rt))
}

// GetRouteHistory handles GET /v1/routes/{routeId}/history.
func (h *RouteHandler) GetRouteHistory(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	routeID := chi.URLParam(r, "routeId")
	entries, err := h.routes.History(r.Context(), p.TenantID, routeID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	out := models.RouteHistory{RouteID: routeID, Items: make([]models.RouteHistoryEntry, len(entries))}
	for i, e := range entries {
		out.Items[i] = models.RouteHistoryEntry{
			ID:                 e.ID,
			Status:             string(e.Status),
			PlannedDistanceKm:  e.PlannedDistanceKm,
			PlannedTimeMinutes: e.PlannedTimeMinutes,
			ActualDistanceKm:   e.ActualDistanceKm,
			ActualTimeMinutes:  e.ActualTimeMinutes,
			EfficiencyScore:    e.EfficiencyScore,
			TimeSavedMinutes:   e.TimeSavedMinutes,
			RecordedAt:         models.Timestamp(e.RecordedAt),
		}
	}
	response.JSON(w, r, http.StatusOK, out)
}

// GetPerformance handles GET /v1/performance?from=YYYY-MM-DD&to=YYYY-MM-DD.
// The period defaults to the last 30 days; "to" is inclusive. Pass
// scope=tenant to cover every salesperson of the tenant.
func (h *RouteHandler) GetPerformance(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	today := time.Now().UTC().Truncate(24 * time.Hour)
	from, to := today.AddDate(0, 0, -29), today

	var fieldErrors []models.FieldError
	if v := q.Get("from"); v != "" {
		d, err := time.Parse(dateLayout, v)
		if err != nil {
			fieldErrors = append(fieldErrors, models.FieldError{Field: "from", Message: "must be YYYY-MM-DD", Code: models.CodeInvalid})
		}
		from = d
	}
	if v := q.Get("to"); v != "" {
		d, err := time.Parse(dateLayout, v)
		if err != nil {
			fieldErrors = append(fieldErrors, models.FieldError{Field: "to", Message: "must be YYYY-MM-DD", Code: models.CodeInvalid})
		}
		to = d
	}
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "invalid reporting period", fieldErrors)
		return
	}

	salespersonID := p.SalespersonID
	if q.Get("scope") == models.ScopeTenant {
		salespersonID = ""
	}

	summary, err := h.routes.PerformanceSummary(r.Context(), p.TenantID, salespersonID, from, to.AddDate(0, 0, 1))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.Performance{
		SalespersonID:         summary.SalespersonID,
		From:                  models.Timestamp(summary.From),
		To:                    models.Timestamp(summary.To),
		RoutesCompleted:       summary.RoutesCompleted,
		RoutesWithActuals:     summary.RoutesWithActuals,
		AverageEfficiency:     summary.AverageEfficiency,
		TotalTimeSavedMinutes: summary.TotalTimeSavedMinutes,
		TotalPlannedKm:        summary.TotalPlannedKm,
		TotalActualKm:         summary.TotalActualKm,
	})
}

func toRouteModel(rt *route.Route) models.Route {
	out := models.Route{
		ID:            rt.ID,
		SalespersonID: rt.SalespersonID,
		RouteDate:     rt.RouteDate.Format(dateLayout),
		Status:        string(rt.Status),
		StartLocation: models.Point{Lat: rt.Start.Lat, Lon: rt.Start.Lon},
		Stops:         make([]models.RouteStop, len(rt.Stops)),
		Summary: models.RouteSummary{
			TotalDistanceKm:      rt.Plan.DistanceKm,
			EstimatedTravelMin:   rt.Plan.TravelMinutes,
			EstimatedDurationMin: rt.Plan.DurationMinutes,
			EstimatedEnd:         rt.Plan.EstimatedEnd,
			FuelCost:             rt.Plan.FuelCost,
			InitialDistanceKm:    rt.Plan.InitialKm,
			DistanceSavedKm:      rt.Plan.SavedKm,
			TwoOptIterations:     rt.Plan.TwoOptIterations,
			Converged:            rt.Plan.Converged,
			ExcludedCount:        rt.Plan.ExcludedCount,
			MissingCount:         rt.Plan.MissingCount,
			OptimizationMs:       rt.Plan.OptimizationMs,
		},
		Preferences:      rt.Preferences,
		Warnings:         rt.Warnings,
		Polyline:         rt.Polyline,
		EfficiencyScore:  rt.EfficiencyScore,
		TimeSavedMinutes: rt.TimeSavedMinutes,
		CreatedAt:        models.Timestamp(rt.CreatedAt),
		UpdatedAt:        models.Timestamp(rt.UpdatedAt),
		StartedAt:        models.TimestampPtr(rt.StartedAt),
		CompletedAt:      models.TimestampPtr(rt.CompletedAt),
		CancelledAt:      models.TimestampPtr(rt.CancelledAt),
	}
	if out.Warnings == nil {
		out.Warnings = []optimizer.Warning{}
	}
	if rt.Actual != nil {
		out.Actual = &models.ActualMetrics{DistanceKm: rt.Actual.DistanceKm, TimeMinutes: rt.Actual.TimeMinutes}
	}

	for i, s := range rt.Stops {
		stop := models.RouteStop{
			Sequence:     s.Sequence,
			LocationID:   s.LocationID,
			VisitID:      s.VisitID(),
			CustomerID:   s.CustomerID,
			Location:     models.Point{Lat: s.Lat, Lon: s.Lon},
			Potential:    s.Potential,
			LegKm:        s.LegKm,
			CumulativeKm: s.CumulativeKm,
			Arrival:      s.Arrival,
			Departure:    s.Departure,
		}
		if s.Window != nil {
			stop.Window = &models.StopWindow{Start: s.Window.Start, End: s.Window.End, Strict: s.Window.Strict}
		}
		out.Stops[i] = stop
	}
	return out
}

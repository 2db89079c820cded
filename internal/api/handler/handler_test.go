package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldroute/fieldroute/internal/api/handler"
	"github.com/fieldroute/fieldroute/internal/api/middleware"
	"github.com/fieldroute/fieldroute/internal/api/models"
	"github.com/fieldroute/fieldroute/internal/auth"
	"github.com/fieldroute/fieldroute/internal/optimizer"
	"github.com/fieldroute/fieldroute/internal/resilience"
	"github.com/fieldroute/fieldroute/internal/route"
	"github.com/fieldroute/fieldroute/internal/territory"
)

// stubRoutes returns err from every call and records the last request.
type stubRoutes struct {
	err       error
	route     *route.Route
	lastReq   route.OptimizeRequest
	actuals   *route.Actuals
	from, to  time.Time
	summarySP string
}

func (s *stubRoutes) OptimizeRoute(_ context.Context, req route.OptimizeRequest) (*route.Route, error) {
	s.lastReq = req
	return s.route, s.err
}

func (s *stubRoutes) Get(context.Context, string, string) (*route.Route, error) {
	return s.route, s.err
}

func (s *stubRoutes) Start(context.Context, string, string) (*route.Route, error) {
	return s.route, s.err
}

func (s *stubRoutes) Complete(_ context.Context, _, _ string, actuals *route.Actuals) (*route.Route, error) {
	s.actuals = actuals
	return s.route, s.err
}

func (s *stubRoutes) Cancel(context.Context, string, string) (*route.Route, error) {
	return s.route, s.err
}

func (s *stubRoutes) History(context.Context, string, string) ([]*route.HistoryEntry, error) {
	return nil, s.err
}

func (s *stubRoutes) PerformanceSummary(_ context.Context, tenantID, salespersonID string, from, to time.Time) (*route.PerformanceSummary, error) {
	s.from, s.to, s.summarySP = from, to, salespersonID
	if s.err != nil {
		return nil, s.err
	}
	return &route.PerformanceSummary{TenantID: tenantID, SalespersonID: salespersonID, From: from, To: to}, nil
}

func sampleRoute() *route.Route {
	now := time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC)
	return &route.Route{
		ID:            "rte_1",
		TenantID:      "t1",
		SalespersonID: "sp1",
		RouteDate:     now.Truncate(24 * time.Hour),
		Status:        route.StatusPlanned,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func newRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	ctx := middleware.WithPrincipal(req.Context(), auth.Principal{TenantID: "t1", SalespersonID: "sp1"})

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("routeId", "rte_1")
	ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	return req.WithContext(ctx)
}

func decodeProblem(t *testing.T, w *httptest.ResponseRecorder) models.Problem {
	t.Helper()
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
	var p models.Problem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p), w.Body.String())
	return p
}

func TestWriteError_Mapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		typ      string
		errField string
	}{
		{"input error", &optimizer.InputError{Field: "start_location", Reason: "invalid coordinates"}, http.StatusBadRequest, models.ProblemTypeValidation, "start_location"},
		{"invalid actuals", fmt.Errorf("%w: negative distance", route.ErrInvalidActuals), http.StatusBadRequest, models.ProblemTypeValidation, ""},
		{"invalid period", route.ErrInvalidPeriod, http.StatusBadRequest, models.ProblemTypeValidation, ""},
		{"not found", route.ErrRouteNotFound, http.StatusNotFound, models.ProblemTypeNotFound, ""},
		{"invalid transition", fmt.Errorf("%w: cannot start a completed route", route.ErrInvalidTransition), http.StatusConflict, models.ProblemTypeConflict, "status"},
		{"circuit open", fmt.Errorf("read visits: %w", resilience.ErrCircuitOpen), http.StatusServiceUnavailable, models.ProblemTypeUnavailable, ""},
		{"deadline", context.DeadlineExceeded, http.StatusServiceUnavailable, models.ProblemTypeUnavailable, ""},
		{"unexpected", errors.New("pq: relation does not exist"), http.StatusInternalServerError, models.ProblemTypeInternal, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handler.NewRouteHandler(&stubRoutes{err: tt.err}, zerolog.Nop())

			w := httptest.NewRecorder()
			h.GetRoute(w, newRequest(http.MethodGet, "/v1/routes/rte_1", ""))

			assert.Equal(t, tt.status, w.Code)
			p := decodeProblem(t, w)
			assert.Equal(t, tt.typ, p.Type)
			if tt.errField != "" {
				require.NotEmpty(t, p.Errors)
				assert.Equal(t, tt.errField, p.Errors[0].Field)
			}
			if tt.status == http.StatusInternalServerError {
				assert.NotContains(t, w.Body.String(), "relation does not exist")
			}
		})
	}
}

func TestWriteError_TerritoryMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		typ    string
	}{
		{"insufficient data", &territory.InsufficientDataError{Requested: 5, Available: 2}, http.StatusBadRequest, models.ProblemTypeInsufficientData},
		{"run in progress", territory.ErrRunInProgress, http.StatusConflict, models.ProblemTypeConflict},
		{"no cluster set", territory.ErrClusterSetNotFound, http.StatusNotFound, models.ProblemTypeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handler.NewTerritoryHandler(&stubTerritories{err: tt.err}, zerolog.Nop())

			w := httptest.NewRecorder()
			h.ClusterVisits(w, newRequest(http.MethodPost, "/v1/territories:cluster", `{"k":5}`))

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.typ, decodeProblem(t, w).Type)
		})
	}
}

func TestWriteError_InsufficientDataFieldDetails(t *testing.T) {
	err := fmt.Errorf("cluster: %w", &territory.InsufficientDataError{Requested: 5, Available: 2})
	h := handler.NewTerritoryHandler(&stubTerritories{err: err}, zerolog.Nop())

	w := httptest.NewRecorder()
	h.ClusterVisits(w, newRequest(http.MethodPost, "/v1/territories:cluster", `{"k":5}`))

	require.Equal(t, http.StatusBadRequest, w.Code)
	problem := decodeProblem(t, w)
	require.Len(t, problem.Errors, 1)
	assert.Equal(t, "k", problem.Errors[0].Field)
	assert.Equal(t, models.CodeInsufficientData, problem.Errors[0].Code)
	assert.Contains(t, problem.Errors[0].Message, "requested 5 clusters")
	assert.Contains(t, problem.Errors[0].Message, "only 2 distinct valid locations")
}

type stubTerritories struct {
	err  error
	opts territory.Options
}

func (s *stubTerritories) ClusterVisits(_ context.Context, _ string, opts territory.Options) (*territory.ClusterSet, error) {
	s.opts = opts
	if s.err != nil {
		return nil, s.err
	}
	return &territory.ClusterSet{ID: "cls_1", K: opts.K}, nil
}

func (s *stubTerritories) GetClusterSet(context.Context, string) (*territory.ClusterSet, error) {
	return nil, s.err
}

func TestClusterVisits_PassesOptions(t *testing.T) {
	stub := &stubTerritories{}
	h := handler.NewTerritoryHandler(stub, zerolog.Nop())

	w := httptest.NewRecorder()
	h.ClusterVisits(w, newRequest(http.MethodPost, "/v1/territories:cluster", `{"k":3,"seed":11,"max_iterations":50}`))

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 3, stub.opts.K)
	require.NotNil(t, stub.opts.Seed)
	assert.Equal(t, int64(11), *stub.opts.Seed)
	assert.Equal(t, 50, stub.opts.MaxIterations)
}

func TestCompleteRoute_Actuals(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		status      int
		wantActuals *route.Actuals
	}{
		{"no body", "", http.StatusOK, nil},
		{"empty object", `{}`, http.StatusOK, nil},
		{"both actuals", `{"actual_distance_km":42.5,"actual_time_minutes":380}`, http.StatusOK, &route.Actuals{DistanceKm: 42.5, TimeMinutes: 380}},
		{"distance only", `{"actual_distance_km":42.5}`, http.StatusBadRequest, nil},
		{"time only", `{"actual_time_minutes":380}`, http.StatusBadRequest, nil},
		{"unknown field", `{"fuel_used":3}`, http.StatusBadRequest, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubRoutes{route: sampleRoute()}
			h := handler.NewRouteHandler(stub, zerolog.Nop())

			w := httptest.NewRecorder()
			h.CompleteRoute(w, newRequest(http.MethodPost, "/v1/routes/rte_1/complete", tt.body))

			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.wantActuals, stub.actuals)
		})
	}
}

func TestOptimizeRoute_MapsRequest(t *testing.T) {
	stub := &stubRoutes{route: sampleRoute()}
	h := handler.NewRouteHandler(stub, zerolog.Nop())

	body := `{"visit_ids":["v1","v2"],"start_location":{"lat":12.91,"lon":77.52},"route_date":"2026-10-16","preferences":{"max_visits_per_day":4}}`
	w := httptest.NewRecorder()
	h.OptimizeRoute(w, newRequest(http.MethodPost, "/v1/routes:optimize", body))

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "/v1/routes/rte_1", w.Header().Get("Location"))

	req := stub.lastReq
	assert.Equal(t, "t1", req.TenantID)
	assert.Equal(t, "sp1", req.SalespersonID)
	assert.Equal(t, []string{"v1", "v2"}, req.VisitIDs)
	require.NotNil(t, req.Start)
	assert.Equal(t, 12.91, req.Start.Lat)
	assert.Equal(t, time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC), req.Date)
	require.NotNil(t, req.Overrides)
	require.NotNil(t, req.Overrides.MaxVisitsPerDay)
	assert.Equal(t, 4, *req.Overrides.MaxVisitsPerDay)

	var out models.Route
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, []optimizer.Warning{}, out.Warnings)
}

func TestGetPerformance_Period(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		status   int
		wantFrom time.Time
		wantTo   time.Time
		wantSP   string
	}{
		{
			name:     "explicit inclusive range",
			query:    "?from=2026-10-01&to=2026-10-14",
			status:   http.StatusOK,
			wantFrom: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
			wantTo:   time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC),
			wantSP:   "sp1",
		},
		{
			name:     "tenant scope",
			query:    "?from=2026-10-01&to=2026-10-01&scope=tenant",
			status:   http.StatusOK,
			wantFrom: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
			wantTo:   time.Date(2026, 10, 2, 0, 0, 0, 0, time.UTC),
			wantSP:   "",
		},
		{name: "bad date", query: "?from=yesterday", status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubRoutes{}
			h := handler.NewRouteHandler(stub, zerolog.Nop())

			w := httptest.NewRecorder()
			h.GetPerformance(w, newRequest(http.MethodGet, "/v1/performance"+tt.query, ""))

			require.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.status != http.StatusOK {
				return
			}
			assert.Equal(t, tt.wantFrom, stub.from)
			assert.Equal(t, tt.wantTo, stub.to)
			assert.Equal(t, tt.wantSP, stub.summarySP)
		})
	}
}

func TestGetPerformance_DefaultsToLast30Days(t *testing.T) {
	stub := &stubRoutes{}
	h := handler.NewRouteHandler(stub, zerolog.Nop())

	w := httptest.NewRecorder()
	h.GetPerformance(w, newRequest(http.MethodGet, "/v1/performance", ""))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 30*24*time.Hour, stub.to.Sub(stub.from))
}

func TestHandlers_RequirePrincipal(t *testing.T) {
	h := handler.NewRouteHandler(&stubRoutes{route: sampleRoute()}, zerolog.Nop())

	w := httptest.NewRecorder()
	h.GetRoute(w, httptest.NewRequest(http.MethodGet, "/v1/routes/rte_1", http.NoBody))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestSystemStatus_ReportsGuards(t *testing.T) {
	registry := resilience.NewRegistry()
	guard := resilience.NewGuard(resilience.GuardConfig{
		Name:            "visits",
		MaxRetries:      1,
		InitialInterval: time.Millisecond,
		MaxInterval:     time.Millisecond,
		CircuitBreaker: &resilience.CircuitBreakerConfig{
			Name:        "visits",
			MaxRequests: 1,
			Timeout:     time.Minute,
			ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= 1 },
		},
		Registry: registry,
	})
	_, _ = resilience.Execute(context.Background(), guard, func(context.Context) (int, error) {
		return 0, errors.New("connection reset")
	})

	h := handler.NewOpsHandler("test", "2026-01-01T00:00:00Z", map[string]handler.Pinger{
		"redis": pingFunc(func(context.Context) error { return nil }),
	}, registry)

	w := httptest.NewRecorder()
	h.SystemStatus(w, httptest.NewRequest(http.MethodGet, "/v1/ops/status", http.NoBody))

	require.Equal(t, http.StatusOK, w.Code)
	var status models.SystemStatus
	require.NoError(t, json.NewDecoder(bytes.NewReader(w.Body.Bytes())).Decode(&status))

	assert.Equal(t, models.HealthStatusFail, status.Status)
	require.Len(t, status.Guards, 1)
	assert.Equal(t, "visits", status.Guards[0].Name)
	assert.Equal(t, gobreaker.StateOpen.String(), status.Guards[0].CircuitState)
	require.Len(t, status.Subsystems, 1)
	assert.Equal(t, models.HealthStatusOK, status.Subsystems[0].Status)
}

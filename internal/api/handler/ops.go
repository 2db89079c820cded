// Package handler provides HTTP handlers for the FieldRoute API.
package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/fieldroute/fieldroute/internal/api/models"
	"github.com/fieldroute/fieldroute/internal/api/response"
	"github.com/fieldroute/fieldroute/internal/resilience"
)

// readinessTimeout bounds each dependency ping.
const readinessTimeout = 2 * time.Second

// Pinger is a dependency that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	checks    map[string]Pinger
	registry  *resilience.Registry
}

// NewOpsHandler creates a new OpsHandler. checks are pinged by the readiness
// and status endpoints; registry may be nil.
func NewOpsHandler(version, buildTime string, checks map[string]Pinger, registry *resilience.Registry) *OpsHandler {
	return &OpsHandler{
		version:   version,
		buildTime: buildTime,
		checks:    checks,
		registry:  registry,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{
		Status:  models.HealthStatusOK,
		Time:    models.Timestamp(time.Now()),
		Version: h.version,
	})
}

// ReadinessCheck handles GET /v1/ops/ready - 503 until every dependency answers.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	subsystems := h.pingAll(r.Context())

	health := models.Health{
		Status:  models.HealthStatusOK,
		Time:    models.Timestamp(time.Now()),
		Version: h.version,
	}
	for _, s := range subsystems {
		if s.Status != models.HealthStatusOK {
			if health.Details == nil {
				health.Details = make(map[string]string)
			}
			health.Status = models.HealthStatusFail
			health.Details[s.Name] = *s.Detail
		}
	}

	status := http.StatusOK
	if health.Status != models.HealthStatusOK {
		status = http.StatusServiceUnavailable
	}
	response.JSON(w, r, status, health)
}

// SystemStatus handles GET /v1/ops/status - subsystem pings and circuit
// breaker state of every guarded dependency.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:     models.HealthStatusOK,
		Time:       models.Timestamp(time.Now()),
		Version:    h.version,
		BuildTime:  h.buildTime,
		Subsystems: h.pingAll(r.Context()),
		Guards:     []models.DependencyStatus{},
	}

	if h.registry != nil {
		for _, g := range h.registry.GetAllHealth() {
			status.Guards = append(status.Guards, toDependencyStatus(g))
		}
	}

	for _, s := range status.Subsystems {
		status.Status = worst(status.Status, s.Status)
	}
	for _, g := range status.Guards {
		status.Status = worst(status.Status, g.Status)
	}

	response.JSON(w, r, http.StatusOK, status)
}

func (h *OpsHandler) pingAll(ctx context.Context) []models.SubsystemStatus {
	out := make([]models.SubsystemStatus, 0, len(h.checks))
	for _, name := range sortedKeys(h.checks) {
		pingCtx, cancel := context.WithTimeout(ctx, readinessTimeout)
		err := h.checks[name].Ping(pingCtx)
		cancel()

		s := models.SubsystemStatus{Name: name, Status: models.HealthStatusOK}
		if err != nil {
			detail := err.Error()
			s.Status = models.HealthStatusFail
			s.Detail = &detail
		}
		out = append(out, s)
	}
	return out
}

func toDependencyStatus(h *resilience.Health) models.DependencyStatus {
	s := models.DependencyStatus{
		Name:                h.Name,
		Status:              models.HealthStatusOK,
		CircuitState:        h.CircuitState.String(),
		ConsecutiveFailures: h.Counts.ConsecutiveFailures,
		LastSuccessAt:       models.TimestampPtr(h.LastSuccessAt),
		LastFailureAt:       models.TimestampPtr(h.LastFailureAt),
	}
	switch h.CircuitState {
	case gobreaker.StateHalfOpen:
		s.Status = models.HealthStatusDegraded
	case gobreaker.StateOpen:
		s.Status = models.HealthStatusFail
	}
	if h.LastError != "" {
		msg := h.LastError
		s.Message = &msg
	}
	return s
}

func worst(a, b models.HealthStatus) models.HealthStatus {
	rank := map[models.HealthStatus]int{
		models.HealthStatusOK:       0,
		models.HealthStatusDegraded: 1,
		models.HealthStatusFail:     2,
	}
	if rank[b] > rank[a] {
		return b
	}
	return a
}

func sortedKeys(m map[string]Pinger) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

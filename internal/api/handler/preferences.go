package handler

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/fieldroute/fieldroute/internal/api/models"
	"github.com/fieldroute/fieldroute/internal/api/response"
	"github.com/fieldroute/fieldroute/internal/optimizer"
	"github.com/fieldroute/fieldroute/internal/preferences"
)

// PreferencesService resolves and stores route preferences.
type PreferencesService interface {
	Get(ctx context.Context, tenantID, salespersonID string) (preferences.Resolved, error)
	Put(ctx context.Context, tenantID, salespersonID string, prefs optimizer.Preferences) (*preferences.Record, error)
}

// PreferencesHandler handles preference endpoints.
type PreferencesHandler struct {
	prefs  PreferencesService
	logger zerolog.Logger
}

// NewPreferencesHandler creates a new PreferencesHandler.
func NewPreferencesHandler(prefs PreferencesService, logger zerolog.Logger) *PreferencesHandler {
	return &PreferencesHandler{prefs: prefs, logger: logger}
}

// GetPreferences handles GET /v1/preferences - the caller's effective preferences.
func (h *PreferencesHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	resolved, err := h.prefs.Get(r.Context(), p.TenantID, p.SalespersonID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, models.Preferences{
		Source:      string(resolved.Source),
		Preferences: resolved.Preferences,
	})
}

// PutPreferences handles PUT /v1/preferences - update the caller's or the
// tenant's preferences. Omitted fields keep the currently effective value.
func (h *PreferencesHandler) PutPreferences(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var input models.PutPreferencesRequest
	if err := response.Decode(r, &input); err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}

	salespersonID := p.SalespersonID
	source := preferences.SourceSalesperson
	switch input.Scope {
	case "", models.ScopeSalesperson:
	case models.ScopeTenant:
		salespersonID = ""
		source = preferences.SourceTenant
	default:
		response.BadRequest(w, r, "invalid preferences request", []models.FieldError{
			{Field: "scope", Message: "must be salesperson or tenant", Code: models.CodeInvalid},
		})
		return
	}

	current, err := h.prefs.Get(r.Context(), p.TenantID, salespersonID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	rec, err := h.prefs.Put(r.Context(), p.TenantID, salespersonID, input.Preferences.Apply(current.Preferences))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	updatedAt := models.Timestamp(rec.UpdatedAt)
	response.JSON(w, r, http.StatusOK, models.Preferences{
		Source:      string(source),
		Preferences: rec.Preferences,
		UpdatedAt:   &updatedAt,
	})
}

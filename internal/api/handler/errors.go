package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/fieldroute/fieldroute/internal/api/middleware"
	"github.com/fieldroute/fieldroute/internal/api/models"
	"github.com/fieldroute/fieldroute/internal/api/response"
	"github.com/fieldroute/fieldroute/internal/optimizer"
	"github.com/fieldroute/fieldroute/internal/resilience"
	"github.com/fieldroute/fieldroute/internal/route"
	"github.com/fieldroute/fieldroute/internal/territory"
)

// writeError maps a service error to an RFC7807 response. Unexpected errors
// are logged and reported as 500 without leaking their text.
func writeError(w http.ResponseWriter, r *http.Request, log zerolog.Logger, err error) {
	var (
		inputErr    *optimizer.InputError
		shortageErr *territory.InsufficientDataError
	)

	switch {
	case errors.As(err, &inputErr):
		response.BadRequest(w, r, inputErr.Error(), []models.FieldError{
			{Field: inputErr.Field, Message: inputErr.Reason, Code: models.CodeInvalid},
		})
	case errors.Is(err, optimizer.ErrInvalidInput),
		errors.Is(err, route.ErrInvalidActuals),
		errors.Is(err, route.ErrInvalidPeriod):
		response.BadRequest(w, r, err.Error(), nil)
	case errors.Is(err, territory.ErrInvalidOptions):
		response.BadRequest(w, r, err.Error(), []models.FieldError{
			{Field: "k", Message: err.Error(), Code: models.CodeInvalid},
		})
	case errors.As(err, &shortageErr):
		response.InsufficientData(w, r, err.Error(), []models.FieldError{{
			Field:   "k",
			Message: fmt.Sprintf("requested %d clusters but only %d distinct valid locations are available", shortageErr.Requested, shortageErr.Available),
			Code:    models.CodeInsufficientData,
		}})
	case errors.Is(err, territory.ErrInsufficientData):
		response.InsufficientData(w, r, err.Error(), nil)
	case errors.Is(err, route.ErrRouteNotFound):
		response.NotFound(w, r, "route not found")
	case errors.Is(err, territory.ErrClusterSetNotFound):
		response.NotFound(w, r, "no territories have been computed for this tenant")
	case errors.Is(err, route.ErrInvalidTransition):
		response.Error(w, r, models.NewConflict(middleware.GetRequestID(r.Context()), err.Error()).
			WithErrors([]models.FieldError{{Field: "status", Message: err.Error(), Code: models.CodeInvalidTransition}}))
	case errors.Is(err, territory.ErrRunInProgress):
		response.Conflict(w, r, err.Error())
	case errors.Is(err, resilience.ErrCircuitOpen):
		response.ServiceUnavailable(w, r, "a backing store is temporarily unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		response.ServiceUnavailable(w, r, "request timed out")
	default:
		log.Error().
			Err(err).
			Str("request_id", middleware.GetRequestID(r.Context())).
			Str("tenant_id", middleware.GetTenantID(r.Context())).
			Str("path", r.URL.Path).
			Msg("request failed")
		response.InternalError(w, r, "an unexpected error occurred")
	}
}

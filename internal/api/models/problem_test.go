package models_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldroute/fieldroute/internal/api/models"
)

func TestProblem_Builders(t *testing.T) {
	p := models.NewProblem(models.ProblemTypeValidation, "Validation error", http.StatusBadRequest, "req_test123").
		WithDetail("start_location is required").
		WithInstance("/v1/routes:optimize").
		WithErrors([]models.FieldError{{Field: "start_location", Message: "is required", Code: models.CodeRequired}})

	assert.Equal(t, models.ProblemTypeValidation, p.Type)
	assert.Equal(t, "req_test123", p.TraceID)
	assert.Equal(t, "start_location is required", p.Detail)
	assert.Equal(t, "/v1/routes:optimize", p.Instance)
	require.Len(t, p.Errors, 1)
	assert.Equal(t, models.CodeRequired, p.Errors[0].Code)
}

func TestProblem_Write(t *testing.T) {
	p := models.NewBadRequest("req_test123", "invalid input", []models.FieldError{
		{Field: "visit_ids", Message: "at least one visit id is required"},
	})
	p.Instance = "/v1/routes:optimize"

	w := httptest.NewRecorder()
	p.Write(w)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
	assert.Equal(t, "req_test123", w.Header().Get("X-Request-Id"))

	var result models.Problem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, models.ProblemTypeValidation, result.Type)
	assert.Equal(t, "Validation error", result.Title)
	assert.Equal(t, http.StatusBadRequest, result.Status)
	assert.Equal(t, "/v1/routes:optimize", result.Instance)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "visit_ids", result.Errors[0].Field)
}

func TestProblem_Constructors(t *testing.T) {
	tests := []struct {
		name    string
		problem *models.Problem
		typ     string
		title   string
		status  int
	}{
		{"bad request", models.NewBadRequest("req_1", "bad", nil), models.ProblemTypeValidation, "Validation error", http.StatusBadRequest},
		{"insufficient data", models.NewInsufficientData("req_1", "bad"), models.ProblemTypeInsufficientData, "Insufficient data", http.StatusBadRequest},
		{"unauthorized", models.NewUnauthorized("req_1", "bad"), models.ProblemTypeUnauthorized, "Unauthorized", http.StatusUnauthorized},
		{"not found", models.NewNotFound("req_1", "bad"), models.ProblemTypeNotFound, "Not found", http.StatusNotFound},
		{"conflict", models.NewConflict("req_1", "bad"), models.ProblemTypeConflict, "Conflict", http.StatusConflict},
		{"unsupported media type", models.NewUnsupportedMediaType("req_1", "bad"), models.ProblemTypeUnsupportedMediaType, "Unsupported media type", http.StatusUnsupportedMediaType},
		{"too many requests", models.NewTooManyRequests("req_1", "bad"), models.ProblemTypeTooManyRequests, "Too many requests", http.StatusTooManyRequests},
		{"internal", models.NewInternalError("req_1", "bad"), models.ProblemTypeInternal, "Internal server error", http.StatusInternalServerError},
		{"unavailable", models.NewServiceUnavailable("req_1", "bad"), models.ProblemTypeUnavailable, "Service unavailable", http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.typ, tt.problem.Type)
			assert.Equal(t, tt.title, tt.problem.Title)
			assert.Equal(t, tt.status, tt.problem.Status)
			assert.Equal(t, "bad", tt.problem.Detail)
			assert.Equal(t, "req_1", tt.problem.TraceID)
		})
	}
}

func TestNewInsufficientData_FieldError(t *testing.T) {
	p := models.NewInsufficientData("req_1", "requested 5 clusters, only 3 distinct valid locations")

	require.Len(t, p.Errors, 1)
	assert.Equal(t, "k", p.Errors[0].Field)
	assert.Equal(t, models.CodeInsufficientData, p.Errors[0].Code)
}

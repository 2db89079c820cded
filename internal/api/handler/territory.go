package handler

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/fieldroute/fieldroute/internal/api/models"
	"github.com/fieldroute/fieldroute/internal/api/response"
	"github.com/fieldroute/fieldroute/internal/territory"
)

// TerritoryService runs and reads territory clustering.
type TerritoryService interface {
	ClusterVisits(ctx context.Context, tenantID string, opts territory.Options) (*territory.ClusterSet, error)
	GetClusterSet(ctx context.Context, tenantID string) (*territory.ClusterSet, error)
}

// TerritoryHandler handles territory endpoints.
type TerritoryHandler struct {
	territories TerritoryService
	logger      zerolog.Logger
}

// NewTerritoryHandler creates a new TerritoryHandler.
func NewTerritoryHandler(territories TerritoryService, logger zerolog.Logger) *TerritoryHandler {
	return &TerritoryHandler{territories: territories, logger: logger}
}

// ClusterVisits handles POST /v1/territories:cluster - recompute the tenant's territories.
func (h *TerritoryHandler) ClusterVisits(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var input models.ClusterRequest
	if err := response.Decode(r, &input); err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}
	if input.K < 1 {
		response.BadRequest(w, r, "invalid clustering request", []models.FieldError{
			{Field: "k", Message: "must be at least 1", Code: models.CodeInvalid},
		})
		return
	}

	set, err := h.territories.ClusterVisits(r.Context(), p.TenantID, territory.Options{
		K:             input.K,
		Seed:          input.Seed,
		MaxIterations: input.MaxIterations,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response.Created(w, r, "/v1/territories", toClusterSetModel(set))
}

// GetTerritories handles GET /v1/territories - the latest cluster set.
func (h *TerritoryHandler) GetTerritories(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	set, err := h.territories.GetClusterSet(r.Context(), p.TenantID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toClusterSetModel(set))
}

func toClusterSetModel(set *territory.ClusterSet) models.ClusterSet {
	out := models.ClusterSet{
		ID:            set.ID,
		K:             set.K,
		ClusterCount:  len(set.Clusters),
		Seed:          set.Seed,
		Iterations:    set.Iterations,
		Converged:     set.Converged,
		PointCount:    set.PointCount,
		ExcludedCount: set.ExcludedCount,
		Territories:   make([]models.Territory, len(set.Clusters)),
		CreatedAt:     models.Timestamp(set.CreatedAt),
	}
	for i, c := range set.Clusters {
		out.Territories[i] = models.Territory{
			Index:    c.Index,
			Centroid: models.Point{Lat: c.Centroid.Lat, Lon: c.Centroid.Lon},
			Bounds: models.BoundingBox{
				MinLat: c.Bounds.MinLat,
				MinLon: c.Bounds.MinLon,
				MaxLat: c.Bounds.MaxLat,
				MaxLon: c.Bounds.MaxLon,
			},
			RadiusKm:         c.RadiusKm,
			MemberCount:      c.MemberCount,
			MemberIDs:        c.MemberIDs,
			TotalPotential:   c.TotalPotential,
			AveragePotential: c.AveragePotential,
		}
	}
	return out
}

package handlers

import (
	"context"
	"net/http"

	"github.com/zatekoja/facilityfinder/backend/internal/domain/entities"
	"github.com/zatekoja/facilityfinder/backend/internal/query/services"
)

// CacheStatusHeader reports whether a response was served from cache
const CacheStatusHeader = "X-Cache"

// FacilityQueryService is the read side consumed by FacilityHandler
type FacilityQueryService interface {
	GetFacilitiesWithStatus(ctx context.Context, q entities.FacilityQuery) (*entities.PaginatedResult, services.CacheStatus, error)
	GetFacilityByIDWithStatus(ctx context.Context, id string) (*entities.Facility, services.CacheStatus, error)
}

// FacilityHandler handles facility-related HTTP requests
type FacilityHandler struct {
	queries FacilityQueryService
}

// NewFacilityHandler creates a new facility handler
func NewFacilityHandler(queries FacilityQueryService) *FacilityHandler {
	return &FacilityHandler{
		queries: queries,
	}
}

// ListFacilities handles GET /api/facilities
func (h *FacilityHandler) ListFacilities(w http.ResponseWriter, r *http.Request) {
	query, err := ParseFacilityQuery(r.URL.Query())
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	result, status, err := h.queries.GetFacilitiesWithStatus(r.Context(), query)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	w.Header().Set(CacheStatusHeader, string(status))
	respondWithJSON(w, http.StatusOK, result)
}

// GetFacility handles GET /api/facilities/{id}
func (h *FacilityHandler) GetFacility(w http.ResponseWriter, r *http.Request) {
	facility, status, err := h.queries.GetFacilityByIDWithStatus(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	w.Header().Set(CacheStatusHeader, string(status))
	respondWithJSON(w, http.StatusOK, facility)
}

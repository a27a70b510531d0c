package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/zatekoja/facilityfinder/backend/internal/infrastructure/observability"
)

const readinessTimeout = 2 * time.Second

// Pinger is implemented by the store and cache adapters
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthResponse is the body of the health endpoints
type HealthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store,omitempty"`
	Cache  string `json:"cache,omitempty"`
}

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	store Pinger
	cache Pinger
}

// NewHealthHandler creates a health handler. cache may be nil when caching
// is disabled.
func NewHealthHandler(store Pinger, cache Pinger) *HealthHandler {
	return &HealthHandler{store: store, cache: cache}
}

// Live handles GET /health
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Ready handles GET /ready. Only the store decides readiness; a failing
// cache is reported as degraded.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	resp := HealthResponse{Status: "ok", Store: "ok", Cache: "disabled"}
	status := http.StatusOK

	if err := h.store.Ping(ctx); err != nil {
		observability.LoggerFromContext(ctx).Error().Err(err).Msg("store readiness check failed")
		resp.Status = "unavailable"
		resp.Store = "unavailable"
		status = http.StatusServiceUnavailable
	}

	if h.cache != nil {
		resp.Cache = "ok"
		if err := h.cache.Ping(ctx); err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).Msg("cache readiness check failed")
			resp.Cache = "degraded"
		}
	}

	respondWithJSON(w, status, resp)
}

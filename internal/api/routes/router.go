package routes

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zatekoja/facilityfinder/backend/internal/api/handlers"
	"github.com/zatekoja/facilityfinder/backend/internal/api/middleware"
	"github.com/zatekoja/facilityfinder/backend/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	facilityHandler *handlers.FacilityHandler
	authHandler     *handlers.AuthHandler
	healthHandler   *handlers.HealthHandler

	tokens         middleware.TokenValidator
	rateLimiter    *middleware.RateLimiter
	allowedOrigins []string
	metrics        *observability.Metrics
	metricsHandler http.Handler
}

// Option customizes a Router
type Option func(*Router)

// WithRateLimiter enables per-client rate limiting
func WithRateLimiter(limiter *middleware.RateLimiter) Option {
	return func(r *Router) {
		r.rateLimiter = limiter
	}
}

// WithMetricsHandler overrides the handler served at /metrics
func WithMetricsHandler(h http.Handler) Option {
	return func(r *Router) {
		r.metricsHandler = h
	}
}

// NewRouter creates a new router
func NewRouter(
	facilityHandler *handlers.FacilityHandler,
	authHandler *handlers.AuthHandler,
	healthHandler *handlers.HealthHandler,
	tokens middleware.TokenValidator,
	allowedOrigins []string,
	metrics *observability.Metrics,
	opts ...Option,
) *Router {
	r := &Router{
		mux:             http.NewServeMux(),
		facilityHandler: facilityHandler,
		authHandler:     authHandler,
		healthHandler:   healthHandler,
		tokens:          tokens,
		allowedOrigins:  allowedOrigins,
		metrics:         metrics,
		metricsHandler:  promhttp.Handler(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Probes and metrics
	r.handle("GET /health", http.HandlerFunc(r.healthHandler.Live))
	r.handle("GET /ready", http.HandlerFunc(r.healthHandler.Ready))
	r.handle("GET /metrics", r.metricsHandler)

	// Token endpoint, limited per remote address
	r.handle("POST /api/auth/token", r.limited(http.HandlerFunc(r.authHandler.IssueToken)))

	// Facility endpoints
	r.handle("GET /api/facilities", r.protected(http.HandlerFunc(r.facilityHandler.ListFacilities)))
	r.handle("GET /api/facilities/{id}", r.protected(http.HandlerFunc(r.facilityHandler.GetFacility)))

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.RequestInfoMiddleware(handler)
	handler = middleware.Compression(handler)
	handler = middleware.ETag(handler)

	// CORS wraps everything so headers are set on every response
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}

func (r *Router) handle(pattern string, h http.Handler) {
	r.mux.Handle(pattern, middleware.Route(h))
}

// protected requires a bearer token, then applies the caller's rate limit
func (r *Router) protected(h http.Handler) http.Handler {
	return middleware.Authenticate(r.tokens)(r.limited(h))
}

func (r *Router) limited(h http.Handler) http.Handler {
	if r.rateLimiter == nil {
		return h
	}
	return r.rateLimiter.Middleware(h)
}

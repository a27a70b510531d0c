package services

import (
	"context"
	"strings"
	"time"

	"github.com/zatekoja/facilityfinder/backend/internal/domain/entities"
	"github.com/zatekoja/facilityfinder/backend/internal/domain/repositories"
	"github.com/zatekoja/facilityfinder/backend/internal/infrastructure/observability"
	"github.com/zatekoja/facilityfinder/backend/pkg/config"
	apperrors "github.com/zatekoja/facilityfinder/backend/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"
)

// sharedQueryTimeout bounds a collapsed store query, which outlives the
// context of the request that started it.
const sharedQueryTimeout = 30 * time.Second

// QueryCache is the typed cache used by the query layer
type QueryCache interface {
	// Get decodes key into dest and reports whether it was present
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// CacheStatus reports how a read was served
type CacheStatus string

const (
	CacheHit    CacheStatus = "HIT"
	CacheMiss   CacheStatus = "MISS"
	CacheBypass CacheStatus = "BYPASS"
)

// FacilityQueryService handles read-only facility operations with a
// read-through cache in front of the catalog store
type FacilityQueryService struct {
	normalizer QueryNormalizer
	policy     CachePolicy
	executor   *QueryExecutor
	cache      QueryCache
	metrics    *observability.Metrics
	group      singleflight.Group
}

// Option configures a FacilityQueryService
type Option func(*FacilityQueryService)

// WithMetrics records cache and store metrics
func WithMetrics(metrics *observability.Metrics) Option {
	return func(s *FacilityQueryService) {
		s.metrics = metrics
	}
}

// NewFacilityQueryService creates a new facility query service.
// cache may be nil, in which case every read goes to the store.
func NewFacilityQueryService(
	store repositories.FacilityStore,
	cache QueryCache,
	cfg config.QueryConfig,
	opts ...Option,
) *FacilityQueryService {
	s := &FacilityQueryService{
		normalizer: NewQueryNormalizer(cfg),
		policy:     NewCachePolicy(cfg),
		cache:      cache,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.executor = NewQueryExecutor(store, s.metrics)
	return s
}

// Normalize exposes the normalization applied before every listing
func (s *FacilityQueryService) Normalize(q entities.FacilityQuery) (entities.FacilityQuery, error) {
	return s.normalizer.Normalize(q)
}

// GetFacilities returns one page of facilities matching q
func (s *FacilityQueryService) GetFacilities(ctx context.Context, q entities.FacilityQuery) (*entities.PaginatedResult, error) {
	result, _, err := s.GetFacilitiesWithStatus(ctx, q)
	return result, err
}

// GetFacilityByID returns a single facility or a not found error
func (s *FacilityQueryService) GetFacilityByID(ctx context.Context, id string) (*entities.Facility, error) {
	facility, _, err := s.GetFacilityByIDWithStatus(ctx, id)
	return facility, err
}

// GetFacilitiesWithStatus is GetFacilities that also reports how the page was served
func (s *FacilityQueryService) GetFacilitiesWithStatus(ctx context.Context, q entities.FacilityQuery) (*entities.PaginatedResult, CacheStatus, error) {
	ctx, span := observability.StartSpan(ctx, "FacilityQueryService.GetFacilities")
	defer span.End()

	nq, err := s.normalizer.Normalize(q)
	if err != nil {
		return nil, "", err
	}

	key := ListCacheKey(nq)
	cacheable := s.cache != nil && s.policy.ShouldCacheList(nq)

	if !cacheable {
		observability.SetSpanAttributes(span, attribute.String("cache.status", string(CacheBypass)))
		result, err := s.execute(ctx, key, nq, false)
		return result, CacheBypass, err
	}

	var cached entities.PaginatedResult
	hit, err := s.cache.Get(ctx, key.Stored, &cached)
	switch {
	case err != nil:
		s.logCacheFault(ctx, err, "get", key)
	case hit:
		observability.RecordCacheHit(ctx, s.metrics, ListKeyPrefix)
		observability.SetSpanAttributes(span, attribute.String("cache.status", string(CacheHit)))
		if cached.Data == nil {
			cached.Data = []entities.Facility{}
		}
		return &cached, CacheHit, nil
	}

	observability.RecordCacheMiss(ctx, s.metrics, ListKeyPrefix)
	observability.SetSpanAttributes(span, attribute.String("cache.status", string(CacheMiss)))
	result, err := s.execute(ctx, key, nq, true)
	return result, CacheMiss, err
}

// GetFacilityByIDWithStatus is GetFacilityByID that also reports how the item was served
func (s *FacilityQueryService) GetFacilityByIDWithStatus(ctx context.Context, id string) (*entities.Facility, CacheStatus, error) {
	ctx, span := observability.StartSpan(ctx, "FacilityQueryService.GetFacilityByID")
	defer span.End()

	id = strings.TrimSpace(id)
	if id == "" {
		return nil, "", apperrors.NewValidationError("facility id is required")
	}

	if s.cache == nil {
		facility, err := s.executor.FindByID(ctx, id)
		return facility, CacheBypass, err
	}

	key := ItemCacheKey(id)

	var cached entities.Facility
	hit, err := s.cache.Get(ctx, key.Stored, &cached)
	switch {
	case err != nil:
		s.logCacheFault(ctx, err, "get", key)
	case hit:
		observability.RecordCacheHit(ctx, s.metrics, ItemKeyPrefix)
		return &cached, CacheHit, nil
	}
	observability.RecordCacheMiss(ctx, s.metrics, ItemKeyPrefix)

	facility, err := s.executor.FindByID(ctx, id)
	if err != nil {
		observability.RecordError(span, err)
		return nil, CacheMiss, err
	}

	if err := s.cache.Set(ctx, key.Stored, facility, s.policy.ItemTTL()); err != nil {
		s.logCacheFault(ctx, err, "set", key)
	}
	return facility, CacheMiss, nil
}

// execute runs the query once for all concurrent callers with the same key
// and writes the result to the cache when write is set.
func (s *FacilityQueryService) execute(ctx context.Context, key CacheKey, q entities.FacilityQuery, write bool) (*entities.PaginatedResult, error) {
	ch := s.group.DoChan(key.Stored, func() (any, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedQueryTimeout)
		defer cancel()

		result, err := s.executor.Execute(runCtx, q)
		if err != nil {
			return nil, err
		}

		if write {
			if err := s.cache.Set(runCtx, key.Stored, result, s.policy.ListTTL(q)); err != nil {
				s.logCacheFault(runCtx, err, "set", key)
			}
		}
		return result, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*entities.PaginatedResult), nil
	}
}

func (s *FacilityQueryService) logCacheFault(ctx context.Context, err error, operation string, key CacheKey) {
	observability.RecordCacheError(ctx, s.metrics, operation)
	observability.LoggerFromContext(ctx).Warn().
		Err(err).
		Str("operation", operation).
		Str("cache_key", key.Readable).
		Msg("cache unavailable, serving from store")
}

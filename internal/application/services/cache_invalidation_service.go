package services

import (
	"context"
	"fmt"

	"github.com/zatekoja/facilityfinder/backend/internal/domain/providers"
	"github.com/zatekoja/facilityfinder/backend/internal/infrastructure/observability"
	queryservices "github.com/zatekoja/facilityfinder/backend/internal/query/services"
)

// CacheInvalidationService drops cached facility pages and items.
// Entries otherwise live until their TTL expires; the catalog only changes
// when it is reseeded.
type CacheInvalidationService struct {
	cache providers.CacheProvider
}

// NewCacheInvalidationService creates a new cache invalidation service
func NewCacheInvalidationService(cache providers.CacheProvider) *CacheInvalidationService {
	return &CacheInvalidationService{cache: cache}
}

// InvalidateCatalog deletes every facility key and returns how many were removed
func (s *CacheInvalidationService) InvalidateCatalog(ctx context.Context) (int, error) {
	deleted, err := s.cache.DeletePattern(ctx, queryservices.KeyPattern)
	if err != nil {
		return deleted, fmt.Errorf("failed to invalidate %s: %w", queryservices.KeyPattern, err)
	}

	observability.LoggerFromContext(ctx).Info().
		Str("pattern", queryservices.KeyPattern).
		Int("deleted", deleted).
		Msg("cache invalidated")
	return deleted, nil
}

// InvalidateFacility deletes the cached item for id. Listing pages that
// contain the facility are left to expire.
func (s *CacheInvalidationService) InvalidateFacility(ctx context.Context, id string) error {
	key := queryservices.ItemCacheKey(id)
	if err := s.cache.Delete(ctx, key.Stored); err != nil {
		return fmt.Errorf("failed to invalidate facility %s: %w", id, err)
	}
	return nil
}


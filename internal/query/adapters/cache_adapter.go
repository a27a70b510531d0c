package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/zatekoja/facilityfinder/backend/internal/domain/providers"
	apperrors "github.com/zatekoja/facilityfinder/backend/pkg/errors"
)

// QueryCacheAdapter wraps the domain CacheProvider to implement services.QueryCache.
// Values are stored as JSON.
type QueryCacheAdapter struct {
	provider providers.CacheProvider
}

// NewQueryCacheAdapter creates a new query cache adapter
func NewQueryCacheAdapter(provider providers.CacheProvider) *QueryCacheAdapter {
	return &QueryCacheAdapter{provider: provider}
}

// Get loads key into dest. It reports false without error on a miss.
// A backend failure or an undecodable entry is returned as a cache
// unavailable error.
func (a *QueryCacheAdapter) Get(ctx context.Context, key string, dest any) (bool, error) {
	data, err := a.provider.Get(ctx, key)
	if errors.Is(err, providers.ErrCacheMiss) {
		return false, nil
	}
	if err != nil {
		return false, apperrors.NewCacheUnavailableError("failed to get from cache", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, apperrors.NewCacheUnavailableError("failed to decode cache entry", err)
	}
	return true, nil
}

// Set marshals the value to JSON and stores it with the given TTL.
// TTLs are rounded down to whole seconds with a floor of one second.
func (a *QueryCacheAdapter) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return apperrors.NewInternalError("failed to encode cache entry", err)
	}

	seconds := int(ttl / time.Second)
	if seconds < 1 {
		seconds = 1
	}

	if err := a.provider.Set(ctx, key, data, seconds); err != nil {
		return apperrors.NewCacheUnavailableError("failed to set cache", err)
	}
	return nil
}

// Delete removes a value from cache
func (a *QueryCacheAdapter) Delete(ctx context.Context, key string) error {
	if err := a.provider.Delete(ctx, key); err != nil {
		return apperrors.NewCacheUnavailableError("failed to delete from cache", err)
	}
	return nil
}

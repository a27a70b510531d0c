// Package backends opens the catalog store and cache selected by configuration.
package backends

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/facilityfinder/backend/internal/adapters/cache"
	"github.com/zatekoja/facilityfinder/backend/internal/adapters/database"
	"github.com/zatekoja/facilityfinder/backend/internal/domain/providers"
	"github.com/zatekoja/facilityfinder/backend/internal/domain/repositories"
	"github.com/zatekoja/facilityfinder/backend/internal/infrastructure/clients/mongo"
	"github.com/zatekoja/facilityfinder/backend/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/facilityfinder/backend/internal/infrastructure/clients/redis"
	"github.com/zatekoja/facilityfinder/backend/pkg/config"
)

// CloseFunc releases a backend connection
type CloseFunc func(ctx context.Context) error

func noopClose(context.Context) error { return nil }

// OpenCatalog connects to the configured catalog store
func OpenCatalog(ctx context.Context, cfg *config.Config) (repositories.Catalog, CloseFunc, error) {
	switch cfg.Store.Driver {
	case "mongo":
		client, err := mongo.NewClient(ctx, &cfg.Mongo)
		if err != nil {
			return nil, nil, err
		}
		return database.NewMongoFacilityAdapter(client.Facilities()), client.Close, nil

	case "postgres":
		client, err := postgres.NewClient(ctx, &cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		return database.NewFacilityAdapter(client), func(context.Context) error { return client.Close() }, nil

	case "memory":
		log.Warn().Msg("using in-memory facility store; data is lost on restart")
		return database.NewMemoryFacilityAdapter(), noopClose, nil
	}
	return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
}

// OpenCache connects to the configured cache and wraps it in a circuit
// breaker. It returns a nil provider when caching is disabled.
func OpenCache(ctx context.Context, cfg *config.Config) (providers.CacheProvider, CloseFunc, error) {
	var provider providers.CacheProvider
	closer := noopClose

	switch cfg.Cache.Driver {
	case "none":
		log.Info().Msg("response cache disabled")
		return nil, noopClose, nil

	case "redis":
		client, err := redis.NewClient(ctx, &cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		provider = cache.NewRedisAdapter(client)
		closer = func(context.Context) error { return client.Close() }

	case "memory":
		provider = cache.NewMemoryAdapter(cfg.Cache.MemoryMaxEntries)

	default:
		return nil, nil, fmt.Errorf("unsupported cache driver %q", cfg.Cache.Driver)
	}

	return cache.NewBreakerAdapter(provider, cfg.Cache.BreakerFailures, cfg.Cache.BreakerOpenPeriod), closer, nil
}


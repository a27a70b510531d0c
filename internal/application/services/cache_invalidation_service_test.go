package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/facilityfinder/backend/internal/adapters/cache"
	"github.com/zatekoja/facilityfinder/backend/internal/application/services"
	"github.com/zatekoja/facilityfinder/backend/internal/domain/providers"
	queryservices "github.com/zatekoja/facilityfinder/backend/internal/query/services"
)

func TestCacheInvalidationService_InvalidateCatalog(t *testing.T) {
	ctx := context.Background()
	memory := cache.NewMemoryAdapter(10)
	require.NoError(t, memory.Set(ctx, "facilities:list:one", []byte(`{}`), 60))
	require.NoError(t, memory.Set(ctx, "facilities:item:two", []byte(`{}`), 60))
	require.NoError(t, memory.Set(ctx, "sessions:three", []byte(`{}`), 60))

	deleted, err := services.NewCacheInvalidationService(memory).InvalidateCatalog(ctx)

	require.NoError(t, err)
	assert.Equal(t, 2, deleted)
	assert.Equal(t, 1, memory.Len())
}

func TestCacheInvalidationService_InvalidateFacility(t *testing.T) {
	ctx := context.Background()
	memory := cache.NewMemoryAdapter(10)
	key := queryservices.ItemCacheKey("abc")
	require.NoError(t, memory.Set(ctx, key.Stored, []byte(`{}`), 60))

	require.NoError(t, services.NewCacheInvalidationService(memory).InvalidateFacility(ctx, "abc"))

	_, err := memory.Get(ctx, key.Stored)
	assert.ErrorIs(t, err, providers.ErrCacheMiss)
}

package adapters

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/facilityfinder/backend/internal/domain/entities"
	"github.com/zatekoja/facilityfinder/backend/internal/domain/providers"
	apperrors "github.com/zatekoja/facilityfinder/backend/pkg/errors"
)

// MockCacheProvider is a mock implementation of providers.CacheProvider
type MockCacheProvider struct {
	mock.Mock
}

func (m *MockCacheProvider) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockCacheProvider) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	args := m.Called(ctx, key, value, expirationSeconds)
	return args.Error(0)
}

func (m *MockCacheProvider) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockCacheProvider) DeletePattern(ctx context.Context, pattern string) (int, error) {
	args := m.Called(ctx, pattern)
	return args.Int(0), args.Error(1)
}

func (m *MockCacheProvider) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func TestQueryCacheAdapter_Get(t *testing.T) {
	provider := new(MockCacheProvider)
	adapter := NewQueryCacheAdapter(provider)
	ctx := context.Background()

	provider.On("Get", ctx, "hit").Return([]byte(`{"id":"f-1","name":"City Fitness Central"}`), nil)
	provider.On("Get", ctx, "miss").Return(nil, providers.ErrCacheMiss)
	provider.On("Get", ctx, "down").Return(nil, errors.New("i/o timeout"))
	provider.On("Get", ctx, "corrupt").Return([]byte(`{"id":`), nil)

	var facility entities.Facility
	found, err := adapter.Get(ctx, "hit", &facility)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "City Fitness Central", facility.Name)

	found, err = adapter.Get(ctx, "miss", &facility)
	assert.NoError(t, err)
	assert.False(t, found)

	found, err = adapter.Get(ctx, "down", &facility)
	assert.False(t, found)
	assert.Equal(t, apperrors.ErrorTypeCacheUnavailable, apperrors.TypeOf(err))

	found, err = adapter.Get(ctx, "corrupt", &facility)
	assert.False(t, found)
	assert.Equal(t, apperrors.ErrorTypeCacheUnavailable, apperrors.TypeOf(err))
}

func TestQueryCacheAdapter_SetRoundsTTL(t *testing.T) {
	provider := new(MockCacheProvider)
	adapter := NewQueryCacheAdapter(provider)
	ctx := context.Background()

	provider.On("Set", ctx, "a", []byte(`{"k":1}`), 120).Return(nil)
	provider.On("Set", ctx, "b", []byte(`{"k":1}`), 1).Return(nil)

	require.NoError(t, adapter.Set(ctx, "a", map[string]int{"k": 1}, 2*time.Minute))
	require.NoError(t, adapter.Set(ctx, "b", map[string]int{"k": 1}, 300*time.Millisecond))
	provider.AssertExpectations(t)
}

func TestQueryCacheAdapter_SetFailure(t *testing.T) {
	provider := new(MockCacheProvider)
	adapter := NewQueryCacheAdapter(provider)
	ctx := context.Background()

	provider.On("Set", ctx, "a", mock.Anything, 60).Return(errors.New("READONLY"))

	err := adapter.Set(ctx, "a", "value", time.Minute)
	assert.Equal(t, apperrors.ErrorTypeCacheUnavailable, apperrors.TypeOf(err))
}

package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/facilityfinder/backend/internal/domain/providers"
	redisclient "github.com/zatekoja/facilityfinder/backend/internal/infrastructure/clients/redis"
)

func setupRedisAdapter(t *testing.T) (*RedisAdapter, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewRedisAdapter(redisclient.Wrap(rdb)), mr
}

func TestRedisAdapter_GetSet(t *testing.T) {
	adapter, mr := setupRedisAdapter(t)
	ctx := context.Background()

	_, err := adapter.Get(ctx, "facilities:item:abc")
	assert.ErrorIs(t, err, providers.ErrCacheMiss)

	require.NoError(t, adapter.Set(ctx, "facilities:item:abc", []byte(`{"id":"abc"}`), 300))

	got, err := adapter.Get(ctx, "facilities:item:abc")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"abc"}`, string(got))
	assert.Equal(t, 300*time.Second, mr.TTL("facilities:item:abc"))
}

func TestRedisAdapter_Expiry(t *testing.T) {
	adapter, mr := setupRedisAdapter(t)
	ctx := context.Background()

	require.NoError(t, adapter.Set(ctx, "k", []byte("v"), 120))
	mr.FastForward(121 * time.Second)

	_, err := adapter.Get(ctx, "k")
	assert.ErrorIs(t, err, providers.ErrCacheMiss)
}

func TestRedisAdapter_DeletePattern(t *testing.T) {
	adapter, mr := setupRedisAdapter(t)
	ctx := context.Background()

	for i := 0; i < 1200; i++ {
		require.NoError(t, mr.Set(fmt.Sprintf("facilities:list:%d", i), "x"))
	}
	require.NoError(t, mr.Set("sessions:1", "keep"))

	deleted, err := adapter.DeletePattern(ctx, "facilities:*")

	require.NoError(t, err)
	assert.Equal(t, 1200, deleted)
	assert.True(t, mr.Exists("sessions:1"))
	assert.False(t, mr.Exists("facilities:list:7"))
}

func TestRedisAdapter_Unavailable(t *testing.T) {
	adapter, mr := setupRedisAdapter(t)
	mr.Close()

	_, err := adapter.Get(context.Background(), "k")

	require.Error(t, err)
	assert.NotErrorIs(t, err, providers.ErrCacheMiss)
	assert.Error(t, adapter.Ping(context.Background()))
}

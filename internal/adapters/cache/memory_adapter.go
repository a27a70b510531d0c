package cache

import (
	"context"
	"path"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/zatekoja/facilityfinder/backend/internal/domain/providers"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryAdapter implements the CacheProvider interface with a bounded
// in-process LRU. Each entry carries its own expiry because the LRU only
// supports one TTL for all keys.
type MemoryAdapter struct {
	lru *expirable.LRU[string, memoryEntry]
	now func() time.Time
}

// NewMemoryAdapter creates an in-process cache holding at most maxEntries keys
func NewMemoryAdapter(maxEntries int) *MemoryAdapter {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &MemoryAdapter{
		lru: expirable.NewLRU[string, memoryEntry](maxEntries, nil, 0),
		now: time.Now,
	}
}

// Get retrieves a value from cache
func (a *MemoryAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	entry, ok := a.lru.Get(key)
	if !ok {
		return nil, providers.ErrCacheMiss
	}
	if !a.now().Before(entry.expiresAt) {
		a.lru.Remove(key)
		return nil, providers.ErrCacheMiss
	}

	out := make([]byte, len(entry.data))
	copy(out, entry.data)
	return out, nil
}

// Set stores a copy of value with expiration
func (a *MemoryAdapter) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	data := make([]byte, len(value))
	copy(data, value)

	a.lru.Add(key, memoryEntry{
		data:      data,
		expiresAt: a.now().Add(time.Duration(expirationSeconds) * time.Second),
	})
	return nil
}

// Delete removes a value from cache
func (a *MemoryAdapter) Delete(ctx context.Context, key string) error {
	a.lru.Remove(key)
	return nil
}

// DeletePattern removes every key matching a glob pattern
func (a *MemoryAdapter) DeletePattern(ctx context.Context, pattern string) (int, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return 0, err
	}

	deleted := 0
	for _, key := range a.lru.Keys() {
		if ok, _ := path.Match(pattern, key); ok && a.lru.Remove(key) {
			deleted++
		}
	}
	return deleted, nil
}

// Ping always succeeds
func (a *MemoryAdapter) Ping(ctx context.Context) error {
	return nil
}

// Len returns the number of stored entries, including expired ones not yet evicted
func (a *MemoryAdapter) Len() int {
	return a.lru.Len()
}

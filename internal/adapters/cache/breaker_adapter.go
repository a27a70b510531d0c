package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"github.com/zatekoja/facilityfinder/backend/internal/domain/providers"
)

// ErrCircuitOpen is returned while the breaker is rejecting cache calls
var ErrCircuitOpen = errors.New("cache circuit open")

// BreakerAdapter guards a CacheProvider with a circuit breaker. After
// consecutive failures it fails fast until the open period has elapsed.
type BreakerAdapter struct {
	next providers.CacheProvider
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerAdapter wraps next. failures is the number of consecutive
// failures that opens the breaker.
func NewBreakerAdapter(next providers.CacheProvider, failures int, openPeriod time.Duration) *BreakerAdapter {
	if failures < 1 {
		failures = 1
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "cache",
		MaxRequests: 1,
		Timeout:     openPeriod,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(failures)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, providers.ErrCacheMiss) ||
				errors.Is(err, context.Canceled)
		},
	})

	return &BreakerAdapter{next: next, cb: cb}
}

// State returns the current breaker state
func (b *BreakerAdapter) State() gobreaker.State {
	return b.cb.State()
}

// Get retrieves a value from cache
func (b *BreakerAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Get(ctx, key)
	})
	if err != nil {
		return nil, b.wrap(err)
	}
	return res.([]byte), nil
}

// Set stores a value in cache with expiration
func (b *BreakerAdapter) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.Set(ctx, key, value, expirationSeconds)
	})
	return b.wrap(err)
}

// Delete removes a value from cache
func (b *BreakerAdapter) Delete(ctx context.Context, key string) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.Delete(ctx, key)
	})
	return b.wrap(err)
}

// DeletePattern bypasses the breaker; it is only used by maintenance jobs
// that must report the real outcome.
func (b *BreakerAdapter) DeletePattern(ctx context.Context, pattern string) (int, error) {
	return b.next.DeletePattern(ctx, pattern)
}

// Ping bypasses the breaker so readiness reflects the backend
func (b *BreakerAdapter) Ping(ctx context.Context) error {
	return b.next.Ping(ctx)
}

func (b *BreakerAdapter) wrap(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	}
	return err
}

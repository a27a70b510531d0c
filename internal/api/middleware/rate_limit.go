package middleware

import (
	"fmt"
	"math"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/zatekoja/facilityfinder/backend/internal/infrastructure/observability"
	"github.com/zatekoja/facilityfinder/backend/pkg/auth"
	"github.com/zatekoja/facilityfinder/backend/pkg/config"
	apperrors "github.com/zatekoja/facilityfinder/backend/pkg/errors"
	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per caller. Buckets are held in a
// bounded LRU so a flood of distinct callers cannot grow memory without limit.
type RateLimiter struct {
	mu       sync.Mutex
	limiters *lru.Cache[string, *rate.Limiter]
	limit    rate.Limit
	burst    int
	metrics  *observability.Metrics
	now      func() time.Time

	trustedProxies []netip.Prefix
}

// NewRateLimiter creates a limiter from configuration
func NewRateLimiter(cfg config.RateLimitConfig, metrics *observability.Metrics) (*RateLimiter, error) {
	size := cfg.TrackedClients
	if size < 1 {
		size = 10000
	}
	limiters, err := lru.New[string, *rate.Limiter](size)
	if err != nil {
		return nil, err
	}
	trusted, err := parseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return nil, err
	}

	return &RateLimiter{
		limiters:       limiters,
		limit:          rate.Limit(cfg.RequestsPerSec),
		burst:          cfg.Burst,
		metrics:        metrics,
		now:            time.Now,
		trustedProxies: trusted,
	}, nil
}

// parseTrustedProxies accepts bare addresses and CIDR prefixes
func parseTrustedProxies(entries []string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(entries))
	for _, entry := range entries {
		if addr, err := netip.ParseAddr(entry); err == nil {
			addr = addr.Unmap()
			prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}
		prefix, err := netip.ParsePrefix(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
		}
		if prefix.Addr().Is4In6() {
			prefix = netip.PrefixFrom(prefix.Addr().Unmap(), prefix.Bits()-96)
		}
		prefixes = append(prefixes, prefix.Masked())
	}
	return prefixes, nil
}

// Middleware rejects callers that exhausted their bucket with 429 and a
// Retry-After header. Authenticated callers are keyed by client id, anyone
// else by remote address.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := "ip:" + l.clientIP(r)
		if clientID := auth.ClientIDFromContext(r.Context()); clientID != "" {
			key = "client:" + clientID
		}

		allowed, retryAfter := l.allow(key)
		if !allowed {
			observability.RecordRateLimited(r.Context(), l.metrics)
			observability.LoggerFromContext(r.Context()).Warn().
				Str("rate_key", key).
				Dur("retry_after", retryAfter).
				Msg("rate limit exceeded")

			seconds := int(math.Ceil(retryAfter.Seconds()))
			if seconds < 1 {
				seconds = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
			writeError(w, apperrors.NewRateLimitedError("rate limit exceeded"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (l *RateLimiter) allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	limiter, ok := l.limiters.Get(key)
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters.Add(key, limiter)
	}
	l.mu.Unlock()

	now := l.now()
	reservation := limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return false, time.Second
	}
	delay := reservation.DelayFrom(now)
	if delay > 0 {
		reservation.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// clientIP returns the address a request is charged to. X-Forwarded-For is
// only read when the peer is a trusted proxy, and then the rightmost hop
// that is not itself a trusted proxy wins.
func (l *RateLimiter) clientIP(r *http.Request) string {
	peer := remoteIP(r)
	if !l.trusted(peer) {
		return peer
	}

	hops := r.Header.Values("X-Forwarded-For")
	for i := len(hops) - 1; i >= 0; i-- {
		entries := strings.Split(hops[i], ",")
		for j := len(entries) - 1; j >= 0; j-- {
			hop := strings.TrimSpace(entries[j])
			if hop == "" {
				continue
			}
			if _, err := netip.ParseAddr(hop); err != nil {
				// Garbage in the chain; stop at the last address we could verify
				return peer
			}
			if !l.trusted(hop) {
				return hop
			}
			peer = hop
		}
	}
	return peer
}

func (l *RateLimiter) trusted(ip string) bool {
	if len(l.trustedProxies) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range l.trustedProxies {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// remoteIP returns the host part of the peer address
func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

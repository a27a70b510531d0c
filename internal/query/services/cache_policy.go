package services

import (
	"time"

	"github.com/zatekoja/facilityfinder/backend/internal/domain/entities"
	"github.com/zatekoja/facilityfinder/backend/pkg/config"
)

// CacheTier identifies a TTL class
type CacheTier string

const (
	// TierUnfilteredList applies to browse pages without filters
	TierUnfilteredList CacheTier = "A"

	// TierFilteredList applies to pages with a name or amenity filter
	TierFilteredList CacheTier = "B"

	// TierItem applies to single facility lookups
	TierItem CacheTier = "C"
)

// CachePolicy decides which results are cached and for how long.
// Deep pages of filtered results are rarely repeated, so they bypass the cache.
type CachePolicy struct {
	maxUnfilteredPage int
	maxFilteredPage   int
	ttls              map[CacheTier]time.Duration
}

// NewCachePolicy creates a cache policy from configuration
func NewCachePolicy(cfg config.QueryConfig) CachePolicy {
	return CachePolicy{
		maxUnfilteredPage: cfg.MaxCachedPage,
		maxFilteredPage:   cfg.MaxCachedFilteredPage,
		ttls: map[CacheTier]time.Duration{
			TierUnfilteredList: cfg.UnfilteredListTTL,
			TierFilteredList:   cfg.FilteredListTTL,
			TierItem:           cfg.ItemTTL,
		},
	}
}

// ShouldCacheList reports whether a normalized listing query is eligible
func (p CachePolicy) ShouldCacheList(q entities.FacilityQuery) bool {
	if q.IsFiltered() {
		return q.Page <= p.maxFilteredPage
	}
	return q.Page <= p.maxUnfilteredPage
}

// ListTier returns the TTL tier of a listing query
func (p CachePolicy) ListTier(q entities.FacilityQuery) CacheTier {
	if q.IsFiltered() {
		return TierFilteredList
	}
	return TierUnfilteredList
}

// ListTTL returns the TTL of a listing query
func (p CachePolicy) ListTTL(q entities.FacilityQuery) time.Duration {
	return p.ttls[p.ListTier(q)]
}

// ItemTTL returns the TTL of a single facility
func (p CachePolicy) ItemTTL() time.Duration {
	return p.ttls[TierItem]
}

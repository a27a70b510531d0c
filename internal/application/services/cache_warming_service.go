package services

import (
	"context"
	"fmt"
	"time"

	"github.com/zatekoja/facilityfinder/backend/internal/domain/entities"
	"github.com/zatekoja/facilityfinder/backend/internal/infrastructure/observability"
	queryservices "github.com/zatekoja/facilityfinder/backend/internal/query/services"
)

const warmRunTimeout = time.Minute

// PageLoader is the read-through listing entry point warmed by CacheWarmingService
type PageLoader interface {
	GetFacilitiesWithStatus(ctx context.Context, q entities.FacilityQuery) (*entities.PaginatedResult, queryservices.CacheStatus, error)
}

// WarmReport summarizes one warming run
type WarmReport struct {
	Loaded  int
	Cached  int
	Skipped int
	Failed  int
}

// CacheWarmingService requests the first unfiltered listing pages through
// the read-through path so they are cached before users ask for them.
type CacheWarmingService struct {
	loader PageLoader
	pages  int
}

// NewCacheWarmingService creates a new cache warming service
func NewCacheWarmingService(loader PageLoader, pages int) *CacheWarmingService {
	return &CacheWarmingService{
		loader: loader,
		pages:  pages,
	}
}

// WarmCache loads pages 1..N of the default listing.
// It stops early once a page reports no next page.
func (s *CacheWarmingService) WarmCache(ctx context.Context) (WarmReport, error) {
	logger := observability.LoggerFromContext(ctx)
	var report WarmReport

	for page := 1; page <= s.pages; page++ {
		result, status, err := s.loader.GetFacilitiesWithStatus(ctx, entities.FacilityQuery{Page: page})
		if err != nil {
			report.Failed++
			logger.Warn().Err(err).Int("page", page).Msg("failed to warm facilities page")
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			continue
		}

		switch status {
		case queryservices.CacheMiss:
			report.Loaded++
		case queryservices.CacheHit:
			report.Cached++
		default:
			report.Skipped++
		}

		if !result.Meta.HasNextPage {
			break
		}
	}

	if report.Failed > 0 && report.Loaded+report.Cached == 0 {
		return report, fmt.Errorf("cache warming failed for all %d pages", report.Failed)
	}

	logger.Debug().
		Int("loaded", report.Loaded).
		Int("cached", report.Cached).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Msg("cache warming completed")
	return report, nil
}

// StartPeriodicWarming warms once, then every interval until ctx is cancelled.
// The returned channel is closed when the background goroutine exits.
func (s *CacheWarmingService) StartPeriodicWarming(ctx context.Context, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	logger := observability.LoggerFromContext(ctx)

	go func() {
		defer close(done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			runCtx, cancel := context.WithTimeout(ctx, warmRunTimeout)
			if _, err := s.WarmCache(runCtx); err != nil && ctx.Err() == nil {
				logger.Warn().Err(err).Msg("cache warming failed")
			}
			cancel()

			select {
			case <-ctx.Done():
				logger.Info().Msg("stopping cache warming service")
				return
			case <-ticker.C:
			}
		}
	}()

	logger.Info().Dur("interval", interval).Int("pages", s.pages).Msg("started periodic cache warming")
	return done
}

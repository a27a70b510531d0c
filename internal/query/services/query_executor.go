package services

import (
	"context"
	"errors"
	"time"

	"github.com/zatekoja/facilityfinder/backend/internal/domain/entities"
	"github.com/zatekoja/facilityfinder/backend/internal/domain/repositories"
	"github.com/zatekoja/facilityfinder/backend/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/facilityfinder/backend/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// QueryExecutor runs a normalized query against the catalog store
type QueryExecutor struct {
	store   repositories.FacilityStore
	metrics *observability.Metrics
}

// NewQueryExecutor creates a query executor. metrics may be nil.
func NewQueryExecutor(store repositories.FacilityStore, metrics *observability.Metrics) *QueryExecutor {
	return &QueryExecutor{store: store, metrics: metrics}
}

// Execute returns one page of results and its pagination metadata.
// Count and Find are issued concurrently with the same filter.
func (e *QueryExecutor) Execute(ctx context.Context, q entities.FacilityQuery) (*entities.PaginatedResult, error) {
	ctx, span := observability.StartSpan(ctx, "QueryExecutor.Execute")
	defer span.End()

	if !q.OffsetInRange() {
		return nil, apperrors.NewValidationError("page is out of range")
	}

	filter := TranslateFilter(q)
	opts := repositories.FindOptions{
		Sort:  TranslateSort(q),
		Skip:  int64(q.Offset()),
		Limit: int64(q.Limit),
	}

	var (
		total      int64
		facilities []entities.Facility
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		defer func() { observability.RecordStoreMetric(gctx, e.metrics, "count", time.Since(start)) }()

		n, err := e.store.Count(gctx, filter)
		if err != nil {
			return storeError("failed to count facilities", err)
		}
		total = n
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		defer func() { observability.RecordStoreMetric(gctx, e.metrics, "find", time.Since(start)) }()

		found, err := e.store.Find(gctx, filter, opts)
		if err != nil {
			return storeError("failed to find facilities", err)
		}
		facilities = found
		return nil
	})

	if err := g.Wait(); err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	if facilities == nil {
		facilities = []entities.Facility{}
	}

	return &entities.PaginatedResult{
		Data: facilities,
		Meta: BuildPageMeta(total, q.Page, q.Limit),
	}, nil
}

// FindByID looks up a single facility, returning a not found error when absent
func (e *QueryExecutor) FindByID(ctx context.Context, id string) (*entities.Facility, error) {
	start := time.Now()
	facility, err := e.store.FindByID(ctx, id)
	observability.RecordStoreMetric(ctx, e.metrics, "find_by_id", time.Since(start))
	if err != nil {
		return nil, storeError("failed to get facility", err)
	}
	if facility == nil {
		return nil, apperrors.NewNotFoundError("facility " + id + " not found")
	}
	return facility, nil
}

// BuildPageMeta computes pagination metadata. An empty result still has one page.
func BuildPageMeta(total int64, page, limit int) entities.PageMeta {
	totalPages := 1
	if limit > 0 && total > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	if totalPages < 1 {
		totalPages = 1
	}

	return entities.PageMeta{
		Total:           total,
		Page:            page,
		Limit:           limit,
		TotalPages:      totalPages,
		HasNextPage:     page < totalPages,
		HasPreviousPage: page > 1,
	}
}

// storeError keeps typed errors from adapters and wraps anything else as a
// store outage.
func storeError(message string, err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.NewStoreUnavailableError(message, err)
}

package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zatekoja/facilityfinder/backend/internal/domain/entities"
	"github.com/zatekoja/facilityfinder/backend/internal/domain/repositories"
	"github.com/zatekoja/facilityfinder/backend/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/facilityfinder/backend/pkg/errors"
)

// facilityNamespace scopes the name-derived v5 ids of seeded facilities
var facilityNamespace = uuid.MustParse("7f6d3a52-8c1e-5b7a-9e43-2d1c0f6b8a91")

const defaultSeedBatchSize = 100

// SeedReport summarizes one seeding run
type SeedReport struct {
	Deleted      int64
	Inserted     int
	Batches      int
	CacheFlushed int
	Duration     time.Duration
}

// CatalogSeedService replaces the facility catalog from a dataset
type CatalogSeedService struct {
	writer      repositories.CatalogWriter
	invalidator *CacheInvalidationService
	batchSize   int
}

// NewCatalogSeedService creates a seed service. invalidator may be nil, in
// which case cached pages are left to expire.
func NewCatalogSeedService(writer repositories.CatalogWriter, invalidator *CacheInvalidationService, batchSize int) *CatalogSeedService {
	if batchSize < 1 {
		batchSize = defaultSeedBatchSize
	}
	return &CatalogSeedService{
		writer:      writer,
		invalidator: invalidator,
		batchSize:   batchSize,
	}
}

// Seed validates the dataset, clears the catalog and inserts the dataset in
// batches. Nothing is deleted when the dataset is invalid.
func (s *CatalogSeedService) Seed(ctx context.Context, dataset []entities.Facility) (*SeedReport, error) {
	start := time.Now()
	logger := observability.LoggerFromContext(ctx)

	facilities, err := PrepareCatalog(dataset)
	if err != nil {
		return nil, err
	}

	report := &SeedReport{}

	report.Deleted, err = s.writer.DeleteAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to clear catalog: %w", err)
	}
	logger.Info().Int64("deleted", report.Deleted).Msg("cleared facility catalog")

	for begin := 0; begin < len(facilities); begin += s.batchSize {
		end := begin + s.batchSize
		if end > len(facilities) {
			end = len(facilities)
		}

		if err := s.writer.InsertBatch(ctx, facilities[begin:end]); err != nil {
			return nil, fmt.Errorf("failed to insert batch %d: %w", report.Batches+1, err)
		}
		report.Batches++
		report.Inserted += end - begin
		logger.Debug().Int("batch", report.Batches).Int("size", end-begin).Msg("inserted facility batch")
	}

	if err := s.writer.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure indexes: %w", err)
	}

	if s.invalidator != nil {
		report.CacheFlushed, err = s.invalidator.InvalidateCatalog(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to flush cached facility pages")
		}
	}

	report.Duration = time.Since(start)
	logger.Info().
		Int("inserted", report.Inserted).
		Int("batches", report.Batches).
		Int("cache_flushed", report.CacheFlushed).
		Dur("duration", report.Duration).
		Msg("facility catalog seeded")

	return report, nil
}

// PrepareCatalog validates facilities and fills in derived fields.
//
// Missing ids are derived from name and address so reseeding the same data
// keeps ids stable. Amenities are trimmed and de-duplicated ignoring case,
// keeping the first spelling.
func PrepareCatalog(dataset []entities.Facility) ([]entities.Facility, error) {
	out := make([]entities.Facility, 0, len(dataset))
	seen := make(map[string]int, len(dataset))

	for i, f := range dataset {
		f.Name = strings.TrimSpace(f.Name)
		f.Address = strings.TrimSpace(f.Address)
		f.ID = strings.TrimSpace(f.ID)

		if f.Name == "" {
			return nil, apperrors.NewValidationError(fmt.Sprintf("facility %d: name is required", i))
		}
		if !f.Location.Valid() {
			return nil, apperrors.NewValidationError(fmt.Sprintf(
				"facility %q: coordinates (%v, %v) out of range", f.Name, f.Location.Latitude, f.Location.Longitude))
		}

		if f.ID == "" {
			f.ID = FacilityID(f.Name, f.Address)
		}
		if prev, dup := seen[f.ID]; dup {
			return nil, apperrors.NewValidationError(fmt.Sprintf(
				"facility %q: id %s already used by facility %d", f.Name, f.ID, prev))
		}
		seen[f.ID] = i

		f.Amenities = dedupeAmenities(f.Amenities)
		out = append(out, f)
	}

	return out, nil
}

// FacilityID returns the stable id derived from a facility's name and address
func FacilityID(name, address string) string {
	key := strings.ToLower(strings.TrimSpace(name)) + "\n" + strings.ToLower(strings.TrimSpace(address))
	return uuid.NewSHA1(facilityNamespace, []byte(key)).String()
}

func dedupeAmenities(amenities []string) []string {
	out := make([]string, 0, len(amenities))
	seen := make(map[string]struct{}, len(amenities))
	for _, a := range amenities {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		folded := strings.ToLower(a)
		if _, ok := seen[folded]; ok {
			continue
		}
		seen[folded] = struct{}{}
		out = append(out, a)
	}
	return out
}

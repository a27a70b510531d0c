package database

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/zatekoja/facilityfinder/backend/internal/domain/entities"
	"github.com/zatekoja/facilityfinder/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/facilityfinder/backend/pkg/errors"
)

type memoryRecord struct {
	facility    entities.Facility
	amenitiesCI map[string]struct{}
	createdAt   time.Time
}

// MemoryFacilityAdapter is an in-process FacilityStore and CatalogWriter.
// It applies the same filter semantics as the database adapters and is used
// for local development without a database.
type MemoryFacilityAdapter struct {
	mu      sync.RWMutex
	records []memoryRecord
	byID    map[string]int
	now     func() time.Time
}

// NewMemoryFacilityAdapter creates an empty in-memory catalog
func NewMemoryFacilityAdapter() *MemoryFacilityAdapter {
	return &MemoryFacilityAdapter{
		byID: make(map[string]int),
		now:  time.Now,
	}
}

// Count returns the number of facilities matching filter
func (a *MemoryFacilityAdapter) Count(ctx context.Context, filter repositories.FacilityFilter) (int64, error) {
	matched, err := a.match(filter)
	if err != nil {
		return 0, err
	}
	return int64(len(matched)), nil
}

// Find returns one window of facilities matching filter
func (a *MemoryFacilityAdapter) Find(ctx context.Context, filter repositories.FacilityFilter, opts repositories.FindOptions) ([]entities.Facility, error) {
	matched, err := a.match(filter)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return lessBySpecs(matched[i], matched[j], opts.Sort)
	})

	start := len(matched)
	if opts.Skip < int64(start) {
		start = max(int(opts.Skip), 0)
	}
	end := len(matched)
	if opts.Limit > 0 && opts.Limit < int64(end-start) {
		end = start + int(opts.Limit)
	}

	out := make([]entities.Facility, 0, end-start)
	for _, r := range matched[start:end] {
		out = append(out, cloneFacility(r.facility))
	}
	return out, nil
}

// FindByID returns the facility with the given id, or nil when absent
func (a *MemoryFacilityAdapter) FindByID(ctx context.Context, id string) (*entities.Facility, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	idx, ok := a.byID[id]
	if !ok {
		return nil, nil
	}
	facility := cloneFacility(a.records[idx].facility)
	return &facility, nil
}

// Ping always succeeds
func (a *MemoryFacilityAdapter) Ping(ctx context.Context) error {
	return nil
}

// DeleteAll removes every facility
func (a *MemoryFacilityAdapter) DeleteAll(ctx context.Context) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := int64(len(a.records))
	a.records = nil
	a.byID = make(map[string]int)
	return n, nil
}

// InsertBatch appends facilities; duplicate ids are rejected as a whole batch
func (a *MemoryFacilityAdapter) InsertBatch(ctx context.Context, facilities []entities.Facility) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	seen := make(map[string]struct{}, len(facilities))
	for _, f := range facilities {
		if _, dup := a.byID[f.ID]; dup {
			return apperrors.NewValidationError("duplicate facility id " + f.ID)
		}
		if _, dup := seen[f.ID]; dup {
			return apperrors.NewValidationError("duplicate facility id " + f.ID)
		}
		seen[f.ID] = struct{}{}
	}

	now := a.now()
	for _, f := range facilities {
		ci := make(map[string]struct{}, len(f.Amenities))
		for _, amenity := range f.Amenities {
			ci[strings.ToLower(amenity)] = struct{}{}
		}
		a.byID[f.ID] = len(a.records)
		a.records = append(a.records, memoryRecord{
			facility:    cloneFacility(f),
			amenitiesCI: ci,
			createdAt:   now,
		})
	}
	return nil
}

// EnsureIndexes is a no-op
func (a *MemoryFacilityAdapter) EnsureIndexes(ctx context.Context) error {
	return nil
}

func (a *MemoryFacilityAdapter) match(filter repositories.FacilityFilter) ([]memoryRecord, error) {
	var nameRe *regexp.Regexp
	if filter.NamePattern != "" {
		re, err := regexp.Compile("(?i)" + filter.NamePattern)
		if err != nil {
			return nil, apperrors.NewValidationError("invalid name pattern")
		}
		nameRe = re
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	matched := make([]memoryRecord, 0, len(a.records))
	for _, r := range a.records {
		if nameRe != nil && !nameRe.MatchString(r.facility.Name) {
			continue
		}
		if !matchAmenities(r.amenitiesCI, filter) {
			continue
		}
		matched = append(matched, r)
	}
	return matched, nil
}

func matchAmenities(have map[string]struct{}, filter repositories.FacilityFilter) bool {
	if len(filter.Amenities) == 0 {
		return true
	}

	found := 0
	for _, want := range filter.Amenities {
		if _, ok := have[strings.ToLower(want)]; ok {
			found++
		}
	}

	switch filter.AmenityMode {
	case entities.AmenityMatchAny:
		return found > 0
	case entities.AmenityMatchExact:
		return found == len(filter.Amenities) && len(have) == len(filter.Amenities)
	default:
		return found == len(filter.Amenities)
	}
}

func lessBySpecs(a, b memoryRecord, specs []repositories.SortSpec) bool {
	for _, s := range specs {
		c := compareField(a, b, s.Field)
		if c == 0 {
			continue
		}
		if s.Order == entities.SortDesc {
			return c > 0
		}
		return c < 0
	}
	return false
}

func compareField(a, b memoryRecord, field entities.SortField) int {
	switch field {
	case entities.SortByName:
		return strings.Compare(strings.ToLower(a.facility.Name), strings.ToLower(b.facility.Name))
	case entities.SortByAddress:
		return strings.Compare(strings.ToLower(a.facility.Address), strings.ToLower(b.facility.Address))
	case entities.SortByCreatedAt:
		return a.createdAt.Compare(b.createdAt)
	case entities.SortByID:
		return strings.Compare(a.facility.ID, b.facility.ID)
	}
	return 0
}

func cloneFacility(f entities.Facility) entities.Facility {
	amenities := make([]string, len(f.Amenities))
	copy(amenities, f.Amenities)
	f.Amenities = amenities
	return f
}

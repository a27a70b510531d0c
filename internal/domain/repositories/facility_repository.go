package repositories

import (
	"context"

	"github.com/zatekoja/facilityfinder/backend/internal/domain/entities"
)

// FacilityStore defines the read operations the query layer needs from the
// catalog store. Implementations project records to public fields only.
type FacilityStore interface {
	// Count returns the number of facilities matching filter
	Count(ctx context.Context, filter FacilityFilter) (int64, error)

	// Find returns one window of facilities matching filter
	Find(ctx context.Context, filter FacilityFilter, opts FindOptions) ([]entities.Facility, error)

	// FindByID returns the facility with the given id, or nil when absent
	FindByID(ctx context.Context, id string) (*entities.Facility, error)

	// Ping verifies the store is reachable
	Ping(ctx context.Context) error
}

// CatalogWriter defines the bulk operations used by seeding.
type CatalogWriter interface {
	// DeleteAll removes every facility and returns how many were removed
	DeleteAll(ctx context.Context) (int64, error)

	// InsertBatch inserts facilities in a single round trip
	InsertBatch(ctx context.Context, facilities []entities.Facility) error

	// EnsureIndexes creates the collection/table indexes used by search
	EnsureIndexes(ctx context.Context) error
}

// FacilityFilter is the backend-agnostic filter produced by the query layer.
type FacilityFilter struct {
	// NamePattern is a regular expression with all metacharacters of the
	// caller input escaped. It is matched case-insensitively as a substring.
	NamePattern string

	// Amenities are lower-cased, de-duplicated labels.
	Amenities   []string
	AmenityMode entities.AmenityMatchMode
}

// IsEmpty reports whether the filter matches every facility.
func (f FacilityFilter) IsEmpty() bool {
	return f.NamePattern == "" && len(f.Amenities) == 0
}

// SortSpec is one sort key.
type SortSpec struct {
	Field entities.SortField
	Order entities.SortOrder
}

// FindOptions defines the ordering and window of a Find call
type FindOptions struct {
	Sort  []SortSpec
	Skip  int64
	Limit int64
}

// Catalog is a store that can also be reseeded
type Catalog interface {
	FacilityStore
	CatalogWriter
}

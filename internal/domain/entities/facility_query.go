package entities

import "math"

// AmenityMatchMode controls how requested amenities are compared against a
// facility's amenity set.
type AmenityMatchMode string

const (
	// AmenityMatchAll requires every requested amenity to be present
	AmenityMatchAll AmenityMatchMode = "ALL"

	// AmenityMatchAny requires at least one requested amenity
	AmenityMatchAny AmenityMatchMode = "ANY"

	// AmenityMatchExact requires the amenity set to equal the requested set
	AmenityMatchExact AmenityMatchMode = "EXACT"
)

// Valid reports whether m is a known match mode.
func (m AmenityMatchMode) Valid() bool {
	switch m {
	case AmenityMatchAll, AmenityMatchAny, AmenityMatchExact:
		return true
	}
	return false
}

// SortOrder is the direction of a sort.
type SortOrder string

const (
	SortAsc  SortOrder = "ASC"
	SortDesc SortOrder = "DESC"
)

// SortField names a sortable facility attribute.
type SortField string

const (
	SortByName      SortField = "name"
	SortByAddress   SortField = "address"
	SortByCreatedAt SortField = "createdAt"

	// SortByID is only used as a tiebreaker and is not accepted from callers.
	SortByID SortField = "id"
)

// SortableFields is the allow-list of fields callers may sort by.
var SortableFields = []SortField{SortByName, SortByAddress, SortByCreatedAt}

// IsSortable reports whether f is on the caller allow-list.
func (f SortField) IsSortable() bool {
	for _, allowed := range SortableFields {
		if f == allowed {
			return true
		}
	}
	return false
}

// FacilityQuery is the typed listing request handed to the query layer.
// Zero values mean "not supplied" and are resolved to defaults during
// normalization.
type FacilityQuery struct {
	Name             string
	Amenities        []string
	AmenityMatchMode AmenityMatchMode
	Page             int
	Limit            int
	SortBy           SortField
	SortOrder        SortOrder
}

// HasNameFilter reports whether a name filter is set.
func (q FacilityQuery) HasNameFilter() bool {
	return q.Name != ""
}

// HasAmenityFilter reports whether an amenity filter is set.
func (q FacilityQuery) HasAmenityFilter() bool {
	return len(q.Amenities) > 0
}

// IsFiltered reports whether any name or amenity filter is set.
func (q FacilityQuery) IsFiltered() bool {
	return q.HasNameFilter() || q.HasAmenityFilter()
}

// MaxOffset is the deepest record a page may start at. Normalization rejects
// pages beyond it, and Offset saturates rather than wrapping.
const MaxOffset = math.MaxInt32

// Offset returns the number of records to skip for the query's page.
func (q FacilityQuery) Offset() int {
	if q.Page < 1 || q.Limit < 1 {
		return 0
	}
	if q.Page-1 > math.MaxInt/q.Limit {
		return math.MaxInt
	}
	return (q.Page - 1) * q.Limit
}

// OffsetInRange reports whether the page starts within MaxOffset.
func (q FacilityQuery) OffsetInRange() bool {
	return q.Offset() <= MaxOffset
}

package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zatekoja/facilityfinder/backend/internal/domain/entities"
	"github.com/zatekoja/facilityfinder/backend/pkg/config"
	apperrors "github.com/zatekoja/facilityfinder/backend/pkg/errors"
)

// QueryNormalizer resolves defaults and clamps a FacilityQuery so that every
// equivalent request maps onto the same descriptor (and the same cache key).
type QueryNormalizer struct {
	defaultLimit int
	maxLimit     int
}

// NewQueryNormalizer creates a normalizer from the paging configuration
func NewQueryNormalizer(cfg config.QueryConfig) QueryNormalizer {
	return QueryNormalizer{
		defaultLimit: cfg.DefaultPageSize,
		maxLimit:     cfg.MaxPageSize,
	}
}

// Normalize returns the canonical form of q.
//
// Out-of-range page and limit values are clamped; an unknown sort field falls
// back to name. An unknown match mode or sort order, or a page starting past
// entities.MaxOffset, is a validation error.
func (n QueryNormalizer) Normalize(q entities.FacilityQuery) (entities.FacilityQuery, error) {
	out := entities.FacilityQuery{
		Name:      strings.TrimSpace(q.Name),
		Amenities: normalizeAmenities(q.Amenities),
		Page:      q.Page,
		Limit:     q.Limit,
		SortBy:    q.SortBy,
	}

	mode := entities.AmenityMatchMode(strings.ToUpper(strings.TrimSpace(string(q.AmenityMatchMode))))
	if mode == "" {
		mode = entities.AmenityMatchAll
	}
	if !mode.Valid() {
		return entities.FacilityQuery{}, apperrors.NewValidationError(
			fmt.Sprintf("amenityMatchMode must be one of ALL, ANY, EXACT, got %q", q.AmenityMatchMode))
	}
	out.AmenityMatchMode = mode

	order := entities.SortOrder(strings.ToUpper(strings.TrimSpace(string(q.SortOrder))))
	switch order {
	case "":
		order = entities.SortAsc
	case entities.SortAsc, entities.SortDesc:
	default:
		return entities.FacilityQuery{}, apperrors.NewValidationError(
			fmt.Sprintf("sortOrder must be ASC or DESC, got %q", q.SortOrder))
	}
	out.SortOrder = order

	if !out.SortBy.IsSortable() {
		out.SortBy = entities.SortByName
	}

	if out.Page < 1 {
		out.Page = 1
	}

	switch {
	case out.Limit == 0:
		out.Limit = n.defaultLimit
	case out.Limit < 1:
		out.Limit = 1
	case out.Limit > n.maxLimit:
		out.Limit = n.maxLimit
	}

	if !out.OffsetInRange() {
		return entities.FacilityQuery{}, apperrors.NewValidationError(
			fmt.Sprintf("page %d is out of range for limit %d", out.Page, out.Limit))
	}

	return out, nil
}

// normalizeAmenities trims, lower-cases, de-duplicates and sorts labels.
// Matching is case-insensitive, so "Pool" and "pool" are the same amenity.
func normalizeAmenities(amenities []string) []string {
	if len(amenities) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(amenities))
	out := make([]string, 0, len(amenities))
	for _, a := range amenities {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == "" {
			continue
		}
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}

	if len(out) == 0 {
		return nil
	}
	sort.Strings(out)
	return out
}

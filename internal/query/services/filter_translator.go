package services

import (
	"regexp"
	"strings"

	"github.com/zatekoja/facilityfinder/backend/internal/domain/entities"
	"github.com/zatekoja/facilityfinder/backend/internal/domain/repositories"
)

// TranslateFilter converts a normalized query into the store filter.
// The name is escaped so that caller input only ever matches literally.
func TranslateFilter(q entities.FacilityQuery) repositories.FacilityFilter {
	var filter repositories.FacilityFilter

	if name := strings.TrimSpace(q.Name); name != "" {
		filter.NamePattern = regexp.QuoteMeta(name)
	}

	if amenities := normalizeAmenities(q.Amenities); len(amenities) > 0 {
		filter.Amenities = amenities
		filter.AmenityMode = q.AmenityMatchMode
		if !filter.AmenityMode.Valid() {
			filter.AmenityMode = entities.AmenityMatchAll
		}
	}

	return filter
}

// TranslateSort returns the sort keys for q. The id tiebreaker is always
// appended so that pages never overlap or skip records.
func TranslateSort(q entities.FacilityQuery) []repositories.SortSpec {
	field := q.SortBy
	if !field.IsSortable() {
		field = entities.SortByName
	}

	order := q.SortOrder
	if order != entities.SortDesc {
		order = entities.SortAsc
	}

	return []repositories.SortSpec{
		{Field: field, Order: order},
		{Field: entities.SortByID, Order: entities.SortAsc},
	}
}

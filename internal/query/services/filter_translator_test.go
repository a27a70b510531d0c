package services

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zatekoja/facilityfinder/backend/internal/domain/entities"
	"github.com/zatekoja/facilityfinder/backend/internal/domain/repositories"
)

func TestTranslateFilter_NameIsCaseInsensitiveSubstring(t *testing.T) {
	filter := TranslateFilter(entities.FacilityQuery{Name: "city"})

	re := regexp.MustCompile("(?i)" + filter.NamePattern)
	assert.True(t, re.MatchString("City Fitness Central"))
	assert.True(t, re.MatchString("Downtown CITY Gym"))
	assert.False(t, re.MatchString("Harbor Gym"))
}

func TestTranslateFilter_NameMetacharactersAreLiteral(t *testing.T) {
	tests := []struct {
		input    string
		matches  string
		rejected string
	}{
		{"a.b", "Club a.b", "Club axb"},
		{"(.*)", "Weird (.*) Name", "Anything"},
		{"$where", "The $where Gym", "where"},
		{"24/7+", "Open 24/7+", "Open 24/77"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			re := regexp.MustCompile("(?i)" + TranslateFilter(entities.FacilityQuery{Name: tt.input}).NamePattern)
			assert.True(t, re.MatchString(tt.matches))
			assert.False(t, re.MatchString(tt.rejected))
		})
	}
}

func TestTranslateFilter_Amenities(t *testing.T) {
	filter := TranslateFilter(entities.FacilityQuery{
		Amenities:        []string{"Sauna", "pool", "POOL"},
		AmenityMatchMode: entities.AmenityMatchAny,
	})

	assert.Equal(t, []string{"pool", "sauna"}, filter.Amenities)
	assert.Equal(t, entities.AmenityMatchAny, filter.AmenityMode)
}

func TestTranslateFilter_Empty(t *testing.T) {
	filter := TranslateFilter(entities.FacilityQuery{AmenityMatchMode: entities.AmenityMatchExact})

	assert.True(t, filter.IsEmpty())
	assert.Empty(t, filter.AmenityMode, "match mode without amenities is ignored")
}

func TestTranslateSort_AppendsIDTiebreaker(t *testing.T) {
	tests := []struct {
		name string
		in   entities.FacilityQuery
		want repositories.SortSpec
	}{
		{"address desc", entities.FacilityQuery{SortBy: entities.SortByAddress, SortOrder: entities.SortDesc},
			repositories.SortSpec{Field: entities.SortByAddress, Order: entities.SortDesc}},
		{"created at", entities.FacilityQuery{SortBy: entities.SortByCreatedAt, SortOrder: entities.SortAsc},
			repositories.SortSpec{Field: entities.SortByCreatedAt, Order: entities.SortAsc}},
		{"unknown field", entities.FacilityQuery{SortBy: "__proto__"},
			repositories.SortSpec{Field: entities.SortByName, Order: entities.SortAsc}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TranslateSort(tt.in)
			assert.Equal(t, []repositories.SortSpec{
				tt.want,
				{Field: entities.SortByID, Order: entities.SortAsc},
			}, got)
		})
	}
}

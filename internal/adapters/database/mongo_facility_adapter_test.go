package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/facilityfinder/backend/internal/domain/entities"
	"github.com/zatekoja/facilityfinder/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/facilityfinder/backend/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestBuildMongoFilter(t *testing.T) {
	tests := []struct {
		name   string
		filter repositories.FacilityFilter
		want   bson.D
	}{
		{
			name:   "empty",
			filter: repositories.FacilityFilter{},
			want:   bson.D{},
		},
		{
			name:   "name regex is case-insensitive",
			filter: repositories.FacilityFilter{NamePattern: `city\.gym`},
			want:   bson.D{{Key: "name", Value: primitive.Regex{Pattern: `city\.gym`, Options: "i"}}},
		},
		{
			name:   "all",
			filter: repositories.FacilityFilter{Amenities: []string{"Pool", "gym"}, AmenityMode: entities.AmenityMatchAll},
			want:   bson.D{{Key: "amenities_ci", Value: bson.D{{Key: "$all", Value: bson.A{"pool", "gym"}}}}},
		},
		{
			name:   "any",
			filter: repositories.FacilityFilter{Amenities: []string{"pool"}, AmenityMode: entities.AmenityMatchAny},
			want:   bson.D{{Key: "amenities_ci", Value: bson.D{{Key: "$in", Value: bson.A{"pool"}}}}},
		},
		{
			name:   "exact",
			filter: repositories.FacilityFilter{Amenities: []string{"pool", "gym"}, AmenityMode: entities.AmenityMatchExact},
			want: bson.D{{Key: "amenities_ci", Value: bson.D{
				{Key: "$all", Value: bson.A{"pool", "gym"}},
				{Key: "$size", Value: 2},
			}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildMongoFilter(tt.filter))
		})
	}
}

func TestBuildMongoFilter_OperatorLookingInputStaysAValue(t *testing.T) {
	filter := BuildMongoFilter(repositories.FacilityFilter{NamePattern: `\{"\$gt": ""\}`})

	require.Len(t, filter, 1)
	_, isRegex := filter[0].Value.(primitive.Regex)
	assert.True(t, isRegex)
}

func TestBuildMongoSort(t *testing.T) {
	got := buildMongoSort([]repositories.SortSpec{
		{Field: entities.SortByCreatedAt, Order: entities.SortDesc},
		{Field: entities.SortByID, Order: entities.SortAsc},
	})

	assert.Equal(t, bson.D{{Key: "createdAt", Value: -1}, {Key: "facilityId", Value: 1}}, got)
}

func TestBuildFindOptions(t *testing.T) {
	got := buildFindOptions(repositories.FindOptions{
		Sort:  []repositories.SortSpec{{Field: entities.SortByName, Order: entities.SortAsc}},
		Skip:  40,
		Limit: 20,
	})

	require.NotNil(t, got.Collation)
	assert.Equal(t, "en", got.Collation.Locale)
	assert.Equal(t, 2, got.Collation.Strength, "secondary strength ignores case")
	assert.Equal(t, int64(40), *got.Skip)
	assert.Equal(t, int64(20), *got.Limit)
	assert.Equal(t, bson.D{{Key: "name", Value: 1}}, got.Sort)

	got = buildFindOptions(repositories.FindOptions{Skip: -20})
	assert.Nil(t, got.Skip)
	assert.Nil(t, got.Limit)
}

func TestFacilityDocument_RoundTrip(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	doc := newFacilityDocument(entities.Facility{
		ID:        "f-1",
		Name:      "City Fitness Central",
		Address:   "1 Main St",
		Location:  entities.Location{Latitude: 40.71, Longitude: -74.0},
		Amenities: []string{"Pool", "Gym"},
	}, now)

	assert.Equal(t, []string{"pool", "gym"}, doc.AmenitiesCI)
	assert.Equal(t, facilitySchemaVersion, doc.SchemaVersion)
	assert.Equal(t, now, doc.CreatedAt)
	assert.Equal(t, []string{"Pool", "Gym"}, doc.toEntity().Amenities)
	assert.Equal(t, []string{}, facilityDocument{}.toEntity().Amenities)
}

func facilityDoc(id, name string, amenities ...interface{}) bson.D {
	return bson.D{
		{Key: "facilityId", Value: id},
		{Key: "name", Value: name},
		{Key: "address", Value: "1 Main St"},
		{Key: "location", Value: bson.D{{Key: "latitude", Value: 40.71}, {Key: "longitude", Value: -74.0}}},
		{Key: "amenities", Value: bson.A(amenities)},
	}
}

func TestMongoFacilityAdapter(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("find decodes public fields", func(mt *mtest.T) {
		adapter := NewMongoFacilityAdapter(mt.Coll)
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			facilityDoc("f-1", "City Fitness Central", "Pool", "Gym"),
			facilityDoc("f-2", "Harbor Gym"),
		))

		got, err := adapter.Find(context.Background(), repositories.FacilityFilter{}, repositories.FindOptions{Limit: 20})

		require.NoError(mt, err)
		require.Len(mt, got, 2)
		assert.Equal(mt, "f-1", got[0].ID)
		assert.Equal(mt, []string{"Pool", "Gym"}, got[0].Amenities)
		assert.Equal(mt, 40.71, got[0].Location.Latitude)
		assert.Equal(mt, []string{}, got[1].Amenities)
	})

	mt.Run("count", func(mt *mtest.T) {
		adapter := NewMongoFacilityAdapter(mt.Coll)
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "n", Value: int32(45)}}))

		total, err := adapter.Count(context.Background(), repositories.FacilityFilter{NamePattern: "gym"})

		require.NoError(mt, err)
		assert.Equal(mt, int64(45), total)
	})

	mt.Run("find by id absent", func(mt *mtest.T) {
		adapter := NewMongoFacilityAdapter(mt.Coll)
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		got, err := adapter.FindByID(context.Background(), "nope")

		require.NoError(mt, err)
		assert.Nil(mt, got)
	})

	mt.Run("find by id present", func(mt *mtest.T) {
		adapter := NewMongoFacilityAdapter(mt.Coll)
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, facilityDoc("f-1", "City Fitness Central", "Pool")))

		got, err := adapter.FindByID(context.Background(), "f-1")

		require.NoError(mt, err)
		assert.Equal(mt, "City Fitness Central", got.Name)
	})

	mt.Run("server error is a store outage", func(mt *mtest.T) {
		adapter := NewMongoFacilityAdapter(mt.Coll)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    13,
			Name:    "Unauthorized",
			Message: "command find requires authentication",
		}))

		_, err := adapter.Find(context.Background(), repositories.FacilityFilter{}, repositories.FindOptions{})

		assert.Equal(mt, apperrors.ErrorTypeStoreUnavailable, apperrors.TypeOf(err))
	})

	mt.Run("insert batch", func(mt *mtest.T) {
		adapter := NewMongoFacilityAdapter(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		err := adapter.InsertBatch(context.Background(), []entities.Facility{
			{ID: "f-1", Name: "A", Amenities: []string{"Pool"}},
			{ID: "f-2", Name: "B"},
		})

		require.NoError(mt, err)
	})
}

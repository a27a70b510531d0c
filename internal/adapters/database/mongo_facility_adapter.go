package database

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/zatekoja/facilityfinder/backend/internal/domain/entities"
	"github.com/zatekoja/facilityfinder/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/facilityfinder/backend/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// facilitySchemaVersion is bumped whenever the stored document shape changes
const facilitySchemaVersion = 1

// facilityDocument is the stored shape of a facility. Amenities are kept
// twice: as supplied for display, and lower-cased for matching.
type facilityDocument struct {
	ObjectID      primitive.ObjectID `bson:"_id,omitempty"`
	FacilityID    string             `bson:"facilityId"`
	Name          string             `bson:"name"`
	Address       string             `bson:"address"`
	Location      locationDocument   `bson:"location"`
	Amenities     []string           `bson:"amenities"`
	AmenitiesCI   []string           `bson:"amenities_ci"`
	SchemaVersion int                `bson:"schemaVersion"`
	CreatedAt     time.Time          `bson:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt"`
}

type locationDocument struct {
	Latitude  float64 `bson:"latitude"`
	Longitude float64 `bson:"longitude"`
}

// publicProjection keeps internal identifiers, lookup fields and audit
// timestamps out of query results.
var publicProjection = bson.D{
	{Key: "_id", Value: 0},
	{Key: "facilityId", Value: 1},
	{Key: "name", Value: 1},
	{Key: "address", Value: 1},
	{Key: "location", Value: 1},
	{Key: "amenities", Value: 1},
}

// caseInsensitive orders and compares strings ignoring case, so name and
// address sorts agree with the other stores. Queries and the indexes that
// serve them must carry the same collation.
var caseInsensitive = &options.Collation{Locale: "en", Strength: 2}

var mongoSortFields = map[entities.SortField]string{
	entities.SortByName:      "name",
	entities.SortByAddress:   "address",
	entities.SortByCreatedAt: "createdAt",
	entities.SortByID:        "facilityId",
}

// MongoFacilityAdapter implements FacilityStore and CatalogWriter on MongoDB
type MongoFacilityAdapter struct {
	coll *mongo.Collection
}

// NewMongoFacilityAdapter creates a new facility adapter over coll
func NewMongoFacilityAdapter(coll *mongo.Collection) *MongoFacilityAdapter {
	return &MongoFacilityAdapter{coll: coll}
}

// Count returns the number of facilities matching filter
func (a *MongoFacilityAdapter) Count(ctx context.Context, filter repositories.FacilityFilter) (int64, error) {
	total, err := a.coll.CountDocuments(ctx, BuildMongoFilter(filter), options.Count().SetCollation(caseInsensitive))
	if err != nil {
		return 0, apperrors.NewStoreUnavailableError("failed to count facilities", err)
	}
	return total, nil
}

func buildFindOptions(opts repositories.FindOptions) *options.FindOptions {
	findOpts := options.Find().
		SetProjection(publicProjection).
		SetSort(buildMongoSort(opts.Sort)).
		SetCollation(caseInsensitive)
	if opts.Skip > 0 {
		findOpts.SetSkip(opts.Skip)
	}
	if opts.Limit > 0 {
		findOpts.SetLimit(opts.Limit)
	}
	return findOpts
}

// Find returns one window of facilities matching filter
func (a *MongoFacilityAdapter) Find(ctx context.Context, filter repositories.FacilityFilter, opts repositories.FindOptions) ([]entities.Facility, error) {
	cursor, err := a.coll.Find(ctx, BuildMongoFilter(filter), buildFindOptions(opts))
	if err != nil {
		return nil, apperrors.NewStoreUnavailableError("failed to find facilities", err)
	}
	defer cursor.Close(ctx)

	facilities := []entities.Facility{}
	for cursor.Next(ctx) {
		var doc facilityDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, apperrors.NewStoreUnavailableError("failed to decode facility", err)
		}
		facilities = append(facilities, doc.toEntity())
	}
	if err := cursor.Err(); err != nil {
		return nil, apperrors.NewStoreUnavailableError("error iterating facilities", err)
	}

	return facilities, nil
}

// FindByID returns the facility with the given id, or nil when absent
func (a *MongoFacilityAdapter) FindByID(ctx context.Context, id string) (*entities.Facility, error) {
	var doc facilityDocument
	err := a.coll.FindOne(ctx,
		bson.D{{Key: "facilityId", Value: id}},
		options.FindOne().SetProjection(publicProjection),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewStoreUnavailableError("failed to get facility", err)
	}

	facility := doc.toEntity()
	return &facility, nil
}

// Ping verifies the deployment is reachable
func (a *MongoFacilityAdapter) Ping(ctx context.Context) error {
	return a.coll.Database().Client().Ping(ctx, nil)
}

// DeleteAll removes every facility document
func (a *MongoFacilityAdapter) DeleteAll(ctx context.Context) (int64, error) {
	result, err := a.coll.DeleteMany(ctx, bson.D{})
	if err != nil {
		return 0, apperrors.NewStoreUnavailableError("failed to delete facilities", err)
	}
	return result.DeletedCount, nil
}

// InsertBatch inserts facilities with one ordered InsertMany
func (a *MongoFacilityAdapter) InsertBatch(ctx context.Context, facilities []entities.Facility) error {
	if len(facilities) == 0 {
		return nil
	}

	now := time.Now().UTC()
	docs := make([]interface{}, 0, len(facilities))
	for _, f := range facilities {
		docs = append(docs, newFacilityDocument(f, now))
	}

	if _, err := a.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true)); err != nil {
		return apperrors.NewStoreUnavailableError("failed to insert facilities", err)
	}
	return nil
}

// EnsureIndexes creates the indexes used by lookups, search and sorting
func (a *MongoFacilityAdapter) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "facilityId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("facilityId_unique"),
		},
		{
			Keys:    bson.D{{Key: "name", Value: 1}, {Key: "facilityId", Value: 1}},
			Options: options.Index().SetName("name_ci").SetCollation(caseInsensitive),
		},
		{
			Keys:    bson.D{{Key: "address", Value: 1}, {Key: "facilityId", Value: 1}},
			Options: options.Index().SetName("address_ci").SetCollation(caseInsensitive),
		},
		{
			Keys:    bson.D{{Key: "createdAt", Value: 1}, {Key: "facilityId", Value: 1}},
			Options: options.Index().SetName("createdAt_ci").SetCollation(caseInsensitive),
		},
		{
			Keys:    bson.D{{Key: "amenities_ci", Value: 1}},
			Options: options.Index().SetName("amenities_ci").SetCollation(caseInsensitive),
		},
	}

	if _, err := a.coll.Indexes().CreateMany(ctx, models); err != nil {
		return apperrors.NewStoreUnavailableError("failed to create facility indexes", err)
	}
	return nil
}

// BuildMongoFilter renders the store filter as a MongoDB query document.
// The name pattern is passed as a regex value, never as an operator, so
// caller input cannot inject query operators.
func BuildMongoFilter(filter repositories.FacilityFilter) bson.D {
	query := bson.D{}

	if filter.NamePattern != "" {
		query = append(query, bson.E{
			Key:   "name",
			Value: primitive.Regex{Pattern: filter.NamePattern, Options: "i"},
		})
	}

	if len(filter.Amenities) == 0 {
		return query
	}

	amenities := make(bson.A, 0, len(filter.Amenities))
	for _, a := range filter.Amenities {
		amenities = append(amenities, strings.ToLower(a))
	}

	var cond bson.D
	switch filter.AmenityMode {
	case entities.AmenityMatchAny:
		cond = bson.D{{Key: "$in", Value: amenities}}
	case entities.AmenityMatchExact:
		cond = bson.D{{Key: "$all", Value: amenities}, {Key: "$size", Value: len(amenities)}}
	default:
		cond = bson.D{{Key: "$all", Value: amenities}}
	}

	return append(query, bson.E{Key: "amenities_ci", Value: cond})
}

func buildMongoSort(specs []repositories.SortSpec) bson.D {
	sort := bson.D{}
	for _, s := range specs {
		field, ok := mongoSortFields[s.Field]
		if !ok {
			continue
		}
		direction := 1
		if s.Order == entities.SortDesc {
			direction = -1
		}
		sort = append(sort, bson.E{Key: field, Value: direction})
	}
	return sort
}

func newFacilityDocument(f entities.Facility, now time.Time) facilityDocument {
	amenities := f.Amenities
	if amenities == nil {
		amenities = []string{}
	}
	normalized := make([]string, len(amenities))
	for i, a := range amenities {
		normalized[i] = strings.ToLower(a)
	}

	return facilityDocument{
		FacilityID: f.ID,
		Name:       f.Name,
		Address:    f.Address,
		Location: locationDocument{
			Latitude:  f.Location.Latitude,
			Longitude: f.Location.Longitude,
		},
		Amenities:     amenities,
		AmenitiesCI:   normalized,
		SchemaVersion: facilitySchemaVersion,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (d facilityDocument) toEntity() entities.Facility {
	amenities := d.Amenities
	if amenities == nil {
		amenities = []string{}
	}
	return entities.Facility{
		ID:      d.FacilityID,
		Name:    d.Name,
		Address: d.Address,
		Location: entities.Location{
			Latitude:  d.Location.Latitude,
			Longitude: d.Location.Longitude,
		},
		Amenities: amenities,
	}
}

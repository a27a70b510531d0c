package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/lib/pq"
	"github.com/zatekoja/facilityfinder/backend/internal/domain/entities"
	"github.com/zatekoja/facilityfinder/backend/internal/domain/repositories"
	"github.com/zatekoja/facilityfinder/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/facilityfinder/backend/pkg/errors"
)

const facilitiesTable = "facilities"

// facilityColumns are the public columns; audit timestamps are never selected.
var facilityColumns = []interface{}{"id", "name", "address", "latitude", "longitude", "amenities"}

var postgresSortColumns = map[entities.SortField]string{
	entities.SortByName:      "name",
	entities.SortByAddress:   "address",
	entities.SortByCreatedAt: "created_at",
	entities.SortByID:        "id",
}

var facilitiesSchema = []string{
	`CREATE TABLE IF NOT EXISTS facilities (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		address    TEXT NOT NULL,
		latitude   DOUBLE PRECISION NOT NULL CHECK (latitude BETWEEN -90 AND 90),
		longitude  DOUBLE PRECISION NOT NULL CHECK (longitude BETWEEN -180 AND 180),
		amenities  TEXT[] NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_facilities_name_lower ON facilities (lower(name), id)`,
	`CREATE INDEX IF NOT EXISTS idx_facilities_address_lower ON facilities (lower(address), id)`,
	`CREATE INDEX IF NOT EXISTS idx_facilities_created_at ON facilities (created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_facilities_amenities ON facilities USING GIN (amenities)`,
}

// FacilityAdapter implements FacilityStore and CatalogWriter on PostgreSQL
type FacilityAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewFacilityAdapter creates a new facility adapter
func NewFacilityAdapter(client *postgres.Client) *FacilityAdapter {
	return &FacilityAdapter{
		client: client,
		db:     client.Dialect(),
	}
}

// Count returns the number of facilities matching filter
func (a *FacilityAdapter) Count(ctx context.Context, filter repositories.FacilityFilter) (int64, error) {
	query, args, err := a.db.From(facilitiesTable).
		Prepared(true).
		Select(goqu.COUNT(goqu.Star())).
		Where(postgresConditions(filter)...).
		ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build count query", err)
	}

	var total int64
	if err := a.client.DB().QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, apperrors.NewStoreUnavailableError("failed to count facilities", err)
	}
	return total, nil
}

// Find returns one window of facilities matching filter
func (a *FacilityAdapter) Find(ctx context.Context, filter repositories.FacilityFilter, opts repositories.FindOptions) ([]entities.Facility, error) {
	ds := a.db.From(facilitiesTable).
		Prepared(true).
		Select(facilityColumns...).
		Where(postgresConditions(filter)...)

	for _, s := range opts.Sort {
		column, ok := postgresSortColumns[s.Field]
		if !ok {
			continue
		}
		var key exp.Orderable = goqu.I(column)
		if s.Field == entities.SortByName || s.Field == entities.SortByAddress {
			// Text sorts ignore case regardless of the database collation
			key = goqu.Func("LOWER", goqu.I(column))
		}
		if s.Order == entities.SortDesc {
			ds = ds.OrderAppend(key.Desc())
		} else {
			ds = ds.OrderAppend(key.Asc())
		}
	}

	if opts.Limit > 0 {
		ds = ds.Limit(uint(opts.Limit))
	}
	if opts.Skip > 0 {
		ds = ds.Offset(uint(opts.Skip))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build find query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewStoreUnavailableError("failed to find facilities", err)
	}
	defer rows.Close()

	facilities := []entities.Facility{}
	for rows.Next() {
		facility, err := scanFacility(rows)
		if err != nil {
			return nil, apperrors.NewStoreUnavailableError("failed to scan facility", err)
		}
		facilities = append(facilities, *facility)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStoreUnavailableError("error iterating facilities", err)
	}

	return facilities, nil
}

// FindByID returns the facility with the given id, or nil when absent
func (a *FacilityAdapter) FindByID(ctx context.Context, id string) (*entities.Facility, error) {
	query, args, err := a.db.From(facilitiesTable).
		Prepared(true).
		Select(facilityColumns...).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	facility, err := scanFacility(a.client.DB().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewStoreUnavailableError("failed to get facility", err)
	}
	return facility, nil
}

// Ping verifies the database is reachable
func (a *FacilityAdapter) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

// DeleteAll removes every facility
func (a *FacilityAdapter) DeleteAll(ctx context.Context) (int64, error) {
	query, args, err := a.db.Delete(facilitiesTable).Prepared(true).ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build delete query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return 0, apperrors.NewStoreUnavailableError("failed to delete facilities", err)
	}
	return result.RowsAffected()
}

// InsertBatch inserts facilities with a single multi-row INSERT
func (a *FacilityAdapter) InsertBatch(ctx context.Context, facilities []entities.Facility) error {
	if len(facilities) == 0 {
		return nil
	}

	now := time.Now().UTC()
	rows := make([]interface{}, 0, len(facilities))
	for _, f := range facilities {
		rows = append(rows, goqu.Record{
			"id":         f.ID,
			"name":       f.Name,
			"address":    f.Address,
			"latitude":   f.Location.Latitude,
			"longitude":  f.Location.Longitude,
			"amenities":  pq.Array(f.Amenities),
			"created_at": now,
			"updated_at": now,
		})
	}

	query, args, err := a.db.Insert(facilitiesTable).Prepared(true).Rows(rows...).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewStoreUnavailableError("failed to insert facilities", err)
	}
	return nil
}

// EnsureIndexes creates the facilities table and its indexes
func (a *FacilityAdapter) EnsureIndexes(ctx context.Context) error {
	for _, stmt := range facilitiesSchema {
		if _, err := a.client.DB().ExecContext(ctx, stmt); err != nil {
			return apperrors.NewStoreUnavailableError("failed to apply facilities schema", err)
		}
	}
	return nil
}

// postgresConditions renders the store filter as WHERE expressions.
// Amenity comparisons lower-case the stored labels so matching ignores case.
func postgresConditions(filter repositories.FacilityFilter) []exp.Expression {
	var conds []exp.Expression

	if filter.NamePattern != "" {
		conds = append(conds, goqu.L(`"name" ~* ?`, filter.NamePattern))
	}

	if len(filter.Amenities) == 0 {
		return conds
	}

	contains := make([]exp.Expression, 0, len(filter.Amenities))
	for _, amenity := range filter.Amenities {
		contains = append(contains, goqu.L(
			`EXISTS (SELECT 1 FROM unnest("amenities") AS amenity WHERE lower(amenity) = ?)`, amenity))
	}

	switch filter.AmenityMode {
	case entities.AmenityMatchAny:
		conds = append(conds, goqu.Or(contains...))
	case entities.AmenityMatchExact:
		conds = append(conds, goqu.And(contains...), goqu.L(`cardinality("amenities") = ?`, len(filter.Amenities)))
	default:
		conds = append(conds, goqu.And(contains...))
	}

	return conds
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFacility(row rowScanner) (*entities.Facility, error) {
	facility := &entities.Facility{}
	var amenities pq.StringArray
	err := row.Scan(
		&facility.ID,
		&facility.Name,
		&facility.Address,
		&facility.Location.Latitude,
		&facility.Location.Longitude,
		&amenities,
	)
	if err != nil {
		return nil, err
	}

	facility.Amenities = []string(amenities)
	if facility.Amenities == nil {
		facility.Amenities = []string{}
	}
	return facility, nil
}

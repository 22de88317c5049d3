package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/reliefhub/stock-service/internal/location"
	"github.com/reliefhub/stock-service/internal/location/dto"
	"github.com/reliefhub/stock-service/internal/model"
	"github.com/shopspring/decimal"
)

const locationsSchema = `
CREATE TABLE IF NOT EXISTS locations (
    id              TEXT PRIMARY KEY,
    name            TEXT NOT NULL,
    street          TEXT NOT NULL,
    suite           TEXT NOT NULL DEFAULT '',
    city            TEXT NOT NULL,
    state           TEXT NOT NULL DEFAULT '',
    zip             TEXT NOT NULL DEFAULT '',
    country         TEXT NOT NULL,
    longitude       DOUBLE PRECISION NOT NULL CHECK (longitude BETWEEN -180 AND 180),
    latitude        DOUBLE PRECISION NOT NULL CHECK (latitude BETWEEN -90 AND 90),
    contact_name    TEXT,
    contact_phone   TEXT,
    contact_email   TEXT,
    capacity_amount NUMERIC,
    capacity_unit   TEXT,
    is_active       BOOLEAN NOT NULL DEFAULT TRUE,
    created_at      TIMESTAMPTZ NOT NULL,
    updated_at      TIMESTAMPTZ NOT NULL
)`

// Great-circle distance in meters from ($1 lng, $2 lat). The asin argument is
// clamped to 1 since rounding can overshoot it for antipodal points.
const distanceExpr = `(6371000 * 2 * asin(least(1.0, sqrt(
        power(sin(radians(latitude - $2) / 2), 2) +
        cos(radians($2)) * cos(radians(latitude)) * power(sin(radians(longitude - $1) / 2), 2)
    ))))`

type locationRow struct {
	ID             string              `db:"id"`
	Name           string              `db:"name"`
	Street         string              `db:"street"`
	Suite          string              `db:"suite"`
	City           string              `db:"city"`
	State          string              `db:"state"`
	Zip            string              `db:"zip"`
	Country        string              `db:"country"`
	Longitude      float64             `db:"longitude"`
	Latitude       float64             `db:"latitude"`
	ContactName    *string             `db:"contact_name"`
	ContactPhone   *string             `db:"contact_phone"`
	ContactEmail   *string             `db:"contact_email"`
	CapacityAmount decimal.NullDecimal `db:"capacity_amount"`
	CapacityUnit   *string             `db:"capacity_unit"`
	IsActive       bool                `db:"is_active"`
	CreatedAt      time.Time           `db:"created_at"`
	UpdatedAt      time.Time           `db:"updated_at"`
}

type nearbyRow struct {
	locationRow
	DistanceMeters float64 `db:"distance_meters"`
}

func toRow(l *model.Location) locationRow {
	row := locationRow{
		ID:        l.ID,
		Name:      l.Name,
		Street:    l.Address.Street,
		Suite:     l.Address.Suite,
		City:      l.Address.City,
		State:     l.Address.State,
		Zip:       l.Address.Zip,
		Country:   l.Address.Country,
		Longitude: l.Point.Lng(),
		Latitude:  l.Point.Lat(),
		IsActive:  l.IsActive,
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
	if l.Contact != nil {
		row.ContactName = &l.Contact.Name
		row.ContactPhone = &l.Contact.Phone
		row.ContactEmail = &l.Contact.Email
	}
	if l.Capacity != nil {
		row.CapacityAmount = decimal.NullDecimal{Decimal: l.Capacity.Amount, Valid: true}
		row.CapacityUnit = &l.Capacity.Unit
	}
	return row
}

func (row locationRow) toModel() model.Location {
	l := model.Location{
		BaseModel: model.BaseModel{ID: row.ID, CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt},
		Name:      row.Name,
		Address: model.Address{
			Street: row.Street, Suite: row.Suite, City: row.City,
			State: row.State, Zip: row.Zip, Country: row.Country,
		},
		Point:    model.NewGeoPoint(row.Longitude, row.Latitude),
		IsActive: row.IsActive,
	}
	if row.ContactName != nil {
		l.Contact = &model.Contact{Name: *row.ContactName, Phone: deref(row.ContactPhone), Email: deref(row.ContactEmail)}
	}
	if row.CapacityAmount.Valid {
		l.Capacity = &model.Capacity{Amount: row.CapacityAmount.Decimal, Unit: deref(row.CapacityUnit)}
	}
	return l
}

type PGRepository struct {
	DB *sqlx.DB
}

var _ location.Repository = (*PGRepository)(nil)

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, locationsSchema)
	return err
}

func (r *PGRepository) Create(ctx context.Context, l *model.Location) error {
	query := `
        INSERT INTO locations (
            id, name, street, suite, city, state, zip, country, longitude, latitude,
            contact_name, contact_phone, contact_email, capacity_amount, capacity_unit,
            is_active, created_at, updated_at
        )
        VALUES (
            :id, :name, :street, :suite, :city, :state, :zip, :country, :longitude, :latitude,
            :contact_name, :contact_phone, :contact_email, :capacity_amount, :capacity_unit,
            :is_active, :created_at, :updated_at
        )
    `
	_, err := r.DB.NamedExecContext(ctx, query, toRow(l))
	return err
}

func (r *PGRepository) FindByID(ctx context.Context, id string) (*model.Location, error) {
	var row locationRow
	err := r.DB.GetContext(ctx, &row, `SELECT * FROM locations WHERE id = $1 LIMIT 1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	l := row.toModel()
	return &l, nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.LocationFilters) ([]model.Location, int, error) {
	var rows []locationRow
	var count int

	whereClause, args := buildLocationWhere(f)

	countQuery, countArgs, err := r.DB.BindNamed("SELECT count(*) FROM locations"+whereClause, args)
	if err != nil {
		return nil, 0, err
	}
	if err := r.DB.GetContext(ctx, &count, countQuery, countArgs...); err != nil {
		return nil, 0, err
	}

	query := "SELECT * FROM locations" + whereClause + " ORDER BY name"
	if f.PageSize > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, offset(f.Page, f.PageSize))
	}

	nstmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	defer nstmt.Close()

	if err := nstmt.SelectContext(ctx, &rows, args); err != nil {
		return nil, 0, err
	}

	locs := make([]model.Location, 0, len(rows))
	for _, row := range rows {
		locs = append(locs, row.toModel())
	}
	return locs, count, nil
}

func (r *PGRepository) Update(ctx context.Context, l *model.Location) error {
	query := `
        UPDATE locations
        SET name = :name, street = :street, suite = :suite, city = :city, state = :state,
            zip = :zip, country = :country, longitude = :longitude, latitude = :latitude,
            contact_name = :contact_name, contact_phone = :contact_phone, contact_email = :contact_email,
            capacity_amount = :capacity_amount, capacity_unit = :capacity_unit,
            is_active = :is_active, updated_at = :updated_at
        WHERE id = :id
    `
	res, err := r.DB.NamedExecContext(ctx, query, toRow(l))
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("location %s: %w", l.ID, model.ErrNotFound)
	}
	return nil
}

func (r *PGRepository) Nearest(ctx context.Context, q *dto.NearestQuery) ([]dto.NearbyLocation, error) {
	query := `
        SELECT * FROM (
            SELECT *, ` + distanceExpr + ` AS distance_meters
            FROM locations
            WHERE is_active
        ) d
        WHERE ($3::float8 = 0 OR distance_meters <= $3::float8)
        ORDER BY distance_meters
        LIMIT $4
    `
	var rows []nearbyRow
	if err := r.DB.SelectContext(ctx, &rows, query, q.Longitude, q.Latitude, q.MaxDistanceMeters, q.Limit); err != nil {
		return nil, err
	}

	out := make([]dto.NearbyLocation, 0, len(rows))
	for _, row := range rows {
		out = append(out, dto.NearbyLocation{Location: row.toModel(), DistanceMeters: row.DistanceMeters})
	}
	return out, nil
}

func buildLocationWhere(f *dto.LocationFilters) (string, map[string]interface{}) {
	conditions := []string{}
	args := map[string]interface{}{}

	if f.IsActive != nil {
		conditions = append(conditions, "is_active = :is_active")
		args["is_active"] = *f.IsActive
	}
	if f.City != "" {
		conditions = append(conditions, "city = :city")
		args["city"] = f.City
	}
	if f.Country != "" {
		conditions = append(conditions, "country = :country")
		args["country"] = f.Country
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

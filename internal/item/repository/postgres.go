package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/reliefhub/stock-service/internal/item"
	"github.com/reliefhub/stock-service/internal/item/dto"
	"github.com/reliefhub/stock-service/internal/model"
	"github.com/reliefhub/stock-service/pkg/database/postgres"
)

const itemsSchema = `
CREATE TABLE IF NOT EXISTS items (
    id              TEXT PRIMARY KEY,
    name            TEXT NOT NULL,
    description     TEXT,
    category        TEXT NOT NULL,
    unit_of_measure TEXT NOT NULL,
    sku             TEXT UNIQUE,
    barcode         TEXT UNIQUE,
    image_url       TEXT,
    is_active       BOOLEAN NOT NULL DEFAULT TRUE,
    created_at      TIMESTAMPTZ NOT NULL,
    updated_at      TIMESTAMPTZ NOT NULL
)`

type PGRepository struct {
	DB *sqlx.DB
}

var _ item.Repository = (*PGRepository)(nil)

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, itemsSchema)
	return err
}

func (r *PGRepository) Create(ctx context.Context, it *model.Item) error {
	query := `
        INSERT INTO items (
            id, name, description, category, unit_of_measure,
            sku, barcode, image_url, is_active, created_at, updated_at
        )
        VALUES (
            :id, :name, :description, :category, :unit_of_measure,
            :sku, :barcode, :image_url, :is_active, :created_at, :updated_at
        )
    `
	_, err := r.DB.NamedExecContext(ctx, query, it)
	return translate(err)
}

func (r *PGRepository) FindByID(ctx context.Context, id string) (*model.Item, error) {
	var it model.Item
	err := r.DB.GetContext(ctx, &it, `SELECT * FROM items WHERE id = $1 LIMIT 1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &it, nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.ItemFilters) ([]model.Item, int, error) {
	var items []model.Item
	var count int

	whereClause, args := buildItemWhere(f)

	countQuery, countArgs, err := r.DB.BindNamed("SELECT count(*) FROM items"+whereClause, args)
	if err != nil {
		return nil, 0, err
	}
	if err := r.DB.GetContext(ctx, &count, countQuery, countArgs...); err != nil {
		return nil, 0, err
	}

	query := "SELECT * FROM items" + whereClause + " ORDER BY created_at DESC"
	if f.PageSize > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, offset(f.Page, f.PageSize))
	}

	nstmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	defer nstmt.Close()

	if err := nstmt.SelectContext(ctx, &items, args); err != nil {
		return nil, 0, err
	}
	return items, count, nil
}

func (r *PGRepository) Update(ctx context.Context, it *model.Item) error {
	query := `
        UPDATE items
        SET name = :name,
            description = :description,
            category = :category,
            unit_of_measure = :unit_of_measure,
            sku = :sku,
            barcode = :barcode,
            image_url = :image_url,
            is_active = :is_active,
            updated_at = :updated_at
        WHERE id = :id
    `
	res, err := r.DB.NamedExecContext(ctx, query, it)
	if err != nil {
		return translate(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("item %s: %w", it.ID, model.ErrNotFound)
	}
	return nil
}

func (r *PGRepository) IsSKUUnique(ctx context.Context, sku, excludeID string) (bool, error) {
	return r.isUnique(ctx, "sku", sku, excludeID)
}

func (r *PGRepository) IsBarcodeUnique(ctx context.Context, barcode, excludeID string) (bool, error) {
	return r.isUnique(ctx, "barcode", barcode, excludeID)
}

// column is one of the fixed identifiers above, never caller input.
func (r *PGRepository) isUnique(ctx context.Context, column, value, excludeID string) (bool, error) {
	var count int
	query := fmt.Sprintf(`SELECT count(*) FROM items WHERE %s = $1 AND id <> $2`, column)
	if err := r.DB.GetContext(ctx, &count, query, value, excludeID); err != nil {
		return false, err
	}
	return count == 0, nil
}

func buildItemWhere(f *dto.ItemFilters) (string, map[string]interface{}) {
	conditions := []string{}
	args := map[string]interface{}{}

	if f.Category != "" {
		conditions = append(conditions, "category = :category")
		args["category"] = f.Category
	}
	if f.IsActive != nil {
		conditions = append(conditions, "is_active = :is_active")
		args["is_active"] = *f.IsActive
	}
	if f.SearchQuery != "" {
		conditions = append(conditions, "(name ILIKE :search OR sku ILIKE :search OR barcode ILIKE :search)")
		args["search"] = "%" + f.SearchQuery + "%"
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func offset(page, pageSize int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * pageSize
}

func translate(err error) error {
	if err != nil && postgres.IsUniqueViolation(err) {
		return fmt.Errorf("%w: %v", model.ErrDuplicateKey, err)
	}
	return err
}

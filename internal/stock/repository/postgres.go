package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/reliefhub/stock-service/internal/model"
	"github.com/reliefhub/stock-service/internal/stock"
	"github.com/reliefhub/stock-service/internal/stock/dto"
	"github.com/reliefhub/stock-service/pkg/database/postgres"
)

var stockSchema = []string{`
CREATE TABLE IF NOT EXISTS stock_entries (
    id                 TEXT PRIMARY KEY,
    item_sku           TEXT NOT NULL,
    warehouse_id       TEXT NOT NULL,
    item               JSONB NOT NULL,
    location           JSONB NOT NULL,
    current_quantity   INTEGER NOT NULL CHECK (current_quantity >= 0),
    unit               TEXT NOT NULL DEFAULT '',
    threshold          INTEGER NOT NULL CHECK (threshold >= 0),
    reserved_quantity  INTEGER NOT NULL CHECK (reserved_quantity >= 0),
    available_quantity INTEGER NOT NULL CHECK (available_quantity >= 0),
    status             TEXT NOT NULL,
    batches            JSONB NOT NULL DEFAULT '[]',
    tags               JSONB NOT NULL DEFAULT '[]',
    created_at         TIMESTAMPTZ NOT NULL,
    last_updated       TIMESTAMPTZ NOT NULL,
    CONSTRAINT uniq_sku_warehouse UNIQUE (item_sku, warehouse_id)
)`, `
CREATE TABLE IF NOT EXISTS stock_actions (
    seq          BIGSERIAL PRIMARY KEY,
    entry_id     TEXT NOT NULL REFERENCES stock_entries (id),
    id           TEXT NOT NULL,
    type         TEXT NOT NULL,
    triggered_by TEXT NOT NULL,
    occurred_at  TIMESTAMPTZ NOT NULL,
    status       TEXT NOT NULL,
    notes        TEXT NOT NULL DEFAULT ''
)`, `
CREATE TABLE IF NOT EXISTS stock_audit_log (
    seq         BIGSERIAL PRIMARY KEY,
    entry_id    TEXT NOT NULL REFERENCES stock_entries (id),
    user_id     TEXT NOT NULL,
    change      TEXT NOT NULL,
    occurred_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_stock_actions_entry ON stock_actions (entry_id, seq)`,
	`CREATE INDEX IF NOT EXISTS idx_stock_audit_entry ON stock_audit_log (entry_id, seq)`,
	`CREATE INDEX IF NOT EXISTS idx_stock_entries_status ON stock_entries (status, last_updated DESC)`,
}

// jsonColumn stores T as a JSONB document.
type jsonColumn[T any] struct {
	V T
}

func (j jsonColumn[T]) Value() (driver.Value, error) {
	b, err := json.Marshal(j.V)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (j *jsonColumn[T]) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		var zero T
		j.V = zero
		return nil
	case []byte:
		return json.Unmarshal(v, &j.V)
	case string:
		return json.Unmarshal([]byte(v), &j.V)
	default:
		return fmt.Errorf("jsonColumn: cannot scan %T", src)
	}
}

type entryRow struct {
	ID                string                             `db:"id"`
	ItemSKU           string                             `db:"item_sku"`
	WarehouseID       string                             `db:"warehouse_id"`
	Item              jsonColumn[model.ItemSnapshot]     `db:"item"`
	Location          jsonColumn[model.LocationSnapshot] `db:"location"`
	CurrentQuantity   int                                `db:"current_quantity"`
	Unit              string                             `db:"unit"`
	Threshold         int                                `db:"threshold"`
	ReservedQuantity  int                                `db:"reserved_quantity"`
	AvailableQuantity int                                `db:"available_quantity"`
	Status            string                             `db:"status"`
	Batches           jsonColumn[[]model.Batch]          `db:"batches"`
	Tags              jsonColumn[[]string]               `db:"tags"`
	CreatedAt         time.Time                          `db:"created_at"`
	LastUpdated       time.Time                          `db:"last_updated"`
}

type actionRow struct {
	EntryID     string    `db:"entry_id"`
	ID          string    `db:"id"`
	Type        string    `db:"type"`
	TriggeredBy string    `db:"triggered_by"`
	OccurredAt  time.Time `db:"occurred_at"`
	Status      string    `db:"status"`
	Notes       string    `db:"notes"`
}

type auditRow struct {
	EntryID    string    `db:"entry_id"`
	UserID     string    `db:"user_id"`
	Change     string    `db:"change"`
	OccurredAt time.Time `db:"occurred_at"`
}

func toEntryRow(e *model.StockEntry) entryRow {
	return entryRow{
		ID:                e.ID,
		ItemSKU:           e.Item.SKU,
		WarehouseID:       e.Location.WarehouseID,
		Item:              jsonColumn[model.ItemSnapshot]{V: e.Item},
		Location:          jsonColumn[model.LocationSnapshot]{V: e.Location},
		CurrentQuantity:   e.Inventory.CurrentQuantity,
		Unit:              e.Inventory.Unit,
		Threshold:         e.Inventory.Threshold,
		ReservedQuantity:  e.Inventory.ReservedQuantity,
		AvailableQuantity: e.Inventory.AvailableQuantity,
		Status:            string(e.Status),
		Batches:           jsonColumn[[]model.Batch]{V: nonNil(e.Batches)},
		Tags:              jsonColumn[[]string]{V: nonNil(e.Tags)},
		CreatedAt:         e.CreatedAt,
		LastUpdated:       e.LastUpdated,
	}
}

func (row entryRow) toModel() model.StockEntry {
	return model.StockEntry{
		ID:       row.ID,
		Item:     row.Item.V,
		Location: row.Location.V,
		Inventory: model.Inventory{
			CurrentQuantity:   row.CurrentQuantity,
			Unit:              row.Unit,
			Threshold:         row.Threshold,
			ReservedQuantity:  row.ReservedQuantity,
			AvailableQuantity: row.AvailableQuantity,
		},
		Status:      model.StockStatus(row.Status),
		Batches:     nonNil(row.Batches.V),
		Actions:     []model.Action{},
		AuditLog:    []model.AuditEntry{},
		Tags:        nonNil(row.Tags.V),
		CreatedAt:   row.CreatedAt,
		LastUpdated: row.LastUpdated,
	}
}

func toActionRow(entryID string, a model.Action) actionRow {
	return actionRow{
		EntryID:     entryID,
		ID:          a.ID,
		Type:        string(a.Type),
		TriggeredBy: a.TriggeredBy,
		OccurredAt:  a.Timestamp,
		Status:      string(a.Status),
		Notes:       a.Notes,
	}
}

func toAuditRow(entryID string, a model.AuditEntry) auditRow {
	return auditRow{EntryID: entryID, UserID: a.UserID, Change: a.Change, OccurredAt: a.Timestamp}
}

const (
	insertActionQuery = `
        INSERT INTO stock_actions (entry_id, id, type, triggered_by, occurred_at, status, notes)
        VALUES (:entry_id, :id, :type, :triggered_by, :occurred_at, :status, :notes)
    `
	insertAuditQuery = `
        INSERT INTO stock_audit_log (entry_id, user_id, change, occurred_at)
        VALUES (:entry_id, :user_id, :change, :occurred_at)
    `
)

type PGRepository struct {
	DB *sqlx.DB
}

var _ stock.Repository = (*PGRepository)(nil)

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range stockSchema {
		if _, err := r.DB.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (r *PGRepository) Create(ctx context.Context, e *model.StockEntry) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
        INSERT INTO stock_entries (
            id, item_sku, warehouse_id, item, location,
            current_quantity, unit, threshold, reserved_quantity, available_quantity,
            status, batches, tags, created_at, last_updated
        )
        VALUES (
            :id, :item_sku, :warehouse_id, :item, :location,
            :current_quantity, :unit, :threshold, :reserved_quantity, :available_quantity,
            :status, :batches, :tags, :created_at, :last_updated
        )
    `
	if _, err := tx.NamedExecContext(ctx, query, toEntryRow(e)); err != nil {
		return translate(err)
	}
	if err := insertHistory(ctx, tx, e.ID, e.Actions, e.AuditLog); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *PGRepository) FindByID(ctx context.Context, id string) (*model.StockEntry, error) {
	return r.findOne(ctx, `SELECT * FROM stock_entries WHERE id = $1 LIMIT 1`, id)
}

func (r *PGRepository) FindByKey(ctx context.Context, sku, warehouseID string) (*model.StockEntry, error) {
	return r.findOne(ctx, `SELECT * FROM stock_entries WHERE item_sku = $1 AND warehouse_id = $2 LIMIT 1`, sku, warehouseID)
}

func (r *PGRepository) findOne(ctx context.Context, query string, args ...interface{}) (*model.StockEntry, error) {
	var row entryRow
	if err := r.DB.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	entries, err := r.withHistory(ctx, []entryRow{row})
	if err != nil {
		return nil, err
	}
	return &entries[0], nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.EntryFilters) ([]model.StockEntry, int, error) {
	var rows []entryRow
	var count int

	whereClause, args := buildEntryWhere(f)

	countQuery, countArgs, err := r.DB.BindNamed("SELECT count(*) FROM stock_entries"+whereClause, args)
	if err != nil {
		return nil, 0, err
	}
	if err := r.DB.GetContext(ctx, &count, countQuery, countArgs...); err != nil {
		return nil, 0, err
	}

	query := "SELECT * FROM stock_entries" + whereClause + " ORDER BY last_updated DESC"
	if f.PageSize > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, offset(f.Page, f.PageSize))
	}
	bound, boundArgs, err := r.DB.BindNamed(query, args)
	if err != nil {
		return nil, 0, err
	}
	if err := r.DB.SelectContext(ctx, &rows, bound, boundArgs...); err != nil {
		return nil, 0, err
	}

	entries, err := r.withHistory(ctx, rows)
	if err != nil {
		return nil, 0, err
	}
	return entries, count, nil
}

func (r *PGRepository) Save(ctx context.Context, e *model.StockEntry, actions []model.Action, audit []model.AuditEntry) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
        UPDATE stock_entries
        SET item_sku = :item_sku, warehouse_id = :warehouse_id, item = :item, location = :location,
            current_quantity = :current_quantity, unit = :unit, threshold = :threshold,
            reserved_quantity = :reserved_quantity, available_quantity = :available_quantity,
            status = :status, batches = :batches, tags = :tags, last_updated = :last_updated
        WHERE id = :id
    `
	res, err := tx.NamedExecContext(ctx, query, toEntryRow(e))
	if err != nil {
		return translate(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("stock entry %s: %w", e.ID, model.ErrNotFound)
	}

	if err := insertHistory(ctx, tx, e.ID, actions, audit); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *PGRepository) PushAction(ctx context.Context, entryID string, a model.Action) error {
	_, err := r.DB.NamedExecContext(ctx, insertActionQuery, toActionRow(entryID, a))
	return translatePush(entryID, err)
}

func (r *PGRepository) PushAudit(ctx context.Context, entryID string, a model.AuditEntry) error {
	_, err := r.DB.NamedExecContext(ctx, insertAuditQuery, toAuditRow(entryID, a))
	return translatePush(entryID, err)
}

func (r *PGRepository) FindExpiryCandidates(ctx context.Context, now time.Time, limit int) ([]model.StockEntry, error) {
	query := `
        SELECT * FROM stock_entries
        WHERE status = $1 AND current_quantity > 0
          AND EXISTS (
              SELECT 1 FROM jsonb_array_elements(batches) b
              WHERE (b->>'expiryDate') IS NOT NULL AND (b->>'expiryDate')::timestamptz < $2
          )
        ORDER BY last_updated
        LIMIT $3
    `
	if limit <= 0 {
		limit = 1000
	}
	var rows []entryRow
	if err := r.DB.SelectContext(ctx, &rows, query, string(model.StatusInStock), now, limit); err != nil {
		return nil, err
	}
	return r.withHistory(ctx, rows)
}

// withHistory converts rows and attaches their actions and audit entries in insertion order.
func (r *PGRepository) withHistory(ctx context.Context, rows []entryRow) ([]model.StockEntry, error) {
	entries := make([]model.StockEntry, 0, len(rows))
	if len(rows) == 0 {
		return entries, nil
	}
	ids := make([]string, 0, len(rows))
	index := make(map[string]int, len(rows))
	for i, row := range rows {
		entries = append(entries, row.toModel())
		ids = append(ids, row.ID)
		index[row.ID] = i
	}

	query, args, err := sqlx.In(`SELECT entry_id, id, type, triggered_by, occurred_at, status, notes
        FROM stock_actions WHERE entry_id IN (?) ORDER BY seq`, ids)
	if err != nil {
		return nil, err
	}
	var actions []actionRow
	if err := r.DB.SelectContext(ctx, &actions, r.DB.Rebind(query), args...); err != nil {
		return nil, err
	}
	for _, a := range actions {
		e := &entries[index[a.EntryID]]
		e.Actions = append(e.Actions, model.Action{
			ID:          a.ID,
			Type:        model.ActionType(a.Type),
			TriggeredBy: a.TriggeredBy,
			Timestamp:   a.OccurredAt,
			Status:      model.ActionStatus(a.Status),
			Notes:       a.Notes,
		})
	}

	query, args, err = sqlx.In(`SELECT entry_id, user_id, change, occurred_at
        FROM stock_audit_log WHERE entry_id IN (?) ORDER BY seq`, ids)
	if err != nil {
		return nil, err
	}
	var audit []auditRow
	if err := r.DB.SelectContext(ctx, &audit, r.DB.Rebind(query), args...); err != nil {
		return nil, err
	}
	for _, a := range audit {
		e := &entries[index[a.EntryID]]
		e.AuditLog = append(e.AuditLog, model.AuditEntry{UserID: a.UserID, Change: a.Change, Timestamp: a.OccurredAt})
	}
	return entries, nil
}

func insertHistory(ctx context.Context, tx *sqlx.Tx, entryID string, actions []model.Action, audit []model.AuditEntry) error {
	for _, a := range actions {
		if _, err := tx.NamedExecContext(ctx, insertActionQuery, toActionRow(entryID, a)); err != nil {
			return fmt.Errorf("failed to record action: %w", err)
		}
	}
	for _, a := range audit {
		if _, err := tx.NamedExecContext(ctx, insertAuditQuery, toAuditRow(entryID, a)); err != nil {
			return fmt.Errorf("failed to record audit entry: %w", err)
		}
	}
	return nil
}

func buildEntryWhere(f *dto.EntryFilters) (string, map[string]interface{}) {
	conditions := []string{}
	args := map[string]interface{}{}

	if f.SKU != "" {
		conditions = append(conditions, "item_sku = :item_sku")
		args["item_sku"] = f.SKU
	}
	if f.WarehouseID != "" {
		conditions = append(conditions, "warehouse_id = :warehouse_id")
		args["warehouse_id"] = f.WarehouseID
	}
	if f.Tag != "" {
		conditions = append(conditions, "tags @> jsonb_build_array(CAST(:tag AS text))")
		args["tag"] = f.Tag
	}
	switch {
	case f.Status != "":
		conditions = append(conditions, "status = :status")
		args["status"] = string(f.Status)
	case f.LowStock:
		names := make([]string, 0, len(dto.LowStockStatuses))
		for i, s := range dto.LowStockStatuses {
			name := fmt.Sprintf("low_%d", i)
			names = append(names, ":"+name)
			args[name] = string(s)
		}
		conditions = append(conditions, "status IN ("+strings.Join(names, ", ")+")")
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func translate(err error) error {
	if err != nil && postgres.IsUniqueViolation(err) {
		return fmt.Errorf("%w: %v", model.ErrDuplicateKey, err)
	}
	return err
}

func translatePush(entryID string, err error) error {
	if err != nil && postgres.IsForeignKeyViolation(err) {
		return fmt.Errorf("stock entry %s: %w", entryID, model.ErrNotFound)
	}
	return err
}

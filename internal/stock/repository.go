package stock

import (
	"context"
	"time"

	"github.com/reliefhub/stock-service/internal/model"
	"github.com/reliefhub/stock-service/internal/stock/dto"
)

// Repository returns (nil, nil) from the Find lookups when nothing matches. The
// writes against an existing entry return model.ErrNotFound when it is missing and
// model.ErrDuplicateKey when the (SKU, warehouse) pair is taken.
type Repository interface {
	Create(ctx context.Context, entry *model.StockEntry) error
	FindByID(ctx context.Context, id string) (*model.StockEntry, error)
	FindByKey(ctx context.Context, sku, warehouseID string) (*model.StockEntry, error)
	FindAll(ctx context.Context, filters *dto.EntryFilters) ([]model.StockEntry, int, error)

	// Save overwrites the mutable fields of entry and appends actions and audit
	// entries in one write. The append-only lists already on entry are ignored.
	Save(ctx context.Context, entry *model.StockEntry, actions []model.Action, audit []model.AuditEntry) error

	PushAction(ctx context.Context, entryID string, action model.Action) error
	PushAudit(ctx context.Context, entryID string, entry model.AuditEntry) error

	// FindExpiryCandidates lists In-Stock entries with stock on hand and at least
	// one batch whose expiry date is before now.
	FindExpiryCandidates(ctx context.Context, now time.Time, limit int) ([]model.StockEntry, error)
}

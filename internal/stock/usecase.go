package stock

import (
	"context"
	"time"

	"github.com/reliefhub/stock-service/internal/model"
	"github.com/reliefhub/stock-service/internal/stock/dto"
)

type UseCase interface {
	// Upsert writes the caller's base figures and recomputes the derived fields
	// before commit. It does not append to actions or auditLog.
	Upsert(ctx context.Context, input *dto.UpsertInput) (*model.StockEntry, error)
	StockFromCatalog(ctx context.Context, input *dto.CatalogStockInput) (*model.StockEntry, error)

	Adjust(ctx context.Context, input *dto.AdjustInput) (*model.StockEntry, error)
	Reserve(ctx context.Context, input *dto.ReserveInput) (*model.StockEntry, error)
	Transfer(ctx context.Context, input *dto.TransferInput) (*dto.TransferResult, error)

	AppendAction(ctx context.Context, input *dto.ActionInput) error
	AppendAuditEntry(ctx context.Context, entryID, userID, change string) error
	RecordChange(ctx context.Context, entryID, userID string, change model.ChangeEvent) error

	GetEntry(ctx context.Context, id string) (*model.StockEntry, error)
	ListEntries(ctx context.Context, filters *dto.EntryFilters) ([]model.StockEntry, int, error)

	// RefreshExpired reclassifies In-Stock entries holding a batch that expired
	// before now and returns how many changed.
	RefreshExpired(ctx context.Context, now time.Time) (int, error)
}

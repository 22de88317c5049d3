package item

import (
	"context"

	"github.com/reliefhub/stock-service/internal/item/dto"
	"github.com/reliefhub/stock-service/internal/model"
)

// Repository returns (nil, nil) from FindByID when the item does not exist.
type Repository interface {
	Create(ctx context.Context, item *model.Item) error
	FindByID(ctx context.Context, id string) (*model.Item, error)
	FindAll(ctx context.Context, filters *dto.ItemFilters) ([]model.Item, int, error)
	Update(ctx context.Context, item *model.Item) error

	// Check SKU/Barcode uniqueness
	IsSKUUnique(ctx context.Context, sku, excludeID string) (bool, error)
	IsBarcodeUnique(ctx context.Context, barcode, excludeID string) (bool, error)
}

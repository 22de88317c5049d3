package item

import (
	"context"

	"github.com/reliefhub/stock-service/internal/item/dto"
	"github.com/reliefhub/stock-service/internal/model"
)

type UseCase interface {
	CreateItem(ctx context.Context, input *dto.CreateItemInput) (*model.Item, error)
	GetItem(ctx context.Context, id string) (*model.Item, error)
	ListItems(ctx context.Context, filters *dto.ItemFilters) ([]model.Item, int, error)
	UpdateItem(ctx context.Context, input *dto.UpdateItemInput) (*model.Item, error)

	// Items are never deleted, only deactivated.
	SetItemActive(ctx context.Context, id string, active bool) (*model.Item, error)
}

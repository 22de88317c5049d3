package handler

import (
	"context"

	"github.com/reliefhub/stock-service/internal/item"
	"github.com/reliefhub/stock-service/internal/item/dto"
	"github.com/reliefhub/stock-service/internal/transport"
	"github.com/reliefhub/stock-service/pkg/logger"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

type ItemHandler struct {
	uc     item.UseCase
	logger logger.ZapLogger
}

var _ ItemServiceServer = (*ItemHandler)(nil)

func NewItemHandler(uc item.UseCase, log logger.ZapLogger) *ItemHandler {
	return &ItemHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *ItemHandler) CreateItem(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	input := &dto.CreateItemInput{
		Name:          transport.Str(req, "name"),
		Description:   transport.Str(req, "description"),
		Category:      transport.Str(req, "category"),
		UnitOfMeasure: transport.Str(req, "unitOfMeasure"),
		SKU:           transport.Str(req, "sku"),
		Barcode:       transport.Str(req, "barcode"),
		ImageURL:      transport.Str(req, "imageUrl"),
	}

	it, err := h.uc.CreateItem(ctx, input)
	if err != nil {
		h.logger.Error("failed to create item", zap.String("sku", input.SKU), zap.Error(err))
		return nil, transport.Status(err)
	}
	return transport.ToStruct(it)
}

func (h *ItemHandler) GetItem(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id := transport.Str(req, "id")
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}
	it, err := h.uc.GetItem(ctx, id)
	if err != nil {
		return nil, transport.Status(err)
	}
	return transport.ToStruct(it)
}

func (h *ItemHandler) ListItems(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	page, err := transport.Int(req, "page")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	pageSize, err := transport.Int(req, "pageSize")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	filters := &dto.ItemFilters{
		Category:    transport.Str(req, "category"),
		SearchQuery: transport.Str(req, "query"),
		Page:        page,
		PageSize:    pageSize,
	}
	if active, ok := transport.Bool(req, "isActive"); ok {
		filters.IsActive = &active
	}

	items, count, err := h.uc.ListItems(ctx, filters)
	if err != nil {
		return nil, transport.Status(err)
	}
	return transport.ListResponse(items, count)
}

func (h *ItemHandler) UpdateItem(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	input := &dto.UpdateItemInput{
		ID:            transport.Str(req, "id"),
		Name:          transport.Str(req, "name"),
		Description:   transport.Str(req, "description"),
		Category:      transport.Str(req, "category"),
		UnitOfMeasure: transport.Str(req, "unitOfMeasure"),
		SKU:           transport.Str(req, "sku"),
		Barcode:       transport.Str(req, "barcode"),
		ImageURL:      transport.Str(req, "imageUrl"),
	}
	if active, ok := transport.Bool(req, "isActive"); ok {
		input.IsActive = &active
	}

	it, err := h.uc.UpdateItem(ctx, input)
	if err != nil {
		h.logger.Error("failed to update item", zap.String("item_id", input.ID), zap.Error(err))
		return nil, transport.Status(err)
	}
	return transport.ToStruct(it)
}

func (h *ItemHandler) SetItemActive(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	active, ok := transport.Bool(req, "isActive")
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "isActive is required")
	}
	it, err := h.uc.SetItemActive(ctx, transport.Str(req, "id"), active)
	if err != nil {
		return nil, transport.Status(err)
	}
	return transport.ToStruct(it)
}

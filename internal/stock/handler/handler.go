package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/reliefhub/stock-service/internal/model"
	"github.com/reliefhub/stock-service/internal/stock"
	"github.com/reliefhub/stock-service/internal/stock/dto"
	"github.com/reliefhub/stock-service/internal/transport"
	"github.com/reliefhub/stock-service/pkg/logger"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

type StockHandler struct {
	uc     stock.UseCase
	logger logger.ZapLogger
}

var _ StockServiceServer = (*StockHandler)(nil)

func NewStockHandler(uc stock.UseCase, log logger.ZapLogger) *StockHandler {
	return &StockHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *StockHandler) Upsert(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	inv := transport.Struct(req, "inventory")
	current, reserved, threshold, err := parseQuantities(inv)
	if err != nil {
		return nil, transport.Status(err)
	}
	loc, err := parseLocationSnapshot(transport.Struct(req, "location"))
	if err != nil {
		return nil, transport.Status(err)
	}
	batches, err := parseBatches(req)
	if err != nil {
		return nil, transport.Status(err)
	}

	item := transport.Struct(req, "item")
	input := &dto.UpsertInput{
		ID: transport.Str(req, "id"),
		Item: model.ItemSnapshot{
			Name:        transport.Str(item, "name"),
			Category:    model.ItemCategory(transport.Str(item, "category")),
			SKU:         transport.Str(item, "sku"),
			Description: transport.Str(item, "description"),
		},
		Location:         loc,
		Unit:             transport.Str(inv, "unit"),
		CurrentQuantity:  current,
		ReservedQuantity: reserved,
		Threshold:        threshold,
		Batches:          batches,
		Tags:             transport.Strings(req, "tags"),
	}

	entry, err := h.uc.Upsert(ctx, input)
	if err != nil {
		h.logger.Error("failed to upsert stock entry",
			zap.String("entry_id", input.ID),
			zap.String("sku", input.Item.SKU),
			zap.String("warehouse_id", input.Location.WarehouseID),
			zap.Error(err),
		)
		return nil, transport.Status(err)
	}
	return transport.ToStruct(entry)
}

func (h *StockHandler) StockFromCatalog(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	current, reserved, threshold, err := parseQuantities(req)
	if err != nil {
		return nil, transport.Status(err)
	}
	batches, err := parseBatches(req)
	if err != nil {
		return nil, transport.Status(err)
	}

	entry, err := h.uc.StockFromCatalog(ctx, &dto.CatalogStockInput{
		ItemID:           transport.Str(req, "itemId"),
		LocationID:       transport.Str(req, "locationId"),
		Unit:             transport.Str(req, "unit"),
		CurrentQuantity:  current,
		ReservedQuantity: reserved,
		Threshold:        threshold,
		Batches:          batches,
		Tags:             transport.Strings(req, "tags"),
	})
	if err != nil {
		h.logger.Error("failed to stock catalog item", zap.Error(err))
		return nil, transport.Status(err)
	}
	return transport.ToStruct(entry)
}

func (h *StockHandler) Adjust(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	qty, err := transport.Int(req, "quantity")
	if err != nil {
		return nil, transport.Status(err)
	}
	input := &dto.AdjustInput{
		EntryID:     transport.Str(req, "entryId"),
		Type:        model.ActionType(transport.Str(req, "type")),
		Quantity:    qty,
		TriggeredBy: transport.Str(req, "triggeredBy"),
		Notes:       transport.Str(req, "notes"),
	}

	entry, err := h.uc.Adjust(ctx, input)
	if err != nil {
		h.logger.Error("failed to adjust stock", zap.String("entry_id", input.EntryID), zap.Error(err))
		return nil, transport.Status(err)
	}
	return transport.ToStruct(entry)
}

func (h *StockHandler) Reserve(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	delta, err := transport.Int(req, "delta")
	if err != nil {
		return nil, transport.Status(err)
	}
	entry, err := h.uc.Reserve(ctx, &dto.ReserveInput{
		EntryID:     transport.Str(req, "entryId"),
		Delta:       delta,
		TriggeredBy: transport.Str(req, "triggeredBy"),
		Notes:       transport.Str(req, "notes"),
	})
	if err != nil {
		return nil, transport.Status(err)
	}
	return transport.ToStruct(entry)
}

func (h *StockHandler) Transfer(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	qty, err := transport.Int(req, "quantity")
	if err != nil {
		return nil, transport.Status(err)
	}
	input := &dto.TransferInput{
		FromEntryID: transport.Str(req, "fromEntryId"),
		ToEntryID:   transport.Str(req, "toEntryId"),
		Quantity:    qty,
		TriggeredBy: transport.Str(req, "triggeredBy"),
		Notes:       transport.Str(req, "notes"),
	}

	res, err := h.uc.Transfer(ctx, input)
	if err != nil {
		h.logger.Error("failed to transfer stock",
			zap.String("from_entry_id", input.FromEntryID),
			zap.String("to_entry_id", input.ToEntryID),
			zap.Error(err),
		)
		return nil, transport.Status(err)
	}
	return transport.ToStruct(res)
}

func (h *StockHandler) AppendAction(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	err := h.uc.AppendAction(ctx, &dto.ActionInput{
		EntryID:     transport.Str(req, "entryId"),
		Type:        model.ActionType(transport.Str(req, "type")),
		TriggeredBy: transport.Str(req, "triggeredBy"),
		Status:      model.ActionStatus(transport.Str(req, "status")),
		Notes:       transport.Str(req, "notes"),
	})
	if err != nil {
		return nil, transport.Status(err)
	}
	return &emptypb.Empty{}, nil
}

func (h *StockHandler) AppendAuditEntry(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	err := h.uc.AppendAuditEntry(ctx, transport.Str(req, "entryId"), transport.Str(req, "userId"), transport.Str(req, "change"))
	if err != nil {
		return nil, transport.Status(err)
	}
	return &emptypb.Empty{}, nil
}

func (h *StockHandler) GetEntry(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id := transport.Str(req, "id")
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}
	entry, err := h.uc.GetEntry(ctx, id)
	if err != nil {
		return nil, transport.Status(err)
	}
	return transport.ToStruct(entry)
}

func (h *StockHandler) ListEntries(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	page, err := transport.Int(req, "page")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	pageSize, err := transport.Int(req, "pageSize")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	lowStock, _ := transport.Bool(req, "lowStock")

	entries, count, err := h.uc.ListEntries(ctx, &dto.EntryFilters{
		SKU:         transport.Str(req, "sku"),
		WarehouseID: transport.Str(req, "warehouseId"),
		Status:      model.StockStatus(transport.Str(req, "status")),
		Tag:         transport.Str(req, "tag"),
		LowStock:    lowStock,
		Page:        page,
		PageSize:    pageSize,
	})
	if err != nil {
		return nil, transport.Status(err)
	}
	return transport.ListResponse(entries, count)
}

func (h *StockHandler) RefreshExpired(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	n, err := h.uc.RefreshExpired(ctx, time.Now())
	if err != nil {
		h.logger.Error("failed to refresh expired stock", zap.Error(err))
		return nil, transport.Status(err)
	}
	return transport.ToStruct(map[string]int{"refreshed": n})
}

func parseQuantities(s *structpb.Struct) (current, reserved, threshold int, err error) {
	if !transport.Has(s, "currentQuantity") {
		return 0, 0, 0, fmt.Errorf("%w: currentQuantity is required", model.ErrInvalidQuantity)
	}
	if current, err = transport.Int(s, "currentQuantity"); err != nil {
		return 0, 0, 0, err
	}
	if reserved, err = transport.Int(s, "reservedQuantity"); err != nil {
		return 0, 0, 0, err
	}
	if threshold, err = transport.Int(s, "threshold"); err != nil {
		return 0, 0, 0, err
	}
	return current, reserved, threshold, nil
}

func parseLocationSnapshot(s *structpb.Struct) (model.LocationSnapshot, error) {
	coords := transport.Struct(s, "coordinates")
	lat, err := transport.Float(coords, "lat", model.ErrInvalidCoordinates)
	if err != nil {
		return model.LocationSnapshot{}, err
	}
	lng, err := transport.Float(coords, "lng", model.ErrInvalidCoordinates)
	if err != nil {
		return model.LocationSnapshot{}, err
	}
	manager := transport.Struct(s, "manager")
	return model.LocationSnapshot{
		WarehouseID: transport.Str(s, "warehouseId"),
		Name:        transport.Str(s, "name"),
		Address:     transport.Str(s, "address"),
		Coordinates: model.LatLng{Lat: lat, Lng: lng},
		Manager: model.ManagerContact{
			Name:    transport.Str(manager, "name"),
			Contact: transport.Str(manager, "contact"),
			Email:   transport.Str(manager, "email"),
		},
	}, nil
}

func parseBatches(req *structpb.Struct) ([]model.Batch, error) {
	values := transport.List(req, "batches")
	out := make([]model.Batch, 0, len(values))
	for i, v := range values {
		b := v.GetStructValue()
		if b == nil {
			return nil, fmt.Errorf("%w: batch %d is not an object", model.ErrInvalidBatch, i)
		}
		qty, err := transport.Int(b, "quantity")
		if err != nil {
			return nil, err
		}
		expiry, err := transport.Time(b, "expiryDate")
		if err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrInvalidBatch, err)
		}
		received, err := transport.Time(b, "receivedDate")
		if err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrInvalidBatch, err)
		}

		batch := model.Batch{
			BatchNumber: transport.Str(b, "batchNumber"),
			Quantity:    qty,
			ExpiryDate:  expiry,
			Condition:   model.BatchCondition(transport.Str(b, "condition")),
		}
		if received != nil {
			batch.ReceivedDate = *received
		}
		out = append(out, batch)
	}
	return out, nil
}

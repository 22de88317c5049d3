package handler

import (
	"context"
	"fmt"

	"github.com/reliefhub/stock-service/internal/location"
	"github.com/reliefhub/stock-service/internal/location/dto"
	"github.com/reliefhub/stock-service/internal/model"
	"github.com/reliefhub/stock-service/internal/transport"
	"github.com/reliefhub/stock-service/pkg/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

type LocationHandler struct {
	uc     location.UseCase
	logger logger.ZapLogger
}

var _ LocationServiceServer = (*LocationHandler)(nil)

func NewLocationHandler(uc location.UseCase, log logger.ZapLogger) *LocationHandler {
	return &LocationHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *LocationHandler) CreateLocation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields, err := parseLocationFields(req)
	if err != nil {
		return nil, transport.Status(err)
	}

	loc, err := h.uc.CreateLocation(ctx, &dto.CreateLocationInput{
		Name:      transport.Str(req, "name"),
		Address:   fields.address,
		Longitude: fields.lng,
		Latitude:  fields.lat,
		Contact:   fields.contact,
		Capacity:  fields.capacity,
	})
	if err != nil {
		h.logger.Error("failed to create location", zap.Error(err))
		return nil, transport.Status(err)
	}
	return transport.ToStruct(loc)
}

func (h *LocationHandler) GetLocation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id := transport.Str(req, "id")
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}
	loc, err := h.uc.GetLocation(ctx, id)
	if err != nil {
		return nil, transport.Status(err)
	}
	return transport.ToStruct(loc)
}

func (h *LocationHandler) ListLocations(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	page, err := transport.Int(req, "page")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	pageSize, err := transport.Int(req, "pageSize")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	filters := &dto.LocationFilters{
		City:     transport.Str(req, "city"),
		Country:  transport.Str(req, "country"),
		Page:     page,
		PageSize: pageSize,
	}
	if active, ok := transport.Bool(req, "isActive"); ok {
		filters.IsActive = &active
	}

	locs, count, err := h.uc.ListLocations(ctx, filters)
	if err != nil {
		return nil, transport.Status(err)
	}
	return transport.ListResponse(locs, count)
}

func (h *LocationHandler) UpdateLocation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields, err := parseLocationFields(req)
	if err != nil {
		return nil, transport.Status(err)
	}
	input := &dto.UpdateLocationInput{
		ID:        transport.Str(req, "id"),
		Name:      transport.Str(req, "name"),
		Address:   fields.address,
		Longitude: fields.lng,
		Latitude:  fields.lat,
		Contact:   fields.contact,
		Capacity:  fields.capacity,
	}
	if active, ok := transport.Bool(req, "isActive"); ok {
		input.IsActive = &active
	}

	loc, err := h.uc.UpdateLocation(ctx, input)
	if err != nil {
		h.logger.Error("failed to update location", zap.String("location_id", input.ID), zap.Error(err))
		return nil, transport.Status(err)
	}
	return transport.ToStruct(loc)
}

func (h *LocationHandler) SetLocationActive(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	active, ok := transport.Bool(req, "isActive")
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "isActive is required")
	}
	loc, err := h.uc.SetLocationActive(ctx, transport.Str(req, "id"), active)
	if err != nil {
		return nil, transport.Status(err)
	}
	return transport.ToStruct(loc)
}

func (h *LocationHandler) NearestLocations(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	lng, err := transport.Float(req, "lng", model.ErrInvalidCoordinates)
	if err != nil {
		return nil, transport.Status(err)
	}
	lat, err := transport.Float(req, "lat", model.ErrInvalidCoordinates)
	if err != nil {
		return nil, transport.Status(err)
	}
	limit, err := transport.Int(req, "limit")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	query := &dto.NearestQuery{Longitude: lng, Latitude: lat, Limit: limit}
	if transport.Has(req, "maxDistanceMeters") {
		if query.MaxDistanceMeters, err = transport.Float(req, "maxDistanceMeters", model.ErrInvalidLocation); err != nil {
			return nil, transport.Status(err)
		}
	}

	nearby, err := h.uc.NearestLocations(ctx, query)
	if err != nil {
		return nil, transport.Status(err)
	}
	return transport.ListResponse(nearby, len(nearby))
}

type locationFields struct {
	address  model.Address
	lng, lat float64
	contact  *model.Contact
	capacity *dto.CapacityInput
}

// parseLocationFields reads {address, coordinates:{lng,lat}, contact, capacity:{amount,unit}}.
func parseLocationFields(req *structpb.Struct) (*locationFields, error) {
	f := &locationFields{}

	addr := transport.Struct(req, "address")
	f.address = model.Address{
		Street:  transport.Str(addr, "street"),
		Suite:   transport.Str(addr, "suite"),
		City:    transport.Str(addr, "city"),
		State:   transport.Str(addr, "state"),
		Zip:     transport.Str(addr, "zip"),
		Country: transport.Str(addr, "country"),
	}

	coords := transport.Struct(req, "coordinates")
	var err error
	if f.lng, err = transport.Float(coords, "lng", model.ErrInvalidCoordinates); err != nil {
		return nil, err
	}
	if f.lat, err = transport.Float(coords, "lat", model.ErrInvalidCoordinates); err != nil {
		return nil, err
	}

	if c := transport.Struct(req, "contact"); c != nil {
		f.contact = &model.Contact{
			Name:  transport.Str(c, "name"),
			Phone: transport.Str(c, "phone"),
			Email: transport.Str(c, "email"),
		}
	}

	if c := transport.Struct(req, "capacity"); c != nil {
		amount, err := parseAmount(c)
		if err != nil {
			return nil, err
		}
		f.capacity = &dto.CapacityInput{Amount: amount, Unit: transport.Str(c, "unit")}
	}
	return f, nil
}

// parseAmount accepts the capacity amount as a number or a decimal string.
func parseAmount(c *structpb.Struct) (decimal.Decimal, error) {
	if s := transport.Str(c, "amount"); s != "" {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: capacity amount %q", model.ErrInvalidLocation, s)
		}
		return d, nil
	}
	f, err := transport.Float(c, "amount", model.ErrInvalidLocation)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromFloat(f), nil
}

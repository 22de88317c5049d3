package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/reliefhub/stock-service/internal/location"
	"github.com/reliefhub/stock-service/internal/location/dto"
	"github.com/reliefhub/stock-service/internal/model"
	"github.com/reliefhub/stock-service/pkg/logger"
	"go.uber.org/zap"
)

const (
	defaultNearestLimit = 5
	maxNearestLimit     = 100
)

type locationUseCase struct {
	repo   location.Repository
	logger logger.ZapLogger
	now    func() time.Time
}

func NewLocationUseCase(repo location.Repository, log logger.ZapLogger) location.UseCase {
	return &locationUseCase{
		repo:   repo,
		logger: log,
		now:    time.Now,
	}
}

func (uc *locationUseCase) CreateLocation(ctx context.Context, input *dto.CreateLocationInput) (*model.Location, error) {
	now := uc.now().UTC()
	loc := &model.Location{
		BaseModel: model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		Name:      strings.TrimSpace(input.Name),
		Address:   trimAddress(input.Address),
		Point:     model.NewGeoPoint(input.Longitude, input.Latitude),
		Contact:   input.Contact,
		Capacity:  capacity(input.Capacity),
		IsActive:  true,
	}
	if err := loc.Validate(); err != nil {
		return nil, err
	}

	if err := uc.repo.Create(ctx, loc); err != nil {
		return nil, err
	}
	uc.logger.Info("stock location registered", zap.String("location_id", loc.ID), zap.String("name", loc.Name))
	return loc, nil
}

func (uc *locationUseCase) GetLocation(ctx context.Context, id string) (*model.Location, error) {
	loc, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		return nil, fmt.Errorf("location %s: %w", id, model.ErrNotFound)
	}
	return loc, nil
}

func (uc *locationUseCase) ListLocations(ctx context.Context, filters *dto.LocationFilters) ([]model.Location, int, error) {
	return uc.repo.FindAll(ctx, filters)
}

func (uc *locationUseCase) UpdateLocation(ctx context.Context, input *dto.UpdateLocationInput) (*model.Location, error) {
	loc, err := uc.GetLocation(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	loc.Name = strings.TrimSpace(input.Name)
	loc.Address = trimAddress(input.Address)
	loc.Point = model.NewGeoPoint(input.Longitude, input.Latitude)
	loc.Contact = input.Contact
	loc.Capacity = capacity(input.Capacity)
	if input.IsActive != nil {
		loc.IsActive = *input.IsActive
	}
	if err := loc.Validate(); err != nil {
		return nil, err
	}

	loc.UpdatedAt = uc.now().UTC()
	if err := uc.repo.Update(ctx, loc); err != nil {
		return nil, err
	}
	return loc, nil
}

func (uc *locationUseCase) SetLocationActive(ctx context.Context, id string, active bool) (*model.Location, error) {
	loc, err := uc.GetLocation(ctx, id)
	if err != nil {
		return nil, err
	}
	if loc.IsActive == active {
		return loc, nil
	}
	loc.IsActive = active
	loc.UpdatedAt = uc.now().UTC()
	if err := uc.repo.Update(ctx, loc); err != nil {
		return nil, err
	}
	if !active {
		uc.logger.Info("stock location retired", zap.String("location_id", loc.ID))
	}
	return loc, nil
}

func (uc *locationUseCase) NearestLocations(ctx context.Context, query *dto.NearestQuery) ([]dto.NearbyLocation, error) {
	if err := model.NewGeoPoint(query.Longitude, query.Latitude).Validate(); err != nil {
		return nil, err
	}
	if query.MaxDistanceMeters < 0 {
		return nil, fmt.Errorf("%w: max distance must not be negative", model.ErrInvalidLocation)
	}
	q := *query
	switch {
	case q.Limit <= 0:
		q.Limit = defaultNearestLimit
	case q.Limit > maxNearestLimit:
		q.Limit = maxNearestLimit
	}
	return uc.repo.Nearest(ctx, &q)
}

func trimAddress(a model.Address) model.Address {
	return model.Address{
		Street:  strings.TrimSpace(a.Street),
		Suite:   strings.TrimSpace(a.Suite),
		City:    strings.TrimSpace(a.City),
		State:   strings.TrimSpace(a.State),
		Zip:     strings.TrimSpace(a.Zip),
		Country: strings.TrimSpace(a.Country),
	}
}

func capacity(in *dto.CapacityInput) *model.Capacity {
	if in == nil {
		return nil
	}
	return &model.Capacity{Amount: in.Amount, Unit: strings.TrimSpace(in.Unit)}
}

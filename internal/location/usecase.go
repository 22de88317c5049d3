package location

import (
	"context"

	"github.com/reliefhub/stock-service/internal/location/dto"
	"github.com/reliefhub/stock-service/internal/model"
)

type UseCase interface {
	CreateLocation(ctx context.Context, input *dto.CreateLocationInput) (*model.Location, error)
	GetLocation(ctx context.Context, id string) (*model.Location, error)
	ListLocations(ctx context.Context, filters *dto.LocationFilters) ([]model.Location, int, error)
	UpdateLocation(ctx context.Context, input *dto.UpdateLocationInput) (*model.Location, error)
	SetLocationActive(ctx context.Context, id string, active bool) (*model.Location, error)
	NearestLocations(ctx context.Context, query *dto.NearestQuery) ([]dto.NearbyLocation, error)
}

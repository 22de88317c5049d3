package location

import (
	"context"

	"github.com/reliefhub/stock-service/internal/location/dto"
	"github.com/reliefhub/stock-service/internal/model"
)

// Repository returns (nil, nil) from FindByID when the location does not exist.
type Repository interface {
	Create(ctx context.Context, loc *model.Location) error
	FindByID(ctx context.Context, id string) (*model.Location, error)
	FindAll(ctx context.Context, filters *dto.LocationFilters) ([]model.Location, int, error)
	Update(ctx context.Context, loc *model.Location) error

	// Nearest returns active locations ordered by distance from the query point.
	Nearest(ctx context.Context, query *dto.NearestQuery) ([]dto.NearbyLocation, error)
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/reliefhub/stock-service/internal/location"
	"github.com/reliefhub/stock-service/internal/location/dto"
	"github.com/reliefhub/stock-service/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoRepository struct {
	col *mongo.Collection
}

var _ location.Repository = (*MongoRepository)(nil)

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{col: db.Collection("locations")}
}

func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "point", Value: "2dsphere"}}, Options: options.Index().SetName("geo_point")},
		{Keys: bson.D{{Key: "isActive", Value: 1}, {Key: "address.city", Value: 1}}},
	})
	return err
}

func (r *MongoRepository) Create(ctx context.Context, loc *model.Location) error {
	_, err := r.col.InsertOne(ctx, loc)
	if err != nil && mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", model.ErrDuplicateKey, err)
	}
	return err
}

func (r *MongoRepository) FindByID(ctx context.Context, id string) (*model.Location, error) {
	var loc model.Location
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&loc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &loc, nil
}

func (r *MongoRepository) FindAll(ctx context.Context, f *dto.LocationFilters) ([]model.Location, int, error) {
	filter := locationFilter(f)

	count, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	if f.PageSize > 0 {
		opts.SetSkip(int64(offset(f.Page, f.PageSize))).SetLimit(int64(f.PageSize))
	}
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	locs := []model.Location{}
	if err := cur.All(ctx, &locs); err != nil {
		return nil, 0, err
	}
	return locs, int(count), nil
}

func (r *MongoRepository) Update(ctx context.Context, loc *model.Location) error {
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": loc.ID}, loc)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("location %s: %w", loc.ID, model.ErrNotFound)
	}
	return nil
}

type nearbyDoc struct {
	model.Location `bson:",inline"`
	DistanceMeters float64 `bson:"distanceMeters"`
}

func (r *MongoRepository) Nearest(ctx context.Context, q *dto.NearestQuery) ([]dto.NearbyLocation, error) {
	cur, err := r.col.Aggregate(ctx, nearestPipeline(q))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []nearbyDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]dto.NearbyLocation, 0, len(docs))
	for _, d := range docs {
		out = append(out, dto.NearbyLocation{Location: d.Location, DistanceMeters: d.DistanceMeters})
	}
	return out, nil
}

func nearestPipeline(q *dto.NearestQuery) mongo.Pipeline {
	geoNear := bson.D{
		{Key: "near", Value: model.NewGeoPoint(q.Longitude, q.Latitude)},
		{Key: "distanceField", Value: "distanceMeters"},
		{Key: "spherical", Value: true},
		{Key: "query", Value: bson.M{"isActive": true}},
	}
	if q.MaxDistanceMeters > 0 {
		geoNear = append(geoNear, bson.E{Key: "maxDistance", Value: q.MaxDistanceMeters})
	}
	return mongo.Pipeline{
		{{Key: "$geoNear", Value: geoNear}},
		{{Key: "$limit", Value: q.Limit}},
	}
}

func locationFilter(f *dto.LocationFilters) bson.M {
	filter := bson.M{}
	if f.IsActive != nil {
		filter["isActive"] = *f.IsActive
	}
	if f.City != "" {
		filter["address.city"] = f.City
	}
	if f.Country != "" {
		filter["address.country"] = f.Country
	}
	return filter
}

func offset(page, pageSize int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * pageSize
}

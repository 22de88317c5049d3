package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/reliefhub/stock-service/internal/item"
	"github.com/reliefhub/stock-service/internal/item/dto"
	"github.com/reliefhub/stock-service/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoRepository struct {
	col *mongo.Collection
}

var _ item.Repository = (*MongoRepository)(nil)

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{col: db.Collection("items")}
}

// EnsureIndexes makes sku and barcode unique among items that carry them.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "sku", Value: 1}},
			Options: options.Index().SetName("uniq_sku").SetUnique(true).
				SetPartialFilterExpression(bson.M{"sku": bson.M{"$type": "string"}}),
		},
		{
			Keys: bson.D{{Key: "barcode", Value: 1}},
			Options: options.Index().SetName("uniq_barcode").SetUnique(true).
				SetPartialFilterExpression(bson.M{"barcode": bson.M{"$type": "string"}}),
		},
		{Keys: bson.D{{Key: "category", Value: 1}, {Key: "isActive", Value: 1}}},
	})
	return err
}

func (r *MongoRepository) Create(ctx context.Context, it *model.Item) error {
	_, err := r.col.InsertOne(ctx, it)
	return translateMongo(err)
}

func (r *MongoRepository) FindByID(ctx context.Context, id string) (*model.Item, error) {
	var it model.Item
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&it)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &it, nil
}

func (r *MongoRepository) FindAll(ctx context.Context, f *dto.ItemFilters) ([]model.Item, int, error) {
	filter := itemFilter(f)

	count, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if f.PageSize > 0 {
		opts.SetSkip(int64(offset(f.Page, f.PageSize))).SetLimit(int64(f.PageSize))
	}
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	items := []model.Item{}
	if err := cur.All(ctx, &items); err != nil {
		return nil, 0, err
	}
	return items, int(count), nil
}

func (r *MongoRepository) Update(ctx context.Context, it *model.Item) error {
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": it.ID}, it)
	if err != nil {
		return translateMongo(err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("item %s: %w", it.ID, model.ErrNotFound)
	}
	return nil
}

func (r *MongoRepository) IsSKUUnique(ctx context.Context, sku, excludeID string) (bool, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{"sku": sku, "_id": bson.M{"$ne": excludeID}})
	return n == 0, err
}

func (r *MongoRepository) IsBarcodeUnique(ctx context.Context, barcode, excludeID string) (bool, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{"barcode": barcode, "_id": bson.M{"$ne": excludeID}})
	return n == 0, err
}

func itemFilter(f *dto.ItemFilters) bson.M {
	filter := bson.M{}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.IsActive != nil {
		filter["isActive"] = *f.IsActive
	}
	if f.SearchQuery != "" {
		pattern := bson.M{"$regex": regexp.QuoteMeta(f.SearchQuery), "$options": "i"}
		filter["$or"] = bson.A{
			bson.M{"name": pattern},
			bson.M{"sku": pattern},
			bson.M{"barcode": pattern},
		}
	}
	return filter
}

func translateMongo(err error) error {
	if err != nil && mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", model.ErrDuplicateKey, err)
	}
	return err
}

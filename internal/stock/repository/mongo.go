package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/reliefhub/stock-service/internal/model"
	"github.com/reliefhub/stock-service/internal/stock"
	"github.com/reliefhub/stock-service/internal/stock/dto"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoRepository struct {
	col *mongo.Collection
}

var _ stock.Repository = (*MongoRepository)(nil)

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{col: db.Collection("stock_entries")}
}

// EnsureIndexes enforces one entry per (item.sku, location.warehouseId).
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "item.sku", Value: 1}, {Key: "location.warehouseId", Value: 1}},
			Options: options.Index().SetName("uniq_sku_warehouse").SetUnique(true),
		},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "lastUpdated", Value: -1}}},
		{Keys: bson.D{{Key: "tags", Value: 1}}},
		{Keys: bson.D{{Key: "batches.expiryDate", Value: 1}}},
	})
	return err
}

func (r *MongoRepository) Create(ctx context.Context, e *model.StockEntry) error {
	_, err := r.col.InsertOne(ctx, e)
	return translateMongo(err)
}

func (r *MongoRepository) FindByID(ctx context.Context, id string) (*model.StockEntry, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoRepository) FindByKey(ctx context.Context, sku, warehouseID string) (*model.StockEntry, error) {
	return r.findOne(ctx, bson.M{"item.sku": sku, "location.warehouseId": warehouseID})
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.M) (*model.StockEntry, error) {
	var e model.StockEntry
	err := r.col.FindOne(ctx, filter).Decode(&e)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

func (r *MongoRepository) FindAll(ctx context.Context, f *dto.EntryFilters) ([]model.StockEntry, int, error) {
	filter := entryFilter(f)

	count, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "lastUpdated", Value: -1}})
	if f.PageSize > 0 {
		opts.SetSkip(int64(offset(f.Page, f.PageSize))).SetLimit(int64(f.PageSize))
	}
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	entries := []model.StockEntry{}
	if err := cur.All(ctx, &entries); err != nil {
		return nil, 0, err
	}
	return entries, int(count), nil
}

// Save is a single-document update, so the $set and both $push run atomically.
func (r *MongoRepository) Save(ctx context.Context, e *model.StockEntry, actions []model.Action, audit []model.AuditEntry) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": e.ID}, saveUpdate(e, actions, audit))
	if err != nil {
		return translateMongo(err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("stock entry %s: %w", e.ID, model.ErrNotFound)
	}
	return nil
}

func (r *MongoRepository) PushAction(ctx context.Context, entryID string, a model.Action) error {
	return r.push(ctx, entryID, bson.M{"actions": a})
}

func (r *MongoRepository) PushAudit(ctx context.Context, entryID string, a model.AuditEntry) error {
	return r.push(ctx, entryID, bson.M{"auditLog": a})
}

func (r *MongoRepository) push(ctx context.Context, entryID string, fields bson.M) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": entryID}, bson.M{"$push": fields})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("stock entry %s: %w", entryID, model.ErrNotFound)
	}
	return nil
}

func (r *MongoRepository) FindExpiryCandidates(ctx context.Context, now time.Time, limit int) ([]model.StockEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "lastUpdated", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := r.col.Find(ctx, expiryFilter(now), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	entries := []model.StockEntry{}
	if err := cur.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func saveUpdate(e *model.StockEntry, actions []model.Action, audit []model.AuditEntry) bson.M {
	update := bson.M{
		"$set": bson.M{
			"item":        e.Item,
			"location":    e.Location,
			"inventory":   e.Inventory,
			"status":      e.Status,
			"batches":     nonNil(e.Batches),
			"tags":        nonNil(e.Tags),
			"lastUpdated": e.LastUpdated,
		},
	}
	push := bson.M{}
	if len(actions) > 0 {
		push["actions"] = bson.M{"$each": actions}
	}
	if len(audit) > 0 {
		push["auditLog"] = bson.M{"$each": audit}
	}
	if len(push) > 0 {
		update["$push"] = push
	}
	return update
}

func entryFilter(f *dto.EntryFilters) bson.M {
	filter := bson.M{}
	if f.SKU != "" {
		filter["item.sku"] = f.SKU
	}
	if f.WarehouseID != "" {
		filter["location.warehouseId"] = f.WarehouseID
	}
	if f.Tag != "" {
		filter["tags"] = f.Tag
	}
	switch {
	case f.Status != "":
		filter["status"] = f.Status
	case f.LowStock:
		filter["status"] = bson.M{"$in": dto.LowStockStatuses}
	}
	return filter
}

func expiryFilter(now time.Time) bson.M {
	return bson.M{
		"status":                    model.StatusInStock,
		"inventory.currentQuantity": bson.M{"$gt": 0},
		"batches.expiryDate":        bson.M{"$lt": now},
	}
}

// nonNil keeps empty lists stored as arrays so later $push calls succeed.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func offset(page, pageSize int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * pageSize
}

func translateMongo(err error) error {
	if err != nil && mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", model.ErrDuplicateKey, err)
	}
	return err
}

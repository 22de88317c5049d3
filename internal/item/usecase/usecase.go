package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/reliefhub/stock-service/internal/item"
	"github.com/reliefhub/stock-service/internal/item/dto"
	"github.com/reliefhub/stock-service/internal/model"
	"github.com/reliefhub/stock-service/pkg/logger"
	"github.com/reliefhub/stock-service/pkg/search"
	"go.uber.org/zap"
)

const (
	indexName    = "items"
	itemCacheTTL = 10 * time.Minute
)

// Cache is the subset of the Redis client the catalog uses.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// Indexer is the subset of the search client the catalog uses.
type Indexer interface {
	CreateIndex(ctx context.Context, index, mapping string) error
	Index(ctx context.Context, index, id string, doc interface{}) error
	Search(ctx context.Context, index string, query map[string]interface{}) (*search.SearchResponse, error)
}

type itemUseCase struct {
	repo   item.Repository
	cache  Cache
	es     Indexer
	logger logger.ZapLogger
	now    func() time.Time
}

// NewItemUseCase wires the catalog. cache and es may be nil.
func NewItemUseCase(repo item.Repository, cache Cache, es Indexer, log logger.ZapLogger) item.UseCase {
	return &itemUseCase{
		repo:   repo,
		cache:  cache,
		es:     es,
		logger: log,
		now:    time.Now,
	}
}

func (uc *itemUseCase) CreateItem(ctx context.Context, input *dto.CreateItemInput) (*model.Item, error) {
	now := uc.now().UTC()
	it := &model.Item{
		BaseModel:     model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		Name:          strings.TrimSpace(input.Name),
		Description:   model.OptionalString(input.Description),
		Category:      model.ItemCategory(strings.ToLower(strings.TrimSpace(input.Category))),
		UnitOfMeasure: strings.TrimSpace(input.UnitOfMeasure),
		SKU:           model.OptionalString(input.SKU),
		Barcode:       model.OptionalString(input.Barcode),
		ImageURL:      model.OptionalString(input.ImageURL),
		IsActive:      true,
	}
	if err := it.Validate(); err != nil {
		return nil, err
	}
	if err := uc.checkUnique(ctx, it); err != nil {
		return nil, err
	}

	if err := uc.repo.Create(ctx, it); err != nil {
		return nil, err
	}

	uc.syncToElastic(ctx, it)
	return it, nil
}

func (uc *itemUseCase) GetItem(ctx context.Context, id string) (*model.Item, error) {
	key := cacheKey(id)
	if uc.cache != nil {
		if data, ok, err := uc.cache.Get(ctx, key); err == nil && ok {
			var cached model.Item
			if err := json.Unmarshal(data, &cached); err == nil {
				return &cached, nil
			}
		} else if err != nil {
			uc.logger.Warn("item cache read failed", zap.String("item_id", id), zap.Error(err))
		}
	}

	it, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if it == nil {
		return nil, fmt.Errorf("item %s: %w", id, model.ErrNotFound)
	}

	if uc.cache != nil {
		if data, err := json.Marshal(it); err == nil {
			if err := uc.cache.Set(ctx, key, data, itemCacheTTL); err != nil {
				uc.logger.Warn("item cache write failed", zap.String("item_id", id), zap.Error(err))
			}
		}
	}
	return it, nil
}

func (uc *itemUseCase) ListItems(ctx context.Context, filters *dto.ItemFilters) ([]model.Item, int, error) {
	if filters.SearchQuery != "" && uc.es != nil {
		items, total, err := uc.searchElastic(ctx, filters)
		if err == nil {
			return items, total, nil
		}
		// If ES fails, fall through to the store
		uc.logger.Error("ES search failed, falling back to store", zap.Error(err))
	}
	return uc.repo.FindAll(ctx, filters)
}

func (uc *itemUseCase) UpdateItem(ctx context.Context, input *dto.UpdateItemInput) (*model.Item, error) {
	it, err := uc.repo.FindByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if it == nil {
		return nil, fmt.Errorf("item %s: %w", input.ID, model.ErrNotFound)
	}

	it.Name = strings.TrimSpace(input.Name)
	it.Description = model.OptionalString(input.Description)
	it.Category = model.ItemCategory(strings.ToLower(strings.TrimSpace(input.Category)))
	it.UnitOfMeasure = strings.TrimSpace(input.UnitOfMeasure)
	it.SKU = model.OptionalString(input.SKU)
	it.Barcode = model.OptionalString(input.Barcode)
	it.ImageURL = model.OptionalString(input.ImageURL)
	if input.IsActive != nil {
		it.IsActive = *input.IsActive
	}
	if err := it.Validate(); err != nil {
		return nil, err
	}
	if err := uc.checkUnique(ctx, it); err != nil {
		return nil, err
	}

	return it, uc.save(ctx, it)
}

func (uc *itemUseCase) SetItemActive(ctx context.Context, id string, active bool) (*model.Item, error) {
	it, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if it == nil {
		return nil, fmt.Errorf("item %s: %w", id, model.ErrNotFound)
	}
	if it.IsActive == active {
		return it, nil
	}
	it.IsActive = active
	return it, uc.save(ctx, it)
}

func (uc *itemUseCase) save(ctx context.Context, it *model.Item) error {
	it.UpdatedAt = uc.now().UTC()
	if err := uc.repo.Update(ctx, it); err != nil {
		return err
	}
	if uc.cache != nil {
		if err := uc.cache.Del(ctx, cacheKey(it.ID)); err != nil {
			uc.logger.Warn("item cache invalidation failed", zap.String("item_id", it.ID), zap.Error(err))
		}
	}
	uc.syncToElastic(ctx, it)
	return nil
}

func (uc *itemUseCase) checkUnique(ctx context.Context, it *model.Item) error {
	if it.SKU != nil {
		unique, err := uc.repo.IsSKUUnique(ctx, *it.SKU, it.ID)
		if err != nil {
			return err
		}
		if !unique {
			return fmt.Errorf("sku %q: %w", *it.SKU, model.ErrDuplicateKey)
		}
	}
	if it.Barcode != nil {
		unique, err := uc.repo.IsBarcodeUnique(ctx, *it.Barcode, it.ID)
		if err != nil {
			return err
		}
		if !unique {
			return fmt.Errorf("barcode %q: %w", *it.Barcode, model.ErrDuplicateKey)
		}
	}
	return nil
}

func (uc *itemUseCase) syncToElastic(ctx context.Context, it *model.Item) {
	if uc.es == nil {
		return
	}
	mapping := `{
		"mappings": {
			"properties": {
				"name": { "type": "text" },
				"description": { "type": "text" },
				"category": { "type": "keyword" },
				"sku": { "type": "keyword" },
				"barcode": { "type": "keyword" },
				"isActive": { "type": "boolean" },
				"createdAt": { "type": "date" }
			}
		}
	}`
	if err := uc.es.CreateIndex(ctx, indexName, mapping); err != nil {
		uc.logger.Warn("failed to ensure item index", zap.Error(err))
	}
	if err := uc.es.Index(ctx, indexName, it.ID, it); err != nil {
		uc.logger.Error("failed to index item", zap.String("item_id", it.ID), zap.Error(err))
	}
}

func (uc *itemUseCase) searchElastic(ctx context.Context, f *dto.ItemFilters) ([]model.Item, int, error) {
	must := []map[string]interface{}{
		{
			"query_string": map[string]interface{}{
				"query":  fmt.Sprintf("*%s*", f.SearchQuery),
				"fields": []string{"name^3", "sku", "barcode", "description"},
			},
		},
	}
	if f.Category != "" {
		must = append(must, map[string]interface{}{"term": map[string]interface{}{"category": f.Category}})
	}
	if f.IsActive != nil {
		must = append(must, map[string]interface{}{"term": map[string]interface{}{"isActive": *f.IsActive}})
	}
	q := map[string]interface{}{
		"query": map[string]interface{}{"bool": map[string]interface{}{"must": must}},
	}
	if f.PageSize > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		q["from"] = (page - 1) * f.PageSize
		q["size"] = f.PageSize
	}

	res, err := uc.es.Search(ctx, indexName, q)
	if err != nil {
		return nil, 0, err
	}
	items := make([]model.Item, 0, len(res.Hits.Hits))
	for _, hit := range res.Hits.Hits {
		var it model.Item
		if err := json.Unmarshal(hit.Source, &it); err == nil {
			items = append(items, it)
		}
	}
	return items, res.Hits.Total.Value, nil
}

func cacheKey(id string) string {
	return "items:" + id
}

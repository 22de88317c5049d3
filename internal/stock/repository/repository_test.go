package repository

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/reliefhub/stock-service/internal/model"
	"github.com/reliefhub/stock-service/internal/stock/dto"
	"go.mongodb.org/mongo-driver/bson"
)

func sampleEntry() *model.StockEntry {
	at := time.Date(2026, 5, 1, 8, 30, 0, 0, time.UTC)
	expiry := at.AddDate(0, 6, 0)
	return &model.StockEntry{
		ID:       "entry-1",
		Item:     model.ItemSnapshot{Name: "Tarpaulin", Category: model.CategoryShelter, SKU: "SHL-TARP"},
		Location: model.LocationSnapshot{WarehouseID: "wh-9", Name: "Port depot", Coordinates: model.LatLng{Lat: 10.3, Lng: 123.9}},
		Inventory: model.Inventory{
			CurrentQuantity: 80, Unit: "sheets", Threshold: 20, ReservedQuantity: 5, AvailableQuantity: 75,
		},
		Status:      model.StatusInStock,
		Batches:     []model.Batch{{BatchNumber: "T-1", Quantity: 80, ExpiryDate: &expiry, ReceivedDate: at, Condition: model.ConditionGood}},
		Tags:        []string{"typhoon"},
		CreatedAt:   at,
		LastUpdated: at,
	}
}

func TestEntryRowRoundTrip(t *testing.T) {
	in := sampleEntry()
	row := toEntryRow(in)
	if row.ItemSKU != "SHL-TARP" || row.WarehouseID != "wh-9" {
		t.Fatalf("key columns = %q, %q", row.ItemSKU, row.WarehouseID)
	}

	// JSONB columns come back from the driver as []byte or string.
	back := row
	itemVal, err := row.Item.Value()
	if err != nil {
		t.Fatal(err)
	}
	if err := back.Item.Scan([]byte(itemVal.(string))); err != nil {
		t.Fatal(err)
	}
	batchVal, err := row.Batches.Value()
	if err != nil {
		t.Fatal(err)
	}
	back.Batches = jsonColumn[[]model.Batch]{}
	if err := back.Batches.Scan(batchVal.(string)); err != nil {
		t.Fatal(err)
	}

	out := back.toModel()
	if out.Item != in.Item || out.Location != in.Location || out.Inventory != in.Inventory {
		t.Errorf("snapshot mismatch: %+v", out)
	}
	if len(out.Batches) != 1 || !out.Batches[0].ExpiryDate.Equal(*in.Batches[0].ExpiryDate) {
		t.Errorf("batches = %+v", out.Batches)
	}
	if out.Actions == nil || out.AuditLog == nil {
		t.Error("history lists should be empty, not nil")
	}
}

func TestJSONColumnScanNull(t *testing.T) {
	col := jsonColumn[[]string]{V: []string{"stale"}}
	if err := col.Scan(nil); err != nil {
		t.Fatal(err)
	}
	if col.V != nil {
		t.Errorf("V = %v, want nil", col.V)
	}
	if err := col.Scan(42); err == nil {
		t.Error("expected error for unsupported source")
	}
}

func TestBuildEntryWhere(t *testing.T) {
	tests := []struct {
		name      string
		filters   dto.EntryFilters
		wantWhere string
		wantArgs  int
	}{
		{"none", dto.EntryFilters{}, "", 0},
		{"sku and warehouse", dto.EntryFilters{SKU: "A", WarehouseID: "W"}, " WHERE item_sku = :item_sku AND warehouse_id = :warehouse_id", 2},
		{"status wins over low stock", dto.EntryFilters{Status: model.StatusExpired, LowStock: true}, " WHERE status = :status", 1},
		{"low stock", dto.EntryFilters{LowStock: true}, " WHERE status IN (:low_0, :low_1, :low_2)", 3},
		{"tag", dto.EntryFilters{Tag: "flood"}, " WHERE tags @> jsonb_build_array(CAST(:tag AS text))", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args := buildEntryWhere(&tt.filters)
			if where != tt.wantWhere {
				t.Errorf("where = %q, want %q", where, tt.wantWhere)
			}
			if len(args) != tt.wantArgs {
				t.Errorf("args = %v", args)
			}
		})
	}
}

func TestEntryFilter(t *testing.T) {
	got := entryFilter(&dto.EntryFilters{WarehouseID: "W", Tag: "flood", LowStock: true})
	want := bson.M{
		"location.warehouseId": "W",
		"tags":                 "flood",
		"status":               bson.M{"$in": dto.LowStockStatuses},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("filter = %v, want %v", got, want)
	}
}

func TestExpiryFilter(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f := expiryFilter(now)
	if f["status"] != model.StatusInStock {
		t.Errorf("status = %v", f["status"])
	}
	if !reflect.DeepEqual(f["batches.expiryDate"], bson.M{"$lt": now}) {
		t.Errorf("expiry clause = %v", f["batches.expiryDate"])
	}
}

func TestSaveUpdate(t *testing.T) {
	e := sampleEntry()
	e.Tags = nil

	plain := saveUpdate(e, nil, nil)
	if _, ok := plain["$push"]; ok {
		t.Error("no $push expected without history")
	}
	set := plain["$set"].(bson.M)
	if tags, ok := set["tags"].([]string); !ok || tags == nil {
		t.Errorf("tags = %#v, want empty slice", set["tags"])
	}
	for _, k := range []string{"actions", "auditLog", "createdAt", "_id"} {
		if _, ok := set[k]; ok {
			t.Errorf("$set must not touch %s", k)
		}
	}

	withHistory := saveUpdate(e, []model.Action{{ID: "a"}}, []model.AuditEntry{{Change: "c"}})
	push := withHistory["$push"].(bson.M)
	if _, ok := push["actions"]; !ok {
		t.Error("missing actions push")
	}
	if _, ok := push["auditLog"]; !ok {
		t.Error("missing auditLog push")
	}
}

func TestSchemaDeclaresUniqueKey(t *testing.T) {
	if !strings.Contains(stockSchema[0], "UNIQUE (item_sku, warehouse_id)") {
		t.Error("stock_entries must be unique on (item_sku, warehouse_id)")
	}
}

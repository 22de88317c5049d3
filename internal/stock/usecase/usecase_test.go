package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/reliefhub/stock-service/internal/auth"
	"github.com/reliefhub/stock-service/internal/model"
	"github.com/reliefhub/stock-service/internal/stock"
	"github.com/reliefhub/stock-service/internal/stock/dto"
	"github.com/reliefhub/stock-service/internal/stock/usecase"
	"github.com/reliefhub/stock-service/pkg/logger"
)

type fakeRepo struct {
	mu       sync.Mutex
	entries  map[string]model.StockEntry
	failSave map[string]error
	saves    int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{entries: map[string]model.StockEntry{}, failSave: map[string]error{}}
}

func clone(e model.StockEntry) model.StockEntry {
	e.Batches = append([]model.Batch{}, e.Batches...)
	e.Actions = append([]model.Action{}, e.Actions...)
	e.AuditLog = append([]model.AuditEntry{}, e.AuditLog...)
	e.Tags = append([]string{}, e.Tags...)
	return e
}

func (r *fakeRepo) keyTaken(e *model.StockEntry) bool {
	for id, other := range r.entries {
		if id != e.ID && other.Key() == e.Key() {
			return true
		}
	}
	return false
}

func (r *fakeRepo) Create(_ context.Context, e *model.StockEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.keyTaken(e) {
		return model.ErrDuplicateKey
	}
	r.entries[e.ID] = clone(*e)
	return nil
}

func (r *fakeRepo) FindByID(_ context.Context, id string) (*model.StockEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, nil
	}
	e = clone(e)
	return &e, nil
}

func (r *fakeRepo) FindByKey(_ context.Context, sku, warehouseID string) (*model.StockEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.Item.SKU == sku && e.Location.WarehouseID == warehouseID {
			e = clone(e)
			return &e, nil
		}
	}
	return nil, nil
}

func (r *fakeRepo) FindAll(_ context.Context, f *dto.EntryFilters) ([]model.StockEntry, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.StockEntry
	for _, e := range r.entries {
		if f.SKU != "" && e.Item.SKU != f.SKU {
			continue
		}
		out = append(out, clone(e))
	}
	return out, len(out), nil
}

func (r *fakeRepo) Save(_ context.Context, e *model.StockEntry, actions []model.Action, audit []model.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failSave[e.ID]; err != nil {
		delete(r.failSave, e.ID)
		return err
	}
	stored, ok := r.entries[e.ID]
	if !ok {
		return model.ErrNotFound
	}
	if r.keyTaken(e) {
		return model.ErrDuplicateKey
	}
	next := clone(*e)
	next.Actions = append(stored.Actions, actions...)
	next.AuditLog = append(stored.AuditLog, audit...)
	r.entries[e.ID] = next
	r.saves++
	return nil
}

func (r *fakeRepo) PushAction(_ context.Context, id string, a model.Action) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return model.ErrNotFound
	}
	e.Actions = append(e.Actions, a)
	r.entries[id] = e
	return nil
}

func (r *fakeRepo) PushAudit(_ context.Context, id string, a model.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return model.ErrNotFound
	}
	e.AuditLog = append(e.AuditLog, a)
	r.entries[id] = e
	return nil
}

func (r *fakeRepo) FindExpiryCandidates(_ context.Context, now time.Time, limit int) ([]model.StockEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.StockEntry
	for _, e := range r.entries {
		if e.Status == model.StatusInStock && e.Inventory.CurrentQuantity > 0 && model.HasExpiredBatch(e.Batches, now) {
			out = append(out, clone(e))
		}
	}
	return out, nil
}

var _ stock.Repository = (*fakeRepo)(nil)

type fakeLocker struct {
	mu   sync.Mutex
	held map[string]string
	busy bool
}

func newFakeLocker() *fakeLocker { return &fakeLocker{held: map[string]string{}} }

func (l *fakeLocker) AcquireLock(_ context.Context, key, value string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.busy {
		return false, nil
	}
	if _, ok := l.held[key]; ok {
		return false, nil
	}
	l.held[key] = value
	return true, nil
}

func (l *fakeLocker) ReleaseLock(_ context.Context, key, value string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == value {
		delete(l.held, key)
	}
	return nil
}

type fakeItems map[string]*model.Item

func (f fakeItems) GetItem(_ context.Context, id string) (*model.Item, error) {
	if it, ok := f[id]; ok {
		copied := *it
		return &copied, nil
	}
	return nil, model.ErrNotFound
}

type fakeLocations map[string]*model.Location

func (f fakeLocations) GetLocation(_ context.Context, id string) (*model.Location, error) {
	if loc, ok := f[id]; ok {
		copied := *loc
		return &copied, nil
	}
	return nil, model.ErrNotFound
}

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

type env struct {
	uc     stock.UseCase
	repo   *fakeRepo
	locker *fakeLocker
	clock  *clock
	items  fakeItems
	locs   fakeLocations
}

func newEnv(t *testing.T, allowOver bool) *env {
	t.Helper()
	e := &env{
		repo:   newFakeRepo(),
		locker: newFakeLocker(),
		clock:  &clock{t: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)},
		items:  fakeItems{},
		locs:   fakeLocations{},
	}
	e.uc = usecase.NewStockUseCase(e.repo, e.locker, e.items, e.locs, usecase.Options{
		AllowOverReservation: allowOver,
		Now:                  e.clock.Now,
	}, logger.NewNop())
	return e
}

func upsertInput(sku, warehouse string, current, reserved, threshold int) *dto.UpsertInput {
	return &dto.UpsertInput{
		Item: model.ItemSnapshot{Name: "Water purification tablets", Category: model.CategoryWater, SKU: sku},
		Location: model.LocationSnapshot{
			WarehouseID: warehouse,
			Name:        "Central depot",
			Coordinates: model.LatLng{Lat: 14.6, Lng: 121.0},
		},
		Unit:             "boxes",
		CurrentQuantity:  current,
		ReservedQuantity: reserved,
		Threshold:        threshold,
	}
}

func mustUpsert(t *testing.T, uc stock.UseCase, in *dto.UpsertInput) *model.StockEntry {
	t.Helper()
	entry, err := uc.Upsert(context.Background(), in)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	return entry
}

func TestUpsertScenarios(t *testing.T) {
	yesterday := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name      string
		current   int
		reserved  int
		threshold int
		batches   []model.Batch
		status    model.StockStatus
		available int
	}{
		{"depleted ignores reservation", 0, 30, 100, nil, model.StatusDepleted, 0},
		{"critical below a fifth", 15, 0, 100, nil, model.StatusCritical, 15},
		{"low stock", 50, 0, 100, nil, model.StatusLowStock, 50},
		{"expired batch", 150, 0, 100, []model.Batch{{BatchNumber: "B1", Quantity: 150, ExpiryDate: &yesterday}}, model.StatusExpired, 150},
		{"in stock", 150, 0, 100, nil, model.StatusInStock, 150},
		{"over reservation clamps", 10, 25, 0, nil, model.StatusInStock, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t, true)
			in := upsertInput("WTR-001", "wh-1", tt.current, tt.reserved, tt.threshold)
			in.Batches = tt.batches

			entry := mustUpsert(t, e.uc, in)
			if entry.Status != tt.status {
				t.Errorf("status = %s, want %s", entry.Status, tt.status)
			}
			if entry.Inventory.AvailableQuantity != tt.available {
				t.Errorf("available = %d, want %d", entry.Inventory.AvailableQuantity, tt.available)
			}
			if !entry.LastUpdated.Equal(e.clock.t) {
				t.Errorf("lastUpdated = %v, want %v", entry.LastUpdated, e.clock.t)
			}
			if len(entry.Actions) != 0 || len(entry.AuditLog) != 0 {
				t.Error("upsert must not append history")
			}
		})
	}
}

func TestUpsertIsIdempotent(t *testing.T) {
	e := newEnv(t, true)
	created := mustUpsert(t, e.uc, upsertInput("WTR-001", "wh-1", 40, 5, 100))

	in := upsertInput("WTR-001", "wh-1", 40, 5, 100)
	in.ID = created.ID
	first := mustUpsert(t, e.uc, in)
	e.clock.t = e.clock.t.Add(time.Minute)
	second := mustUpsert(t, e.uc, in)

	if first.Status != second.Status || first.Inventory.AvailableQuantity != second.Inventory.AvailableQuantity {
		t.Fatalf("repeat upsert diverged: %+v vs %+v", first.Inventory, second.Inventory)
	}
	if !second.LastUpdated.After(first.LastUpdated) {
		t.Error("lastUpdated not advanced")
	}
}

func TestUpsertReturnsToInStockAfterRestock(t *testing.T) {
	e := newEnv(t, true)
	entry := mustUpsert(t, e.uc, upsertInput("WTR-001", "wh-1", 0, 0, 10))
	if entry.Status != model.StatusDepleted {
		t.Fatalf("status = %s", entry.Status)
	}
	in := upsertInput("WTR-001", "wh-1", 25, 0, 10)
	in.ID = entry.ID
	if got := mustUpsert(t, e.uc, in); got.Status != model.StatusInStock {
		t.Errorf("status = %s, want In-Stock", got.Status)
	}
}

func TestUpsertErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*dto.UpsertInput)
		want   error
	}{
		{"negative current", func(in *dto.UpsertInput) { in.CurrentQuantity = -1 }, model.ErrInvalidQuantity},
		{"negative reserved", func(in *dto.UpsertInput) { in.ReservedQuantity = -3 }, model.ErrInvalidQuantity},
		{"negative threshold", func(in *dto.UpsertInput) { in.Threshold = -10 }, model.ErrInvalidQuantity},
		{"unknown id", func(in *dto.UpsertInput) { in.ID = "missing" }, model.ErrNotFound},
		{"missing sku", func(in *dto.UpsertInput) { in.Item.SKU = " " }, model.ErrInvalidItem},
		{"bad coordinates", func(in *dto.UpsertInput) { in.Location.Coordinates.Lat = 120 }, model.ErrInvalidCoordinates},
		{"negative batch", func(in *dto.UpsertInput) {
			in.Batches = []model.Batch{{BatchNumber: "B1", Quantity: -2}}
		}, model.ErrInvalidQuantity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t, true)
			in := upsertInput("WTR-001", "wh-1", 10, 0, 5)
			tt.mutate(in)
			if _, err := e.uc.Upsert(context.Background(), in); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if len(e.repo.entries) != 0 {
				t.Error("nothing should be committed on failure")
			}
		})
	}
}

func TestUpsertNormalizesCategory(t *testing.T) {
	e := newEnv(t, true)
	in := upsertInput("MED-001", "wh-1", 10, 0, 5)
	in.Item.Category = " Medical "

	entry, err := e.uc.Upsert(context.Background(), in)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if entry.Item.Category != model.CategoryMedical {
		t.Errorf("category = %q, want %q", entry.Item.Category, model.CategoryMedical)
	}

	in = upsertInput("MED-002", "wh-1", 10, 0, 5)
	in.Item.Category = "Toys"
	if _, err := e.uc.Upsert(context.Background(), in); !errors.Is(err, model.ErrInvalidItem) {
		t.Errorf("err = %v, want ErrInvalidItem", err)
	}
}

func TestUpsertDuplicateKey(t *testing.T) {
	e := newEnv(t, true)
	mustUpsert(t, e.uc, upsertInput("WTR-001", "wh-1", 10, 0, 5))

	if _, err := e.uc.Upsert(context.Background(), upsertInput("WTR-001", "wh-1", 99, 0, 5)); !errors.Is(err, model.ErrDuplicateKey) {
		t.Fatalf("err = %v, want ErrDuplicateKey", err)
	}

	other := mustUpsert(t, e.uc, upsertInput("WTR-001", "wh-2", 10, 0, 5))
	moved := upsertInput("WTR-001", "wh-1", 10, 0, 5)
	moved.ID = other.ID
	if _, err := e.uc.Upsert(context.Background(), moved); !errors.Is(err, model.ErrDuplicateKey) {
		t.Fatalf("re-keying onto an existing pair: err = %v, want ErrDuplicateKey", err)
	}
}

func TestOverReservationFlag(t *testing.T) {
	t.Run("permitted by default", func(t *testing.T) {
		e := newEnv(t, true)
		entry := mustUpsert(t, e.uc, upsertInput("WTR-001", "wh-1", 10, 0, 5))
		got, err := e.uc.Reserve(context.Background(), &dto.ReserveInput{EntryID: entry.ID, Delta: 25})
		if err != nil {
			t.Fatalf("Reserve: %v", err)
		}
		if got.Inventory.ReservedQuantity != 25 || got.Inventory.AvailableQuantity != 0 {
			t.Errorf("inventory = %+v", got.Inventory)
		}
	})

	t.Run("strict mode rejects", func(t *testing.T) {
		e := newEnv(t, false)
		if _, err := e.uc.Upsert(context.Background(), upsertInput("WTR-001", "wh-1", 10, 11, 5)); !errors.Is(err, model.ErrOverReservation) {
			t.Fatalf("Upsert err = %v, want ErrOverReservation", err)
		}
		entry := mustUpsert(t, e.uc, upsertInput("WTR-001", "wh-1", 10, 4, 5))
		if _, err := e.uc.Reserve(context.Background(), &dto.ReserveInput{EntryID: entry.ID, Delta: 7}); !errors.Is(err, model.ErrOverReservation) {
			t.Fatalf("Reserve err = %v, want ErrOverReservation", err)
		}
		if e.repo.entries[entry.ID].Inventory.ReservedQuantity != 4 {
			t.Error("rejected reservation was stored")
		}
	})
}

func TestReserveReleaseBelowZero(t *testing.T) {
	e := newEnv(t, true)
	entry := mustUpsert(t, e.uc, upsertInput("WTR-001", "wh-1", 10, 2, 5))
	if _, err := e.uc.Reserve(context.Background(), &dto.ReserveInput{EntryID: entry.ID, Delta: -3}); !errors.Is(err, model.ErrInvalidQuantity) {
		t.Fatalf("err = %v, want ErrInvalidQuantity", err)
	}
}

func TestAdjust(t *testing.T) {
	e := newEnv(t, true)
	entry := mustUpsert(t, e.uc, upsertInput("WTR-001", "wh-1", 120, 0, 100))
	ctx := auth.WithUserID(context.Background(), "officer-7")

	got, err := e.uc.Adjust(ctx, &dto.AdjustInput{EntryID: entry.ID, Type: model.ActionDispatch, Quantity: 100, Notes: "convoy 12"})
	if err != nil {
		t.Fatalf("Adjust: %v", err)
	}
	if got.Inventory.CurrentQuantity != 20 || got.Status != model.StatusLowStock {
		t.Fatalf("after dispatch: %+v %s", got.Inventory, got.Status)
	}

	stored := e.repo.entries[entry.ID]
	if len(stored.Actions) != 1 {
		t.Fatalf("actions = %d, want 1", len(stored.Actions))
	}
	a := stored.Actions[0]
	if a.Type != model.ActionDispatch || a.Status != model.ActionCompleted || a.TriggeredBy != "officer-7" || a.Notes != "convoy 12" {
		t.Errorf("action = %+v", a)
	}
	wantAudit := []string{
		"currentQuantity changed from 120 to 20 (convoy 12)",
		"status changed from In-Stock to Low Stock (convoy 12)",
	}
	if len(stored.AuditLog) != len(wantAudit) {
		t.Fatalf("audit = %+v", stored.AuditLog)
	}
	for i, want := range wantAudit {
		if stored.AuditLog[i].Change != want || stored.AuditLog[i].UserID != "officer-7" {
			t.Errorf("audit[%d] = %+v, want %q", i, stored.AuditLog[i], want)
		}
	}
}

func TestAdjustRejects(t *testing.T) {
	tests := []struct {
		name  string
		input dto.AdjustInput
		want  error
	}{
		{"dispatch more than on hand", dto.AdjustInput{Type: model.ActionDispatch, Quantity: 11}, model.ErrInvalidQuantity},
		{"negative adjustment below zero", dto.AdjustInput{Type: model.ActionAdjustment, Quantity: -11}, model.ErrInvalidQuantity},
		{"zero restock", dto.AdjustInput{Type: model.ActionRestock, Quantity: 0}, model.ErrInvalidQuantity},
		{"transfer via adjust", dto.AdjustInput{Type: model.ActionTransfer, Quantity: 1}, model.ErrInvalidAction},
		{"unknown type", dto.AdjustInput{Type: "Donate", Quantity: 1}, model.ErrInvalidAction},
		{"unknown entry", dto.AdjustInput{EntryID: "missing", Type: model.ActionRestock, Quantity: 1}, model.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t, true)
			entry := mustUpsert(t, e.uc, upsertInput("WTR-001", "wh-1", 10, 0, 5))
			in := tt.input
			if in.EntryID == "" {
				in.EntryID = entry.ID
			}
			if _, err := e.uc.Adjust(context.Background(), &in); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			stored := e.repo.entries[entry.ID]
			if stored.Inventory.CurrentQuantity != 10 || len(stored.Actions) != 0 {
				t.Error("rejected adjustment changed the entry")
			}
		})
	}
}

func TestAdjustLockBusy(t *testing.T) {
	e := newEnv(t, true)
	entry := mustUpsert(t, e.uc, upsertInput("WTR-001", "wh-1", 10, 0, 5))
	e.locker.busy = true

	_, err := e.uc.Adjust(context.Background(), &dto.AdjustInput{EntryID: entry.ID, Type: model.ActionRestock, Quantity: 5})
	if !errors.Is(err, model.ErrLockBusy) {
		t.Fatalf("err = %v, want ErrLockBusy", err)
	}
}

func TestAdjustReleasesLock(t *testing.T) {
	e := newEnv(t, true)
	entry := mustUpsert(t, e.uc, upsertInput("WTR-001", "wh-1", 10, 0, 5))
	for i := 0; i < 3; i++ {
		if _, err := e.uc.Adjust(context.Background(), &dto.AdjustInput{EntryID: entry.ID, Type: model.ActionRestock, Quantity: 1}); err != nil {
			t.Fatalf("Adjust %d: %v", i, err)
		}
	}
	if len(e.locker.held) != 0 {
		t.Errorf("locks still held: %v", e.locker.held)
	}
	if got := e.repo.entries[entry.ID].Inventory.CurrentQuantity; got != 13 {
		t.Errorf("current = %d, want 13", got)
	}
}

func TestTransfer(t *testing.T) {
	e := newEnv(t, true)
	src := mustUpsert(t, e.uc, upsertInput("WTR-001", "wh-1", 50, 0, 10))
	dst := mustUpsert(t, e.uc, upsertInput("WTR-001", "wh-2", 5, 0, 10))

	res, err := e.uc.Transfer(context.Background(), &dto.TransferInput{FromEntryID: src.ID, ToEntryID: dst.ID, Quantity: 20})
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if res.Source.Inventory.CurrentQuantity != 30 || res.Destination.Inventory.CurrentQuantity != 25 {
		t.Fatalf("quantities = %d, %d", res.Source.Inventory.CurrentQuantity, res.Destination.Inventory.CurrentQuantity)
	}
	if res.Destination.Status != model.StatusInStock {
		t.Errorf("destination status = %s", res.Destination.Status)
	}
	for _, id := range []string{src.ID, dst.ID} {
		stored := e.repo.entries[id]
		if len(stored.Actions) != 1 || stored.Actions[0].Type != model.ActionTransfer {
			t.Errorf("%s actions = %+v", id, stored.Actions)
		}
		if len(stored.AuditLog) == 0 || stored.AuditLog[0].Change != "transferred from wh-1 to wh-2 (20 boxes)" {
			t.Errorf("%s audit = %+v", id, stored.AuditLog)
		}
		if stored.AuditLog[0].UserID != auth.SystemActor {
			t.Errorf("actor = %q", stored.AuditLog[0].UserID)
		}
	}
}

func TestTransferRestoresSourceWhenDestinationFails(t *testing.T) {
	e := newEnv(t, true)
	src := mustUpsert(t, e.uc, upsertInput("WTR-001", "wh-1", 50, 0, 10))
	dst := mustUpsert(t, e.uc, upsertInput("WTR-001", "wh-2", 5, 0, 10))
	boom := errors.New("write conflict")
	e.repo.failSave[dst.ID] = boom

	_, err := e.uc.Transfer(context.Background(), &dto.TransferInput{FromEntryID: src.ID, ToEntryID: dst.ID, Quantity: 20})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}

	stored := e.repo.entries[src.ID]
	if stored.Inventory.CurrentQuantity != 50 || stored.Status != model.StatusInStock {
		t.Fatalf("source not restored: %+v %s", stored.Inventory, stored.Status)
	}
	if len(stored.Actions) != 2 || stored.Actions[1].Status != model.ActionCancelled {
		t.Errorf("source actions = %+v", stored.Actions)
	}
	if got := e.repo.entries[dst.ID].Inventory.CurrentQuantity; got != 5 {
		t.Errorf("destination = %d, want 5", got)
	}
}

func TestTransferRejects(t *testing.T) {
	e := newEnv(t, true)
	src := mustUpsert(t, e.uc, upsertInput("WTR-001", "wh-1", 5, 0, 1))
	dst := mustUpsert(t, e.uc, upsertInput("WTR-001", "wh-2", 5, 0, 1))
	other := mustUpsert(t, e.uc, upsertInput("MED-002", "wh-2", 5, 0, 1))

	tests := []struct {
		name  string
		input dto.TransferInput
		want  error
	}{
		{"more than on hand", dto.TransferInput{FromEntryID: src.ID, ToEntryID: dst.ID, Quantity: 6}, model.ErrInvalidQuantity},
		{"zero quantity", dto.TransferInput{FromEntryID: src.ID, ToEntryID: dst.ID}, model.ErrInvalidQuantity},
		{"same entry", dto.TransferInput{FromEntryID: src.ID, ToEntryID: src.ID, Quantity: 1}, model.ErrInvalidAction},
		{"different item", dto.TransferInput{FromEntryID: src.ID, ToEntryID: other.ID, Quantity: 1}, model.ErrInvalidAction},
		{"missing destination", dto.TransferInput{FromEntryID: src.ID, ToEntryID: "missing", Quantity: 1}, model.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tt.input
			if _, err := e.uc.Transfer(context.Background(), &in); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestAppendActionAndAudit(t *testing.T) {
	e := newEnv(t, true)
	entry := mustUpsert(t, e.uc, upsertInput("WTR-001", "wh-1", 10, 0, 5))
	ctx := context.Background()

	if err := e.uc.AppendAction(ctx, &dto.ActionInput{EntryID: entry.ID, Type: model.ActionRestock, TriggeredBy: "ops", Status: model.ActionPending}); err != nil {
		t.Fatalf("AppendAction: %v", err)
	}
	if err := e.uc.AppendAction(ctx, &dto.ActionInput{EntryID: entry.ID, Type: model.ActionDispatch, Status: model.ActionCancelled, Notes: "road closed"}); err != nil {
		t.Fatalf("AppendAction: %v", err)
	}
	if err := e.uc.AppendAuditEntry(ctx, entry.ID, "auditor", "counted by hand"); err != nil {
		t.Fatalf("AppendAuditEntry: %v", err)
	}
	if err := e.uc.RecordChange(ctx, entry.ID, "", model.ChangeEvent{Kind: model.ChangeThreshold, From: "5", To: "8"}); err != nil {
		t.Fatalf("RecordChange: %v", err)
	}

	stored := e.repo.entries[entry.ID]
	if len(stored.Actions) != 2 || stored.Actions[0].Type != model.ActionRestock || stored.Actions[1].TriggeredBy != auth.SystemActor {
		t.Errorf("actions = %+v", stored.Actions)
	}
	if stored.Inventory.CurrentQuantity != 10 {
		t.Error("appending an action must not touch quantities")
	}
	if len(stored.AuditLog) != 2 || stored.AuditLog[0].Change != "counted by hand" || stored.AuditLog[1].Change != "threshold changed from 5 to 8" {
		t.Errorf("audit = %+v", stored.AuditLog)
	}

	if err := e.uc.AppendAction(ctx, &dto.ActionInput{EntryID: "missing", Type: model.ActionRestock, Status: model.ActionPending}); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("missing entry: err = %v", err)
	}
	if err := e.uc.AppendAuditEntry(ctx, "missing", "u", "x"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("missing entry: err = %v", err)
	}
	if err := e.uc.AppendAction(ctx, &dto.ActionInput{EntryID: entry.ID, Type: model.ActionRestock, Status: "Done"}); !errors.Is(err, model.ErrInvalidAction) {
		t.Errorf("bad status: err = %v", err)
	}
}

func TestRefreshExpired(t *testing.T) {
	e := newEnv(t, true)
	expiry := e.clock.t.Add(48 * time.Hour)
	in := upsertInput("WTR-001", "wh-1", 200, 0, 100)
	in.Batches = []model.Batch{{BatchNumber: "LOT-9", Quantity: 200, ExpiryDate: &expiry}}
	entry := mustUpsert(t, e.uc, in)
	low := mustUpsert(t, e.uc, func() *dto.UpsertInput {
		in := upsertInput("WTR-001", "wh-2", 50, 0, 100)
		in.Batches = []model.Batch{{BatchNumber: "LOT-10", Quantity: 50, ExpiryDate: &expiry}}
		return in
	}())
	if entry.Status != model.StatusInStock {
		t.Fatalf("status = %s", entry.Status)
	}

	n, err := e.uc.RefreshExpired(context.Background(), e.clock.t)
	if err != nil || n != 0 {
		t.Fatalf("before expiry: n=%d err=%v", n, err)
	}

	later := expiry.Add(time.Hour)
	n, err = e.uc.RefreshExpired(context.Background(), later)
	if err != nil {
		t.Fatalf("RefreshExpired: %v", err)
	}
	if n != 1 {
		t.Fatalf("refreshed = %d, want 1", n)
	}
	stored := e.repo.entries[entry.ID]
	if stored.Status != model.StatusExpired {
		t.Errorf("status = %s, want Expired", stored.Status)
	}
	if len(stored.AuditLog) != 1 || stored.AuditLog[0].Change != "status changed from In-Stock to Expired (expiry sweep)" {
		t.Errorf("audit = %+v", stored.AuditLog)
	}
	if e.repo.entries[low.ID].Status != model.StatusLowStock {
		t.Error("low stock outranks expiry")
	}
}

func TestStockFromCatalog(t *testing.T) {
	e := newEnv(t, true)
	sku := "MED-KIT-01"
	e.items["item-1"] = &model.Item{
		BaseModel:     model.BaseModel{ID: "item-1"},
		Name:          "Trauma kit",
		Category:      model.CategoryMedical,
		UnitOfMeasure: "kits",
		SKU:           &sku,
		IsActive:      true,
	}
	e.locs["loc-1"] = &model.Location{
		BaseModel: model.BaseModel{ID: "loc-1"},
		Name:      "Field hospital",
		Address:   model.Address{Street: "1 Camp Rd", City: "Tacloban", Country: "PH"},
		Point:     model.NewGeoPoint(125.0, 11.2),
		Contact:   &model.Contact{Name: "Dr. Reyes", Phone: "+63-555"},
		IsActive:  true,
	}

	entry, err := e.uc.StockFromCatalog(context.Background(), &dto.CatalogStockInput{ItemID: "item-1", LocationID: "loc-1", CurrentQuantity: 40, Threshold: 10})
	if err != nil {
		t.Fatalf("StockFromCatalog: %v", err)
	}
	if entry.Item.SKU != sku || entry.Item.Name != "Trauma kit" || entry.Inventory.Unit != "kits" {
		t.Errorf("item snapshot = %+v unit=%q", entry.Item, entry.Inventory.Unit)
	}
	if entry.Location.WarehouseID != "loc-1" || entry.Location.Manager.Name != "Dr. Reyes" || entry.Location.Coordinates.Lat != 11.2 {
		t.Errorf("location snapshot = %+v", entry.Location)
	}

	e.items["item-1"].Name = "Trauma kit v2"
	got, err := e.uc.GetEntry(context.Background(), entry.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Item.Name != "Trauma kit" {
		t.Error("snapshot followed the catalog edit")
	}

	if _, err := e.uc.StockFromCatalog(context.Background(), &dto.CatalogStockInput{ItemID: "item-1", LocationID: "loc-1"}); !errors.Is(err, model.ErrDuplicateKey) {
		t.Errorf("second stocking: err = %v, want ErrDuplicateKey", err)
	}

	e.items["item-1"].IsActive = false
	if _, err := e.uc.StockFromCatalog(context.Background(), &dto.CatalogStockInput{ItemID: "item-1", LocationID: "loc-1"}); !errors.Is(err, model.ErrInvalidItem) {
		t.Errorf("inactive item: err = %v, want ErrInvalidItem", err)
	}
}

func TestGetEntryNotFound(t *testing.T) {
	e := newEnv(t, true)
	if _, err := e.uc.GetEntry(context.Background(), "nope"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

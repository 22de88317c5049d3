package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/reliefhub/stock-service/internal/auth"
	"github.com/reliefhub/stock-service/internal/model"
	"github.com/reliefhub/stock-service/internal/stock"
	"github.com/reliefhub/stock-service/internal/stock/dto"
	"github.com/reliefhub/stock-service/pkg/logger"
	"go.uber.org/zap"
)

const (
	lockAttempts   = 3
	lockRetryDelay = 100 * time.Millisecond
	sweepBatchSize = 200
	defaultLockTTL = 5 * time.Second
)

// Locker is a distributed mutex keyed by string; value identifies the holder.
type Locker interface {
	AcquireLock(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, value string) error
}

type ItemReader interface {
	GetItem(ctx context.Context, id string) (*model.Item, error)
}

type LocationReader interface {
	GetLocation(ctx context.Context, id string) (*model.Location, error)
}

type Options struct {
	// AllowOverReservation lets reservedQuantity exceed currentQuantity.
	AllowOverReservation bool
	LockTTL              time.Duration
	Now                  func() time.Time
}

type stockUseCase struct {
	repo      stock.Repository
	locker    Locker
	items     ItemReader
	locations LocationReader
	opts      Options
	logger    logger.ZapLogger
	now       func() time.Time
}

func NewStockUseCase(repo stock.Repository, locker Locker, items ItemReader, locations LocationReader, opts Options, log logger.ZapLogger) stock.UseCase {
	if opts.LockTTL <= 0 {
		opts.LockTTL = defaultLockTTL
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &stockUseCase{
		repo:      repo,
		locker:    locker,
		items:     items,
		locations: locations,
		opts:      opts,
		logger:    log,
		now:       now,
	}
}

func (uc *stockUseCase) Upsert(ctx context.Context, input *dto.UpsertInput) (*model.StockEntry, error) {
	in := normalizeUpsert(input, uc.now().UTC())
	if err := uc.validateUpsert(in); err != nil {
		return nil, err
	}
	if in.ID == "" {
		return uc.create(ctx, in)
	}

	var out *model.StockEntry
	err := uc.withLock(ctx, []string{in.ID}, func() error {
		entry, err := uc.load(ctx, in.ID)
		if err != nil {
			return err
		}
		if err := uc.checkKeyFree(ctx, in.Item.SKU, in.Location.WarehouseID, entry.ID); err != nil {
			return err
		}

		applyUpsert(entry, in)
		entry.Recompute(uc.now().UTC())
		if err := uc.repo.Save(ctx, entry, nil, nil); err != nil {
			return err
		}
		out = entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (uc *stockUseCase) create(ctx context.Context, in *dto.UpsertInput) (*model.StockEntry, error) {
	if err := uc.checkKeyFree(ctx, in.Item.SKU, in.Location.WarehouseID, ""); err != nil {
		return nil, err
	}

	now := uc.now().UTC()
	entry := &model.StockEntry{
		ID:        uuid.New().String(),
		Actions:   []model.Action{},
		AuditLog:  []model.AuditEntry{},
		CreatedAt: now,
	}
	applyUpsert(entry, in)
	entry.Recompute(now)

	if err := uc.repo.Create(ctx, entry); err != nil {
		return nil, err
	}
	uc.logger.Info("stock entry created",
		zap.String("entry_id", entry.ID),
		zap.String("sku", entry.Item.SKU),
		zap.String("warehouse_id", entry.Location.WarehouseID),
		zap.String("status", string(entry.Status)),
	)
	return entry, nil
}

func (uc *stockUseCase) StockFromCatalog(ctx context.Context, input *dto.CatalogStockInput) (*model.StockEntry, error) {
	it, err := uc.items.GetItem(ctx, input.ItemID)
	if err != nil {
		return nil, err
	}
	if !it.IsActive {
		return nil, fmt.Errorf("%w: item %s is inactive", model.ErrInvalidItem, it.ID)
	}
	loc, err := uc.locations.GetLocation(ctx, input.LocationID)
	if err != nil {
		return nil, err
	}
	if !loc.IsActive {
		return nil, fmt.Errorf("%w: location %s is inactive", model.ErrInvalidLocation, loc.ID)
	}

	unit := input.Unit
	if strings.TrimSpace(unit) == "" {
		unit = it.UnitOfMeasure
	}
	return uc.Upsert(ctx, &dto.UpsertInput{
		Item:             it.Snapshot(),
		Location:         loc.Snapshot(),
		Unit:             unit,
		CurrentQuantity:  input.CurrentQuantity,
		ReservedQuantity: input.ReservedQuantity,
		Threshold:        input.Threshold,
		Batches:          input.Batches,
		Tags:             input.Tags,
	})
}

func (uc *stockUseCase) Adjust(ctx context.Context, input *dto.AdjustInput) (*model.StockEntry, error) {
	delta, err := movementDelta(input.Type, input.Quantity)
	if err != nil {
		return nil, err
	}
	actor := auth.Actor(ctx, input.TriggeredBy)
	notes := strings.TrimSpace(input.Notes)

	var out *model.StockEntry
	err = uc.withLock(ctx, []string{input.EntryID}, func() error {
		entry, err := uc.load(ctx, input.EntryID)
		if err != nil {
			return err
		}
		before := *entry

		next := entry.Inventory.CurrentQuantity + delta
		if next < 0 {
			return fmt.Errorf("%w: %s of %d leaves %d on hand", model.ErrInvalidQuantity, input.Type, input.Quantity, next)
		}
		entry.Inventory.CurrentQuantity = next

		now := uc.now().UTC()
		entry.Recompute(now)
		action := newAction(input.Type, actor, now, model.ActionCompleted, notes)
		audit := renderAudit(model.DiffEntries(&before, entry, notes), actor, now)
		if err := uc.repo.Save(ctx, entry, []model.Action{action}, audit); err != nil {
			return err
		}
		entry.Actions = append(entry.Actions, action)
		entry.AuditLog = append(entry.AuditLog, audit...)
		out = entry
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("stock adjusted",
		zap.String("entry_id", out.ID),
		zap.String("type", string(input.Type)),
		zap.Int("delta", delta),
		zap.String("status", string(out.Status)),
	)
	return out, nil
}

func (uc *stockUseCase) Reserve(ctx context.Context, input *dto.ReserveInput) (*model.StockEntry, error) {
	if input.Delta == 0 {
		return nil, fmt.Errorf("%w: reservation delta must not be zero", model.ErrInvalidQuantity)
	}
	actor := auth.Actor(ctx, input.TriggeredBy)
	notes := strings.TrimSpace(input.Notes)

	var out *model.StockEntry
	err := uc.withLock(ctx, []string{input.EntryID}, func() error {
		entry, err := uc.load(ctx, input.EntryID)
		if err != nil {
			return err
		}
		before := *entry

		next := entry.Inventory.ReservedQuantity + input.Delta
		if next < 0 {
			return fmt.Errorf("%w: reservedQuantity would be %d", model.ErrInvalidQuantity, next)
		}
		if err := uc.checkReservation(entry.Inventory.CurrentQuantity, next); err != nil {
			return err
		}
		entry.Inventory.ReservedQuantity = next

		now := uc.now().UTC()
		entry.Recompute(now)
		audit := renderAudit(model.DiffEntries(&before, entry, notes), actor, now)
		if err := uc.repo.Save(ctx, entry, nil, audit); err != nil {
			return err
		}
		entry.AuditLog = append(entry.AuditLog, audit...)
		out = entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (uc *stockUseCase) Transfer(ctx context.Context, input *dto.TransferInput) (*dto.TransferResult, error) {
	if input.Quantity <= 0 {
		return nil, fmt.Errorf("%w: transfer quantity %d", model.ErrInvalidQuantity, input.Quantity)
	}
	if input.FromEntryID == "" || input.ToEntryID == "" || input.FromEntryID == input.ToEntryID {
		return nil, fmt.Errorf("%w: transfer needs two distinct entries", model.ErrInvalidAction)
	}
	actor := auth.Actor(ctx, input.TriggeredBy)
	notes := strings.TrimSpace(input.Notes)

	var result *dto.TransferResult
	err := uc.withLock(ctx, []string{input.FromEntryID, input.ToEntryID}, func() error {
		src, err := uc.load(ctx, input.FromEntryID)
		if err != nil {
			return err
		}
		dst, err := uc.load(ctx, input.ToEntryID)
		if err != nil {
			return err
		}
		if src.Item.SKU != dst.Item.SKU {
			return fmt.Errorf("%w: cannot move %s stock into an entry for %s", model.ErrInvalidAction, src.Item.SKU, dst.Item.SKU)
		}
		if src.Inventory.CurrentQuantity < input.Quantity {
			return fmt.Errorf("%w: %d on hand, %d requested", model.ErrInvalidQuantity, src.Inventory.CurrentQuantity, input.Quantity)
		}

		now := uc.now().UTC()
		srcBefore, dstBefore := *src, *dst
		move := model.ChangeEvent{
			Kind:   model.ChangeTransfer,
			From:   src.Location.WarehouseID,
			To:     dst.Location.WarehouseID,
			Reason: fmt.Sprintf("%d %s", input.Quantity, src.Inventory.Unit),
		}

		src.Inventory.CurrentQuantity -= input.Quantity
		src.Recompute(now)
		srcAction := newAction(model.ActionTransfer, actor, now, model.ActionCompleted,
			joinNotes(fmt.Sprintf("%d out to %s", input.Quantity, dst.Location.WarehouseID), notes))
		srcAudit := renderAudit(append([]model.ChangeEvent{move}, model.DiffEntries(&srcBefore, src, notes)...), actor, now)
		if err := uc.repo.Save(ctx, src, []model.Action{srcAction}, srcAudit); err != nil {
			return err
		}

		dst.Inventory.CurrentQuantity += input.Quantity
		dst.Recompute(now)
		dstAction := newAction(model.ActionTransfer, actor, now, model.ActionCompleted,
			joinNotes(fmt.Sprintf("%d in from %s", input.Quantity, src.Location.WarehouseID), notes))
		dstAudit := renderAudit(append([]model.ChangeEvent{move}, model.DiffEntries(&dstBefore, dst, notes)...), actor, now)
		if err := uc.repo.Save(ctx, dst, []model.Action{dstAction}, dstAudit); err != nil {
			uc.restoreSource(ctx, src, srcBefore.Inventory, dst.Location.WarehouseID, actor, err)
			return fmt.Errorf("transfer into %s: %w", dst.ID, err)
		}

		src.Actions = append(src.Actions, srcAction)
		src.AuditLog = append(src.AuditLog, srcAudit...)
		dst.Actions = append(dst.Actions, dstAction)
		dst.AuditLog = append(dst.AuditLog, dstAudit...)
		result = &dto.TransferResult{Source: src, Destination: dst}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("stock transferred",
		zap.String("from_entry_id", input.FromEntryID),
		zap.String("to_entry_id", input.ToEntryID),
		zap.Int("quantity", input.Quantity),
	)
	return result, nil
}

// restoreSource puts the source entry back after the destination write failed.
// There is no cross-entry transaction, so a failure here leaves the source debited.
func (uc *stockUseCase) restoreSource(ctx context.Context, src *model.StockEntry, inv model.Inventory, dstWarehouse, actor string, cause error) {
	ctx = context.WithoutCancel(ctx)
	debited := *src

	src.Inventory = inv
	now := uc.now().UTC()
	src.Recompute(now)
	action := newAction(model.ActionTransfer, actor, now, model.ActionCancelled,
		fmt.Sprintf("transfer to %s rolled back: %v", dstWarehouse, cause))
	audit := renderAudit(model.DiffEntries(&debited, src, "transfer rolled back"), actor, now)

	if err := uc.repo.Save(ctx, src, []model.Action{action}, audit); err != nil {
		uc.logger.Error("failed to restore transfer source",
			zap.String("entry_id", src.ID),
			zap.Int("current_quantity", debited.Inventory.CurrentQuantity),
			zap.NamedError("cause", cause),
			zap.Error(err),
		)
		return
	}
	uc.logger.Warn("transfer rolled back", zap.String("entry_id", src.ID), zap.Error(cause))
}

func (uc *stockUseCase) AppendAction(ctx context.Context, input *dto.ActionInput) error {
	if !input.Type.Valid() {
		return fmt.Errorf("%w: action type %q", model.ErrInvalidAction, input.Type)
	}
	if !input.Status.Valid() {
		return fmt.Errorf("%w: action status %q", model.ErrInvalidAction, input.Status)
	}
	action := newAction(input.Type, auth.Actor(ctx, input.TriggeredBy), uc.now().UTC(), input.Status, strings.TrimSpace(input.Notes))
	return uc.repo.PushAction(ctx, input.EntryID, action)
}

func (uc *stockUseCase) AppendAuditEntry(ctx context.Context, entryID, userID, change string) error {
	return uc.repo.PushAudit(ctx, entryID, model.AuditEntry{
		UserID:    auth.Actor(ctx, userID),
		Change:    change,
		Timestamp: uc.now().UTC(),
	})
}

func (uc *stockUseCase) RecordChange(ctx context.Context, entryID, userID string, change model.ChangeEvent) error {
	return uc.AppendAuditEntry(ctx, entryID, userID, change.Render())
}

func (uc *stockUseCase) GetEntry(ctx context.Context, id string) (*model.StockEntry, error) {
	return uc.load(ctx, id)
}

func (uc *stockUseCase) ListEntries(ctx context.Context, filters *dto.EntryFilters) ([]model.StockEntry, int, error) {
	if filters == nil {
		filters = &dto.EntryFilters{}
	}
	return uc.repo.FindAll(ctx, filters)
}

func (uc *stockUseCase) RefreshExpired(ctx context.Context, now time.Time) (int, error) {
	now = now.UTC()
	candidates, err := uc.repo.FindExpiryCandidates(ctx, now, sweepBatchSize)
	if err != nil {
		return 0, err
	}

	refreshed := 0
	for _, c := range candidates {
		changed, err := uc.refreshOne(ctx, c.ID, now)
		if err != nil {
			if errors.Is(err, model.ErrLockBusy) {
				uc.logger.Debug("entry busy, left for next sweep", zap.String("entry_id", c.ID))
				continue
			}
			return refreshed, err
		}
		if changed {
			refreshed++
		}
	}
	if refreshed > 0 {
		uc.logger.Info("expired stock reclassified", zap.Int("count", refreshed))
	}
	return refreshed, nil
}

func (uc *stockUseCase) refreshOne(ctx context.Context, id string, now time.Time) (bool, error) {
	changed := false
	err := uc.withLock(ctx, []string{id}, func() error {
		entry, err := uc.load(ctx, id)
		if err != nil {
			return err
		}
		before := entry.Status
		entry.Recompute(now)
		if entry.Status == before {
			return nil
		}
		audit := renderAudit([]model.ChangeEvent{{
			Kind:   model.ChangeStatus,
			From:   string(before),
			To:     string(entry.Status),
			Reason: "expiry sweep",
		}}, auth.SystemActor, now)
		if err := uc.repo.Save(ctx, entry, nil, audit); err != nil {
			return err
		}
		changed = true
		return nil
	})
	return changed, err
}

func (uc *stockUseCase) load(ctx context.Context, id string) (*model.StockEntry, error) {
	entry, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("stock entry %s: %w", id, model.ErrNotFound)
	}
	return entry, nil
}

func (uc *stockUseCase) checkKeyFree(ctx context.Context, sku, warehouseID, selfID string) error {
	existing, err := uc.repo.FindByKey(ctx, sku, warehouseID)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != selfID {
		return fmt.Errorf("stock entry for %s at %s: %w", sku, warehouseID, model.ErrDuplicateKey)
	}
	return nil
}

func (uc *stockUseCase) checkReservation(current, reserved int) error {
	if !uc.opts.AllowOverReservation && reserved > current {
		return fmt.Errorf("%w: %d reserved, %d on hand", model.ErrOverReservation, reserved, current)
	}
	return nil
}

func (uc *stockUseCase) validateUpsert(in *dto.UpsertInput) error {
	if err := model.ValidateQuantities(in.CurrentQuantity, in.ReservedQuantity, in.Threshold); err != nil {
		return err
	}
	if err := in.Item.Validate(); err != nil {
		return err
	}
	if in.Item.Category != "" && !in.Item.Category.Valid() {
		return fmt.Errorf("%w: category %q", model.ErrInvalidItem, in.Item.Category)
	}
	if err := in.Location.Validate(); err != nil {
		return err
	}
	if err := model.ValidateBatches(in.Batches); err != nil {
		return err
	}
	return uc.checkReservation(in.CurrentQuantity, in.ReservedQuantity)
}

// withLock runs fn while holding the entry locks. Keys are taken in sorted order.
func (uc *stockUseCase) withLock(ctx context.Context, entryIDs []string, fn func() error) error {
	ids := append([]string(nil), entryIDs...)
	sort.Strings(ids)
	token := uuid.New().String()

	var held []string
	defer func() {
		for _, key := range held {
			if err := uc.locker.ReleaseLock(context.WithoutCancel(ctx), key, token); err != nil {
				uc.logger.Warn("failed to release stock lock", zap.String("key", key), zap.Error(err))
			}
		}
	}()

	for _, id := range ids {
		key := "lock:stock:" + id
		if err := uc.acquire(ctx, key, token); err != nil {
			return err
		}
		held = append(held, key)
	}
	return fn()
}

func (uc *stockUseCase) acquire(ctx context.Context, key, token string) error {
	for i := 0; i < lockAttempts; i++ {
		ok, err := uc.locker.AcquireLock(ctx, key, token, uc.opts.LockTTL)
		if err != nil {
			uc.logger.Error("failed to acquire lock redis error", zap.String("key", key), zap.Error(err))
		}
		if ok {
			return nil
		}
		if i == lockAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockRetryDelay):
		}
	}
	return fmt.Errorf("%s: %w", key, model.ErrLockBusy)
}

func movementDelta(t model.ActionType, quantity int) (int, error) {
	switch t {
	case model.ActionRestock:
		if quantity <= 0 {
			return 0, fmt.Errorf("%w: restock quantity %d", model.ErrInvalidQuantity, quantity)
		}
		return quantity, nil
	case model.ActionDispatch, model.ActionExpiry:
		if quantity <= 0 {
			return 0, fmt.Errorf("%w: %s quantity %d", model.ErrInvalidQuantity, t, quantity)
		}
		return -quantity, nil
	case model.ActionAdjustment:
		if quantity == 0 {
			return 0, fmt.Errorf("%w: adjustment delta must not be zero", model.ErrInvalidQuantity)
		}
		return quantity, nil
	case model.ActionTransfer:
		return 0, fmt.Errorf("%w: transfers move stock between two entries", model.ErrInvalidAction)
	default:
		return 0, fmt.Errorf("%w: action type %q", model.ErrInvalidAction, t)
	}
}

func newAction(t model.ActionType, actor string, at time.Time, status model.ActionStatus, notes string) model.Action {
	return model.Action{
		ID:          uuid.New().String(),
		Type:        t,
		TriggeredBy: actor,
		Timestamp:   at,
		Status:      status,
		Notes:       notes,
	}
}

func renderAudit(events []model.ChangeEvent, actor string, at time.Time) []model.AuditEntry {
	out := make([]model.AuditEntry, 0, len(events))
	for _, ev := range events {
		out = append(out, model.AuditEntry{UserID: actor, Change: ev.Render(), Timestamp: at})
	}
	return out
}

func joinNotes(base, extra string) string {
	if extra == "" {
		return base
	}
	return base + ": " + extra
}

func applyUpsert(entry *model.StockEntry, in *dto.UpsertInput) {
	entry.Item = in.Item
	entry.Location = in.Location
	entry.Inventory = model.Inventory{
		CurrentQuantity:  in.CurrentQuantity,
		Unit:             in.Unit,
		Threshold:        in.Threshold,
		ReservedQuantity: in.ReservedQuantity,
	}
	entry.Batches = in.Batches
	entry.Tags = in.Tags
}

func normalizeUpsert(in *dto.UpsertInput, now time.Time) *dto.UpsertInput {
	out := *in
	out.ID = strings.TrimSpace(in.ID)
	out.Item = model.ItemSnapshot{
		Name:        strings.TrimSpace(in.Item.Name),
		Category:    model.ItemCategory(strings.ToLower(strings.TrimSpace(string(in.Item.Category)))),
		SKU:         strings.TrimSpace(in.Item.SKU),
		Description: strings.TrimSpace(in.Item.Description),
	}
	out.Location.WarehouseID = strings.TrimSpace(in.Location.WarehouseID)
	out.Location.Name = strings.TrimSpace(in.Location.Name)
	out.Location.Address = strings.TrimSpace(in.Location.Address)
	out.Unit = strings.TrimSpace(in.Unit)

	out.Batches = make([]model.Batch, 0, len(in.Batches))
	for _, b := range in.Batches {
		b.BatchNumber = strings.TrimSpace(b.BatchNumber)
		if b.Condition == "" {
			b.Condition = model.ConditionNew
		}
		if b.ReceivedDate.IsZero() {
			b.ReceivedDate = now
		}
		out.Batches = append(out.Batches, b)
	}

	out.Tags = []string{}
	seen := map[string]bool{}
	for _, t := range in.Tags {
		if t = strings.TrimSpace(t); t != "" && !seen[t] {
			seen[t] = true
			out.Tags = append(out.Tags, t)
		}
	}
	return &out
}

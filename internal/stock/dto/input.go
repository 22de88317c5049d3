package dto

import "github.com/reliefhub/stock-service/internal/model"

// UpsertInput updates the entry named by ID, or creates a new entry when ID is empty.
type UpsertInput struct {
	ID               string
	Item             model.ItemSnapshot
	Location         model.LocationSnapshot
	Unit             string
	CurrentQuantity  int
	ReservedQuantity int
	Threshold        int
	Batches          []model.Batch
	Tags             []string
}

// CatalogStockInput stocks a catalog item at a registered location. Unit
// defaults to the item's unit of measure.
type CatalogStockInput struct {
	ItemID           string
	LocationID       string
	Unit             string
	CurrentQuantity  int
	ReservedQuantity int
	Threshold        int
	Batches          []model.Batch
	Tags             []string
}

// AdjustInput moves stock. Quantity is a magnitude for Restock, Dispatch and
// Expiry, and a signed delta for Adjustment.
type AdjustInput struct {
	EntryID     string
	Type        model.ActionType
	Quantity    int
	TriggeredBy string
	Notes       string
}

type ReserveInput struct {
	EntryID     string
	Delta       int
	TriggeredBy string
	Notes       string
}

type TransferInput struct {
	FromEntryID string
	ToEntryID   string
	Quantity    int
	TriggeredBy string
	Notes       string
}

type ActionInput struct {
	EntryID     string
	Type        model.ActionType
	TriggeredBy string
	Status      model.ActionStatus
	Notes       string
}

package model

import (
	"fmt"
	"strings"
	"time"
)

type StockStatus string

const (
	StatusInStock  StockStatus = "In-Stock"
	StatusLowStock StockStatus = "Low Stock"
	StatusCritical StockStatus = "Critical"
	StatusDepleted StockStatus = "Depleted"
	StatusExpired  StockStatus = "Expired"
)

func (s StockStatus) Valid() bool {
	switch s {
	case StatusInStock, StatusLowStock, StatusCritical, StatusDepleted, StatusExpired:
		return true
	}
	return false
}

type BatchCondition string

const (
	ConditionNew     BatchCondition = "New"
	ConditionGood    BatchCondition = "Good"
	ConditionFair    BatchCondition = "Fair"
	ConditionDamaged BatchCondition = "Damaged"
)

func (c BatchCondition) Valid() bool {
	switch c {
	case ConditionNew, ConditionGood, ConditionFair, ConditionDamaged:
		return true
	}
	return false
}

type ActionType string

const (
	ActionRestock    ActionType = "Restock"
	ActionDispatch   ActionType = "Dispatch"
	ActionTransfer   ActionType = "Transfer"
	ActionAdjustment ActionType = "Adjustment"
	ActionExpiry     ActionType = "Expiry"
)

func (t ActionType) Valid() bool {
	switch t {
	case ActionRestock, ActionDispatch, ActionTransfer, ActionAdjustment, ActionExpiry:
		return true
	}
	return false
}

type ActionStatus string

const (
	ActionPending   ActionStatus = "Pending"
	ActionCompleted ActionStatus = "Completed"
	ActionCancelled ActionStatus = "Cancelled"
)

func (s ActionStatus) Valid() bool {
	switch s {
	case ActionPending, ActionCompleted, ActionCancelled:
		return true
	}
	return false
}

// ItemSnapshot is a value copy of the catalog item taken when the entry was written.
type ItemSnapshot struct {
	Name        string       `bson:"name" json:"name"`
	Category    ItemCategory `bson:"category" json:"category"`
	SKU         string       `bson:"sku" json:"sku"`
	Description string       `bson:"description,omitempty" json:"description,omitempty"`
}

type LatLng struct {
	Lat float64 `bson:"lat" json:"lat"`
	Lng float64 `bson:"lng" json:"lng"`
}

type ManagerContact struct {
	Name    string `bson:"name,omitempty" json:"name,omitempty"`
	Contact string `bson:"contact,omitempty" json:"contact,omitempty"`
	Email   string `bson:"email,omitempty" json:"email,omitempty"`
}

// LocationSnapshot is a value copy of the stock location taken when the entry was written.
type LocationSnapshot struct {
	WarehouseID string         `bson:"warehouseId" json:"warehouseId"`
	Name        string         `bson:"name" json:"name"`
	Address     string         `bson:"address" json:"address"`
	Coordinates LatLng         `bson:"coordinates" json:"coordinates"`
	Manager     ManagerContact `bson:"manager" json:"manager"`
}

type Inventory struct {
	CurrentQuantity   int    `bson:"currentQuantity" json:"currentQuantity"`
	Unit              string `bson:"unit" json:"unit"`
	Threshold         int    `bson:"threshold" json:"threshold"`
	ReservedQuantity  int    `bson:"reservedQuantity" json:"reservedQuantity"`
	AvailableQuantity int    `bson:"availableQuantity" json:"availableQuantity"`
}

type Batch struct {
	BatchNumber  string         `bson:"batchNumber" json:"batchNumber"`
	Quantity     int            `bson:"quantity" json:"quantity"`
	ExpiryDate   *time.Time     `bson:"expiryDate,omitempty" json:"expiryDate,omitempty"`
	ReceivedDate time.Time      `bson:"receivedDate" json:"receivedDate"`
	Condition    BatchCondition `bson:"condition" json:"condition"`
}

type Action struct {
	ID          string       `bson:"id" json:"id"`
	Type        ActionType   `bson:"type" json:"type"`
	TriggeredBy string       `bson:"triggeredBy" json:"triggeredBy"`
	Timestamp   time.Time    `bson:"timestamp" json:"timestamp"`
	Status      ActionStatus `bson:"status" json:"status"`
	Notes       string       `bson:"notes,omitempty" json:"notes,omitempty"`
}

type AuditEntry struct {
	UserID    string    `bson:"userId" json:"userId"`
	Change    string    `bson:"change" json:"change"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// StockEntry is the ledger row for one item at one location.
// Item and Location are owned copies and never re-resolve against the catalog.
type StockEntry struct {
	ID          string           `bson:"_id" json:"id"`
	Item        ItemSnapshot     `bson:"item" json:"item"`
	Location    LocationSnapshot `bson:"location" json:"location"`
	Inventory   Inventory        `bson:"inventory" json:"inventory"`
	Status      StockStatus      `bson:"status" json:"status"`
	Batches     []Batch          `bson:"batches" json:"batches"`
	Actions     []Action         `bson:"actions" json:"actions"`
	AuditLog    []AuditEntry     `bson:"auditLog" json:"auditLog"`
	Tags        []string         `bson:"tags" json:"tags"`
	CreatedAt   time.Time        `bson:"createdAt" json:"createdAt"`
	LastUpdated time.Time        `bson:"lastUpdated" json:"lastUpdated"`
}

// Key returns the (SKU, warehouse) identity of the entry.
func (e *StockEntry) Key() string {
	return e.Item.SKU + "@" + e.Location.WarehouseID
}

// Recompute refreshes every derived field as of now.
func (e *StockEntry) Recompute(now time.Time) {
	e.Inventory.AvailableQuantity = AvailableQuantity(e.Inventory.CurrentQuantity, e.Inventory.ReservedQuantity)
	e.Status = ClassifyStatus(e.Inventory.CurrentQuantity, e.Inventory.Threshold, e.Batches, now)
	e.LastUpdated = now
}

// ValidateQuantities rejects negative stock figures.
func ValidateQuantities(current, reserved, threshold int) error {
	switch {
	case current < 0:
		return fmt.Errorf("%w: currentQuantity %d", ErrInvalidQuantity, current)
	case reserved < 0:
		return fmt.Errorf("%w: reservedQuantity %d", ErrInvalidQuantity, reserved)
	case threshold < 0:
		return fmt.Errorf("%w: threshold %d", ErrInvalidQuantity, threshold)
	}
	return nil
}

func ValidateBatches(batches []Batch) error {
	for i, b := range batches {
		if strings.TrimSpace(b.BatchNumber) == "" {
			return fmt.Errorf("%w: batch %d has no number", ErrInvalidBatch, i)
		}
		if b.Quantity < 0 {
			return fmt.Errorf("%w: batch %s quantity %d", ErrInvalidQuantity, b.BatchNumber, b.Quantity)
		}
		if !b.Condition.Valid() {
			return fmt.Errorf("%w: batch %s condition %q", ErrInvalidBatch, b.BatchNumber, b.Condition)
		}
	}
	return nil
}

func (s ItemSnapshot) Validate() error {
	if strings.TrimSpace(s.SKU) == "" {
		return fmt.Errorf("%w: item snapshot needs a sku", ErrInvalidItem)
	}
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: item snapshot needs a name", ErrInvalidItem)
	}
	return nil
}

func (s LocationSnapshot) Validate() error {
	if strings.TrimSpace(s.WarehouseID) == "" {
		return fmt.Errorf("%w: location snapshot needs a warehouse id", ErrInvalidLocation)
	}
	return NewGeoPoint(s.Coordinates.Lng, s.Coordinates.Lat).Validate()
}

package dto

import "github.com/reliefhub/stock-service/internal/model"

type EntryFilters struct {
	SKU         string
	WarehouseID string
	Status      model.StockStatus
	Tag         string
	LowStock    bool // Low Stock, Critical or Depleted
	Page        int
	PageSize    int
}

type TransferResult struct {
	Source      *model.StockEntry `json:"source"`
	Destination *model.StockEntry `json:"destination"`
}

// LowStockStatuses are the statuses matched by EntryFilters.LowStock.
var LowStockStatuses = []model.StockStatus{
	model.StatusLowStock,
	model.StatusCritical,
	model.StatusDepleted,
}

package dto

import (
	"github.com/reliefhub/stock-service/internal/model"
	"github.com/shopspring/decimal"
)

type CreateLocationInput struct {
	Name      string
	Address   model.Address
	Longitude float64
	Latitude  float64
	Contact   *model.Contact
	Capacity  *CapacityInput
}

type UpdateLocationInput struct {
	ID        string
	Name      string
	Address   model.Address
	Longitude float64
	Latitude  float64
	Contact   *model.Contact
	Capacity  *CapacityInput
	IsActive  *bool // nil keeps the stored flag
}

type CapacityInput struct {
	Amount decimal.Decimal
	Unit   string
}

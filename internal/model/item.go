package model

import (
	"fmt"
	"strings"
)

type ItemCategory string

const (
	CategoryMedical   ItemCategory = "medical"
	CategoryFood      ItemCategory = "food"
	CategoryWater     ItemCategory = "water"
	CategoryShelter   ItemCategory = "shelter"
	CategoryTransport ItemCategory = "transport"
	CategoryEquipment ItemCategory = "equipment"
	CategoryClothing  ItemCategory = "clothing"
	CategoryOther     ItemCategory = "other"
)

func (c ItemCategory) Valid() bool {
	switch c {
	case CategoryMedical, CategoryFood, CategoryWater, CategoryShelter,
		CategoryTransport, CategoryEquipment, CategoryClothing, CategoryOther:
		return true
	}
	return false
}

// Item is a reusable catalog entry. SKU and Barcode are unique across items when set.
type Item struct {
	BaseModel     `bson:",inline"`
	Name          string       `db:"name" bson:"name" json:"name"`
	Description   *string      `db:"description" bson:"description,omitempty" json:"description,omitempty"`
	Category      ItemCategory `db:"category" bson:"category" json:"category"`
	UnitOfMeasure string       `db:"unit_of_measure" bson:"unitOfMeasure" json:"unitOfMeasure"`
	SKU           *string      `db:"sku" bson:"sku,omitempty" json:"sku,omitempty"`
	Barcode       *string      `db:"barcode" bson:"barcode,omitempty" json:"barcode,omitempty"`
	ImageURL      *string      `db:"image_url" bson:"imageUrl,omitempty" json:"imageUrl,omitempty"`
	IsActive      bool         `db:"is_active" bson:"isActive" json:"isActive"`
}

func (i *Item) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidItem)
	}
	if !i.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidItem, i.Category)
	}
	if strings.TrimSpace(i.UnitOfMeasure) == "" {
		return fmt.Errorf("%w: unit of measure is required", ErrInvalidItem)
	}
	return nil
}

// Snapshot copies the descriptive fields a stock entry keeps.
func (i *Item) Snapshot() ItemSnapshot {
	s := ItemSnapshot{
		Name:     i.Name,
		Category: i.Category,
	}
	if i.SKU != nil {
		s.SKU = *i.SKU
	}
	if i.Description != nil {
		s.Description = *i.Description
	}
	return s
}

// OptionalString trims s and returns nil when nothing is left.
func OptionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

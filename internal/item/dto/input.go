package dto

type CreateItemInput struct {
	Name          string
	Description   string
	Category      string
	UnitOfMeasure string
	SKU           string
	Barcode       string
	ImageURL      string
}

type UpdateItemInput struct {
	ID            string
	Name          string
	Description   string
	Category      string
	UnitOfMeasure string
	SKU           string
	Barcode       string
	ImageURL      string
	IsActive      *bool // nil keeps the stored flag
}

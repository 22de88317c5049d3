package dto

type ItemFilters struct {
	Category    string
	IsActive    *bool
	SearchQuery string // name, sku, barcode
	Page        int
	PageSize    int
}

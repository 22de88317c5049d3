package dto

import "github.com/reliefhub/stock-service/internal/model"

type LocationFilters struct {
	IsActive *bool
	City     string
	Country  string
	Page     int
	PageSize int
}

type NearestQuery struct {
	Longitude         float64
	Latitude          float64
	MaxDistanceMeters float64 // 0 means unbounded
	Limit             int
}

type NearbyLocation struct {
	Location       model.Location `json:"location"`
	DistanceMeters float64        `json:"distanceMeters"`
}

package model

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
)

type Address struct {
	Street  string `bson:"street" json:"street"`
	Suite   string `bson:"suite,omitempty" json:"suite,omitempty"`
	City    string `bson:"city" json:"city"`
	State   string `bson:"state" json:"state"`
	Zip     string `bson:"zip" json:"zip"`
	Country string `bson:"country" json:"country"`
}

// GeoPoint is a GeoJSON point; Coordinates is [longitude, latitude].
type GeoPoint struct {
	Type        string     `bson:"type" json:"type"`
	Coordinates [2]float64 `bson:"coordinates" json:"coordinates"`
}

func NewGeoPoint(lng, lat float64) GeoPoint {
	return GeoPoint{Type: "Point", Coordinates: [2]float64{lng, lat}}
}

func (p GeoPoint) Lng() float64 { return p.Coordinates[0] }
func (p GeoPoint) Lat() float64 { return p.Coordinates[1] }

type lngLat struct {
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

// MarshalJSON renders the point as {"lng","lat"}, the shape location requests
// accept. GeoJSON is kept for storage only.
func (p GeoPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(lngLat{Lng: p.Lng(), Lat: p.Lat()})
}

func (p *GeoPoint) UnmarshalJSON(data []byte) error {
	var ll lngLat
	if err := json.Unmarshal(data, &ll); err != nil {
		return err
	}
	*p = NewGeoPoint(ll.Lng, ll.Lat)
	return nil
}

func (p GeoPoint) Validate() error {
	lng, lat := p.Lng(), p.Lat()
	// NaN fails both comparisons.
	if !(lng >= -180 && lng <= 180) || !(lat >= -90 && lat <= 90) {
		return fmt.Errorf("%w: (%v, %v)", ErrInvalidCoordinates, lng, lat)
	}
	return nil
}

type Contact struct {
	Name  string `bson:"name" json:"name"`
	Phone string `bson:"phone,omitempty" json:"phone,omitempty"`
	Email string `bson:"email,omitempty" json:"email,omitempty"`
}

type Capacity struct {
	Amount decimal.Decimal `json:"amount"`
	Unit   string          `json:"unit"`
}

type capacityDoc struct {
	Amount string `bson:"amount"`
	Unit   string `bson:"unit"`
}

func (c Capacity) MarshalBSON() ([]byte, error) {
	return bson.Marshal(capacityDoc{Amount: c.Amount.String(), Unit: c.Unit})
}

func (c *Capacity) UnmarshalBSON(data []byte) error {
	var doc capacityDoc
	if err := bson.Unmarshal(data, &doc); err != nil {
		return err
	}
	amount, err := decimal.NewFromString(doc.Amount)
	if err != nil {
		return err
	}
	c.Amount = amount
	c.Unit = doc.Unit
	return nil
}

// Location is a physical storage site. Retired sites are deactivated, never deleted.
type Location struct {
	BaseModel `bson:",inline"`
	Name      string    `bson:"name" json:"name"`
	Address   Address   `bson:"address" json:"address"`
	Point     GeoPoint  `bson:"point" json:"coordinates"`
	Contact   *Contact  `bson:"contact,omitempty" json:"contact,omitempty"`
	Capacity  *Capacity `bson:"capacity,omitempty" json:"capacity,omitempty"`
	IsActive  bool      `bson:"isActive" json:"isActive"`
}

func (l *Location) Validate() error {
	if strings.TrimSpace(l.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidLocation)
	}
	if strings.TrimSpace(l.Address.Street) == "" || strings.TrimSpace(l.Address.City) == "" ||
		strings.TrimSpace(l.Address.Country) == "" {
		return fmt.Errorf("%w: street, city and country are required", ErrInvalidLocation)
	}
	if err := l.Point.Validate(); err != nil {
		return err
	}
	if l.Capacity != nil && l.Capacity.Amount.IsNegative() {
		return fmt.Errorf("%w: capacity must not be negative", ErrInvalidLocation)
	}
	return nil
}

// Snapshot copies the fields a stock entry keeps about its location.
func (l *Location) Snapshot() LocationSnapshot {
	s := LocationSnapshot{
		WarehouseID: l.ID,
		Name:        l.Name,
		Address:     l.Address.String(),
		Coordinates: LatLng{Lat: l.Point.Lat(), Lng: l.Point.Lng()},
	}
	if l.Contact != nil {
		s.Manager = ManagerContact{Name: l.Contact.Name, Contact: l.Contact.Phone, Email: l.Contact.Email}
	}
	return s
}

func (a Address) String() string {
	parts := []string{}
	street := strings.TrimSpace(a.Street)
	if suite := strings.TrimSpace(a.Suite); suite != "" {
		street += " " + suite
	}
	for _, p := range []string{street, a.City, strings.TrimSpace(a.State + " " + a.Zip), a.Country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

package models

import (
	"time"

	"github.com/paulmach/orb"
)

// Listing statuses. Properties are never physically deleted; they
// transition to sold or withdrawn and are excluded by status filtering
// at query time.
const (
	StatusActive    = "active"
	StatusPending   = "pending"
	StatusSold      = "sold"
	StatusWithdrawn = "withdrawn"
)

type Property struct {
	ID           string    `json:"id"`
	Address      string    `json:"address"`
	Price        float64   `json:"price"`
	Bedrooms     int       `json:"bedrooms"`
	Bathrooms    float64   `json:"bathrooms"`
	LivingArea   *int      `json:"living_area"`
	PropertyType string    `json:"property_type"`
	Status       string    `json:"listing_status"`
	Longitude    float64   `json:"longitude"`
	Latitude     float64   `json:"latitude"`
	ListedAt     time.Time `json:"listed_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Location returns the property position as an orb point in lon/lat order.
func (p Property) Location() orb.Point {
	return orb.Point{p.Longitude, p.Latitude}
}

// IsActive reports whether the listing is currently on the market.
func (p Property) IsActive() bool {
	return p.Status == StatusActive
}

// Neighborhood is read-mostly reference data: a named closed boundary
// polygon in the same WGS84 lon/lat reference as Property locations.
type Neighborhood struct {
	Name     string   `json:"name"`
	Boundary orb.Ring `json:"boundary"`
	AvgPrice *float64 `json:"avg_price,omitempty"`
}

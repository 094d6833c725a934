package model

import "time"

// Floor positions with special meaning to the space scorer.
const (
	FloorBasement = "basement"
	FloorGround   = "ground"
	FloorAttic    = "attic"
	FloorSixPlus  = "6+"
)

// Space is a unit described only by static attributes.
type Space struct {
	ID           string    `json:"id"`
	Name         string    `json:"name" yaml:"name"`
	AddressLabel string    `json:"address_label" yaml:"address_label"`
	City         string    `json:"city" yaml:"city"`
	Country      string    `json:"country" yaml:"country"`
	Neighborhood *string   `json:"neighborhood" yaml:"neighborhood"`
	PropertyType string    `json:"property_type" yaml:"property_type"`
	Floor        string    `json:"floor" yaml:"floor"`
	AreaM2       float64   `json:"area_m2" yaml:"area_m2"`
	ListingPrice *float64  `json:"listing_price" yaml:"listing_price"`
	CreatedAt    time.Time `json:"created_at" yaml:"-"`
	UpdatedAt    time.Time `json:"updated_at" yaml:"-"`
}

// NeighborhoodOr returns the neighborhood, or fallback when unset.
func (s *Space) NeighborhoodOr(fallback string) string {
	if s.Neighborhood != nil && *s.Neighborhood != "" {
		return *s.Neighborhood
	}
	return fallback
}

// SpaceFilter narrows space listings.
type SpaceFilter struct {
	City         string
	PropertyType string
	Limit        int
	Offset       int
}

// StateOverrides force a space classification.
type StateOverrides struct {
	State      string `json:"state,omitempty"`
	Trajectory string `json:"trajectory,omitempty"`
}

package model

import "time"

// GeoResult is a resolved address.
type GeoResult struct {
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	City  string  `json:"city"`
	State string  `json:"state"`
	Zip   string  `json:"zip"`
}

// AmenityCategory is one of the nearby-place types queried for a property.
type AmenityCategory string

const (
	AmenitySupermarket AmenityCategory = "supermarket"
	AmenityMetro       AmenityCategory = "metro"
	AmenityCafe        AmenityCategory = "cafe"
	AmenityPark        AmenityCategory = "park"
	AmenityGym         AmenityCategory = "gym"
	AmenityPharmacy    AmenityCategory = "pharmacy"
)

// AmenityCategories lists categories in their canonical order.
func AmenityCategories() []AmenityCategory {
	return []AmenityCategory{
		AmenitySupermarket,
		AmenityMetro,
		AmenityCafe,
		AmenityPark,
		AmenityGym,
		AmenityPharmacy,
	}
}

// PlaceType returns the places-search type for the category.
func (c AmenityCategory) PlaceType() string {
	if c == AmenityMetro {
		return "subway_station"
	}
	return string(c)
}

// Amenities maps each category to walking minutes.
type Amenities struct {
	SupermarketMin int `json:"supermarket_min"`
	MetroMin       int `json:"metro_min"`
	CafeMin        int `json:"cafe_min"`
	ParkMin        int `json:"park_min"`
	GymMin         int `json:"gym_min"`
	PharmacyMin    int `json:"pharmacy_min"`
}

// DefaultAmenities returns the minutes assumed when a lookup is unavailable.
func DefaultAmenities() Amenities {
	return Amenities{
		SupermarketMin: 10,
		MetroMin:       15,
		CafeMin:        5,
		ParkMin:        10,
		GymMin:         12,
		PharmacyMin:    8,
	}
}

// Set stores minutes for a category.
func (a *Amenities) Set(c AmenityCategory, minutes int) {
	switch c {
	case AmenitySupermarket:
		a.SupermarketMin = minutes
	case AmenityMetro:
		a.MetroMin = minutes
	case AmenityCafe:
		a.CafeMin = minutes
	case AmenityPark:
		a.ParkMin = minutes
	case AmenityGym:
		a.GymMin = minutes
	case AmenityPharmacy:
		a.PharmacyMin = minutes
	}
}

// Average returns the mean walking minutes across all six categories.
func (a Amenities) Average() float64 {
	sum := a.SupermarketMin + a.MetroMin + a.CafeMin + a.ParkMin + a.GymMin + a.PharmacyMin
	return float64(sum) / 6
}

// Solar is a placeholder exposure estimate.
type Solar struct {
	Orientation    string `json:"orientation"`
	MorningLight   string `json:"morning_light"`
	AfternoonLight string `json:"afternoon_light"`
	SeasonalNote   string `json:"seasonal_note"`
}

// Noise is a placeholder acoustic estimate.
type Noise struct {
	DaytimeDB       int      `json:"daytime_db"`
	NighttimeDB     int      `json:"nighttime_db"`
	PrimarySources  []string `json:"primary_sources"`
	SensitivityNote string   `json:"sensitivity_note"`
}

// Lifestyle is a placeholder neighbourhood character.
type Lifestyle struct {
	NeighbourhoodType  string `json:"neighbourhood_type"`
	CommunityCharacter string `json:"community_character"`
}

// LocationInsight is the neighbourhood snapshot for one property.
type LocationInsight struct {
	ID                  string    `json:"id,omitempty"`
	PropertyID          string    `json:"property_id"`
	Walkability         string    `json:"walkability"`
	DailyConvenience    string    `json:"daily_convenience"`
	TrafficExposure     string    `json:"traffic_exposure"`
	NeighbourhoodEnergy string    `json:"neighbourhood_energy"`
	ProximityScore      int       `json:"proximity_score"`
	Amenities           Amenities `json:"amenities_json"`
	Solar               Solar     `json:"solar_json"`
	Noise               Noise     `json:"noise_json"`
	Lifestyle           Lifestyle `json:"lifestyle_json"`
	Geohash             string    `json:"geohash,omitempty"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// PhotoInsights is the structured assessment returned by the vision analyzer.
type PhotoInsights struct {
	LightAssessment     LightAssessment     `json:"light_assessment"`
	SpatialAssessment   SpatialAssessment   `json:"spatial_assessment"`
	ConditionAssessment ConditionAssessment `json:"condition_assessment"`
	Atmosphere          Atmosphere          `json:"atmosphere"`
	RedFlags            []string            `json:"red_flags"`
	Confidence          string              `json:"confidence"`
}

// IsZero reports whether no assessment field was filled in.
func (p PhotoInsights) IsZero() bool {
	return p.LightAssessment == LightAssessment{} && p.SpatialAssessment == SpatialAssessment{} &&
		p.ConditionAssessment == ConditionAssessment{} && p.Atmosphere == Atmosphere{} &&
		len(p.RedFlags) == 0 && p.Confidence == ""
}

// LightAssessment describes natural light seen in the photos.
type LightAssessment struct {
	Quality                        string `json:"quality"`
	NaturalLightVisible            bool   `json:"natural_light_visible"`
	ArtificialEnhancementSuspected bool   `json:"artificial_enhancement_suspected"`
	Notes                          string `json:"notes"`
}

// SpatialAssessment describes perceived space.
type SpatialAssessment struct {
	SizeImpression string `json:"size_impression"`
	CeilingHeight  string `json:"ceiling_height"`
	Flow           string `json:"flow"`
	Notes          string `json:"notes"`
}

// ConditionAssessment describes visible condition.
type ConditionAssessment struct {
	Overall                string `json:"overall"`
	Finishes               string `json:"finishes"`
	EstimatedRenovationAge string `json:"estimated_renovation_age"`
	Notes                  string `json:"notes"`
}

// Atmosphere holds 0-100 mood scores.
type Atmosphere struct {
	DominantFeeling string  `json:"dominant_feeling"`
	CalmHecticScore float64 `json:"calm_hectic_score"`
	AiryDimScore    float64 `json:"airy_dim_score"`
	WarmColdScore   float64 `json:"warm_cold_score"`
}

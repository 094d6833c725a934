// Package scoring derives deterministic experience assessments from resolved
// listing, location, photo and space data. Nothing in this package performs
// I/O except the optional LLM-backed editorial generator.
package scoring

import (
	"math"

	"github.com/sells-group/rumoo/internal/model"
)

// Walkability levels.
const (
	WalkabilityHigh     = "high"
	WalkabilityModerate = "moderate"
	WalkabilityLow      = "low"
)

// Daily convenience levels.
const (
	ConvenienceStrong   = "strong"
	ConvenienceModerate = "moderate"
	ConvenienceWeak     = "weak"
)

// Neighbourhood energy levels.
const (
	EnergyVibrant  = "vibrant"
	EnergyBalanced = "balanced"
	EnergyCalm     = "calm"
)

// Traffic exposure levels.
const (
	TrafficHigh     = "high"
	TrafficModerate = "moderate"
	TrafficLow      = "low"
)

const (
	minProximityScore = 20
	maxProximityScore = 100
)

// DeriveLocation classifies six amenity walking times into a location insight.
// PropertyID and Geohash are left for the caller.
func DeriveLocation(a model.Amenities) model.LocationInsight {
	avg := a.Average()

	li := model.LocationInsight{
		Amenities: a,
		Solar:     PlaceholderSolar(),
		Noise:     PlaceholderNoise(),
		Lifestyle: PlaceholderLifestyle(),
	}

	switch {
	case avg <= 6:
		li.Walkability = WalkabilityHigh
	case avg <= 12:
		li.Walkability = WalkabilityModerate
	default:
		li.Walkability = WalkabilityLow
	}

	switch {
	case a.SupermarketMin <= 5:
		li.DailyConvenience = ConvenienceStrong
	case a.SupermarketMin <= 10:
		li.DailyConvenience = ConvenienceModerate
	default:
		li.DailyConvenience = ConvenienceWeak
	}

	switch {
	case avg <= 5:
		li.NeighbourhoodEnergy = EnergyVibrant
	case avg <= 10:
		li.NeighbourhoodEnergy = EnergyBalanced
	default:
		li.NeighbourhoodEnergy = EnergyCalm
	}

	// Metro proximity dominates the average.
	switch {
	case a.MetroMin <= 3:
		li.TrafficExposure = TrafficHigh
	case avg <= 7:
		li.TrafficExposure = TrafficModerate
	default:
		li.TrafficExposure = TrafficLow
	}

	li.ProximityScore = ProximityScore(avg)
	return li
}

// ProximityScore maps average walking minutes onto [20, 100].
func ProximityScore(avgMinutes float64) int {
	score := int(math.Round(100 - avgMinutes*3))
	return max(minProximityScore, min(maxProximityScore, score))
}

// PlaceholderSolar is stored until a real exposure source exists.
func PlaceholderSolar() model.Solar {
	return model.Solar{
		Orientation:    "unknown",
		MorningLight:   "moderate",
		AfternoonLight: "moderate",
		SeasonalNote:   "Verify light during visit.",
	}
}

// PlaceholderNoise is stored until a real acoustic source exists.
func PlaceholderNoise() model.Noise {
	return model.Noise{
		DaytimeDB:       55,
		NighttimeDB:     45,
		PrimarySources:  []string{"street traffic"},
		SensitivityNote: "Estimate only — verify during visit.",
	}
}

// PlaceholderLifestyle is stored until a real neighbourhood source exists.
func PlaceholderLifestyle() model.Lifestyle {
	return model.Lifestyle{
		NeighbourhoodType:  "urban residential",
		CommunityCharacter: "urban mix",
	}
}

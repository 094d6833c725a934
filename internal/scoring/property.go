package scoring

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/rumoo/internal/model"
)

// PropertyStrategy scores a geocoded listing from its location insight and
// optional photo analysis. It is the canonical strategy for ingestion.
type PropertyStrategy struct {
	Editorial EditorialGenerator
}

// NewPropertyStrategy returns a PropertyStrategy using the given editorial
// generator, or templates when nil.
func NewPropertyStrategy(e EditorialGenerator) *PropertyStrategy {
	return &PropertyStrategy{Editorial: editorialOrDefault(e)}
}

func (ps *PropertyStrategy) Name() string { return "property" }

// Evaluate scores the subject's property.
func (ps *PropertyStrategy) Evaluate(ctx context.Context, s Subject) (*Evaluation, error) {
	if s.Property == nil || s.Location == nil {
		return nil, eris.Wrap(ErrIncompleteSubject, "scoring: property strategy needs property and location")
	}
	p, loc, photos := s.Property, s.Location, s.Photos

	score := StateScore(p.Sqft, loc)
	ev := &Evaluation{
		Score:      score,
		State:      BandState(score),
		Trajectory: propertyTrajectory(loc),
		PhotoLine:  PhotoLine(photos),
	}
	ev.Capital = propertyCapital(loc, photos)
	ev.Signals = propertySignals(loc, photos, ev.PhotoLine)
	ev.Checklist = propertyChecklist(p, loc, photos)

	in := EditorialInput{
		State:      ev.State,
		Trajectory: ev.Trajectory,
		Signals:    ev.Signals,
		PhotoLine:  ev.PhotoLine,
		Property:   p,
		Location:   loc,
	}
	gen := editorialOrDefault(ps.Editorial)
	var err error
	if ev.OneSentence, err = gen.OneSentence(ctx, in); err != nil {
		return nil, eris.Wrap(err, "scoring: one sentence")
	}
	if ev.EditorialSummary, err = gen.Summary(ctx, in); err != nil {
		return nil, eris.Wrap(err, "scoring: editorial summary")
	}
	return ev, nil
}

// StateScore computes the 0-100 experience score. Base 50, adjusted by
// walkability, traffic, calm, proximity and floor area.
func StateScore(sqft *int, loc *model.LocationInsight) int {
	s := 50
	if loc.Walkability == WalkabilityHigh {
		s += 8
	}
	switch loc.TrafficExposure {
	case TrafficHigh:
		s -= 12
	case TrafficLow:
		s += 8
	}
	if loc.NeighbourhoodEnergy == EnergyCalm {
		s += 5
	}
	if loc.ProximityScore >= 80 {
		s += 5
	}
	if sqft != nil && *sqft > 0 {
		switch {
		case *sqft >= 1500:
			s += 8
		case *sqft < 600:
			s -= 10
		}
	}
	return s
}

// BandState maps a state score onto Strong, Stable, Fragile or Declining.
func BandState(score int) string {
	switch {
	case score >= 70:
		return StateStrong
	case score >= 50:
		return StateStable
	case score >= 35:
		return StateFragile
	default:
		return StateDeclining
	}
}

// Property trajectories never decline; only calm and well-served locations improve.
func propertyTrajectory(loc *model.LocationInsight) string {
	if loc.NeighbourhoodEnergy == EnergyCalm && loc.DailyConvenience == ConvenienceStrong {
		return TrajectoryImproving
	}
	return TrajectoryStable
}

// PhotoLine summarizes photo findings in one sentence.
func PhotoLine(photos *model.PhotoInsights) string {
	if photos == nil || photos.LightAssessment.Quality == "" {
		return "Visit required to verify light and spatial conditions."
	}
	line := fmt.Sprintf("Photo analysis: %s light quality, %s space impression.",
		photos.LightAssessment.Quality, photos.SpatialAssessment.SizeImpression)
	if photos.LightAssessment.ArtificialEnhancementSuspected {
		line += " Enhancement suspected."
	}
	return line
}

func propertyCapital(loc *model.LocationInsight, photos *model.PhotoInsights) model.Capital {
	c := model.Capital{
		Generating: make([]string, 0, 3),
		Preserving: []string{
			"Standard residential layout",
			fmt.Sprintf("Proximity score %d/100", loc.ProximityScore),
		},
		Draining: make([]string, 0, 2),
	}

	if loc.Walkability == WalkabilityHigh {
		c.Generating = append(c.Generating, "High walkability — daily needs within walking distance")
	} else {
		c.Generating = append(c.Generating, "Accessible urban location")
	}
	if loc.DailyConvenience == ConvenienceStrong {
		c.Generating = append(c.Generating, "Strong daily convenience infrastructure")
	}
	if photos != nil && photos.LightAssessment.Quality == "excellent" {
		c.Generating = append(c.Generating, "Excellent natural light (photo-verified)")
	}

	if loc.TrafficExposure == TrafficHigh {
		c.Draining = append(c.Draining, "High traffic exposure — acoustic management required")
	}
	if photos != nil && len(photos.RedFlags) > 0 {
		flags := photos.RedFlags
		if len(flags) > 2 {
			flags = flags[:2]
		}
		c.Draining = append(c.Draining, "Photo flags: "+strings.Join(flags, ", "))
	}
	return c
}

func propertySignals(loc *model.LocationInsight, photos *model.PhotoInsights, photoLine string) []model.Signal {
	convenience := model.SignalNeutral
	if loc.Walkability == WalkabilityHigh {
		convenience = model.SignalPositive
	}
	traffic := model.SignalNeutral
	switch loc.TrafficExposure {
	case TrafficHigh:
		traffic = model.SignalNegative
	case TrafficLow:
		traffic = model.SignalPositive
	}
	energy := model.SignalNeutral
	if loc.NeighbourhoodEnergy == EnergyCalm {
		energy = model.SignalPositive
	}

	signals := []model.Signal{
		{
			Name:  "Urban Convenience",
			State: convenience,
			ShortExplanation: fmt.Sprintf("Metro ~%d min, supermarket ~%d min.",
				loc.Amenities.MetroMin, loc.Amenities.SupermarketMin),
		},
		{
			Name:             "Traffic Exposure",
			State:            traffic,
			ShortExplanation: loc.TrafficExposure + " traffic exposure for this address.",
		},
		{
			Name:             "Neighbourhood Energy",
			State:            energy,
			ShortExplanation: loc.NeighbourhoodEnergy + " neighbourhood character.",
		},
	}

	if photos != nil {
		state := model.SignalNeutral
		if photos.LightAssessment.ArtificialEnhancementSuspected {
			state = model.SignalSensitive
		}
		signals = append(signals, model.Signal{
			Name:             "Photo Analysis",
			State:            state,
			ShortExplanation: photoLine,
		})
	}
	return signals
}

func propertyChecklist(p *model.Property, loc *model.LocationInsight, photos *model.PhotoInsights) []model.ChecklistItem {
	enhanced := photos != nil && photos.LightAssessment.ArtificialEnhancementSuspected
	glazing := "Check glazing: single vs double pane"
	if enhanced {
		glazing = "Compare listing photos to reality — artificial lighting suspected"
	}

	items := []model.ChecklistItem{
		{Item: "Visit during the day to confirm real natural light conditions", Category: "light"},
		{Item: "Open all windows for 5 minutes — assess real ambient noise", Category: "noise"},
		{Item: glazing, Category: "structure"},
		{Item: "Inspect walls and ceiling for damp, cracks, or water staining", Category: "structure"},
		{Item: "Request full seller disclosure and HOA documents", Category: "legal"},
		{Item: "Verify any pending special assessments or HOA disputes", Category: "legal"},
		{
			Item:     fmt.Sprintf("Walk to nearest supermarket (~%d min) — verify route at night", loc.Amenities.SupermarketMin),
			Category: "neighbourhood",
		},
		{Item: "Check cell signal and internet provider options in the unit", Category: "lifestyle"},
	}

	if p.Sqft != nil && *p.Sqft > 0 && *p.Sqft < 800 {
		items = append(items, model.ChecklistItem{Item: "Bring a tape measure — verify key furniture fits", Category: "lifestyle"})
	}
	if p.YearBuilt != nil && *p.YearBuilt > 0 && *p.YearBuilt < 1980 {
		items = append(items, model.ChecklistItem{Item: "Request full inspection — older build warrants structural review", Category: "structure"})
	}
	if photos != nil {
		for _, f := range photos.RedFlags {
			items = append(items, model.ChecklistItem{Item: "Verify: " + f, Category: "structure"})
		}
	}
	return items
}

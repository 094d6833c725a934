// Package certificate composes scored evaluations into certificate documents.
// Building is pure: the only inputs are the resolved records, the tier and
// the injected clock. The document id is left empty for the caller to
// backfill after persistence.
package certificate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/rumoo/internal/model"
	"github.com/sells-group/rumoo/internal/scoring"
)

// Builder renders property and space certificates.
type Builder struct {
	property scoring.Strategy
	space    scoring.Strategy
	now      func() time.Time
}

// Option configures a Builder.
type Option func(*Builder)

// WithClock overrides the generation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		b.now = now
	}
}

// WithPropertyStrategy overrides the property scoring strategy.
func WithPropertyStrategy(s scoring.Strategy) Option {
	return func(b *Builder) {
		b.property = s
	}
}

// WithSpaceStrategy overrides the space scoring strategy.
func WithSpaceStrategy(s scoring.Strategy) Option {
	return func(b *Builder) {
		b.space = s
	}
}

// NewBuilder creates a Builder. Both strategies default to template
// editorial; pass an EditorialGenerator to phrase text differently.
func NewBuilder(editorial scoring.EditorialGenerator, opts ...Option) *Builder {
	b := &Builder{
		property: scoring.NewPropertyStrategy(editorial),
		space:    scoring.NewSpaceStrategy(editorial),
		now:      time.Now,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// PropertyInput is everything needed to certify an ingested property.
type PropertyInput struct {
	Property *model.Property
	Location *model.LocationInsight
	Photos   *model.PhotoInsights
	Tier     model.Tier
}

func (b *Builder) meta(tier model.Tier) model.Meta {
	return model.Meta{
		Tier:        tier,
		Version:     model.CertificateVersion,
		GeneratedAt: b.now().UTC(),
	}
}

// Property builds a property certificate.
func (b *Builder) Property(ctx context.Context, in PropertyInput) (*model.PropertyCertificate, error) {
	if !in.Tier.IsValid() {
		return nil, eris.Errorf("certificate: invalid tier %q", in.Tier)
	}
	if in.Property == nil || in.Location == nil {
		return nil, eris.New("certificate: property and location are required")
	}

	ev, err := b.property.Evaluate(ctx, scoring.Subject{
		Property: in.Property,
		Location: in.Location,
		Photos:   in.Photos,
	})
	if err != nil {
		return nil, eris.Wrap(err, "certificate: evaluate property")
	}

	p, loc := in.Property, in.Location
	propertyType := p.PropertyType
	if propertyType == "" {
		propertyType = "Residential"
	}

	cert := &model.PropertyCertificate{
		Meta: b.meta(in.Tier),
		PropertyIdentity: model.PropertyIdentity{
			Title:        p.DisplayTitle(),
			City:         p.City,
			PropertyType: propertyType,
			Sqft:         p.Sqft,
			Beds:         p.Beds,
			Baths:        p.Baths,
		},
		ExperienceBarometer: model.Barometer{
			State:       ev.State,
			Trajectory:  ev.Trajectory,
			OneSentence: ev.OneSentence,
		},
		ExperienceCapital: ev.Capital,
		Signals:           ev.Signals,
		LocationContext: model.LocationContext{
			Walkability:         loc.Walkability,
			DailyConvenience:    loc.DailyConvenience,
			TrafficExposure:     loc.TrafficExposure,
			NeighbourhoodEnergy: loc.NeighbourhoodEnergy,
		},
		RealfeelEnvironment:   realfeel(loc, in.Photos),
		VerificationChecklist: ev.Checklist,
		EditorialSummary:      ev.EditorialSummary,
	}

	if in.Tier == model.TierPro {
		cert.VisitStrategy = visitStrategy(loc.Noise)
		cert.SilenceAndDrift = propertySilence(in.Photos)
		cert.StrategicRisks = propertyRisks(loc, in.Photos)
	}
	return cert, nil
}

// NaturalLightFallback is shown when no photo analysis is available.
const NaturalLightFallback = "Verify natural light during visit."

func realfeel(loc *model.LocationInsight, photos *model.PhotoInsights) model.RealfeelEnvironment {
	light := NaturalLightFallback
	if photos != nil && photos.LightAssessment.Quality != "" {
		note := "Photos appear representative."
		if photos.LightAssessment.ArtificialEnhancementSuspected {
			note = "Artificial enhancement suspected — verify in person."
		}
		light = fmt.Sprintf("%s light quality detected. %s", photos.LightAssessment.Quality, note)
	}
	return model.RealfeelEnvironment{
		NaturalLightSummary: light,
		NoiseSummary:        fmt.Sprintf("Estimated ~%ddB daytime. %s", loc.Noise.DaytimeDB, loc.Noise.SensitivityNote),
		LifestyleSummary:    fmt.Sprintf("%s. %s.", loc.Lifestyle.NeighbourhoodType, loc.Lifestyle.CommunityCharacter),
	}
}

// eveningNoiseDB is the estimated night level at which an evening visit is advised.
const eveningNoiseDB = 58

func visitStrategy(noise model.Noise) *model.VisitStrategy {
	if noise.NighttimeDB >= eveningNoiseDB {
		return &model.VisitStrategy{
			BestVisitTime: "evening",
			Why: fmt.Sprintf("Estimated night noise (~%ddB) is a primary risk factor. An evening visit confirms the real acoustic environment.",
				noise.NighttimeDB),
		}
	}
	return &model.VisitStrategy{
		BestVisitTime: "afternoon",
		Why:           "Afternoon visit captures best natural light for assessment. Estimated noise is manageable — confirm during visit.",
	}
}

func propertySilence(photos *model.PhotoInsights) *model.SilenceAndDrift {
	first := "Condition details not visible from listing photos"
	if photos != nil && len(photos.RedFlags) > 0 {
		first = "Photo flags detected: " + strings.Join(photos.RedFlags, ", ")
	}
	return &model.SilenceAndDrift{
		MissingElements: []string{
			"Real light conditions — listing photos may be enhanced",
			"Actual acoustic environment — estimates only",
			"HOA financial health and building history",
		},
		HiddenRisks: []string{
			first,
			"Traffic patterns across different times of day",
			"Neighbourhood trajectory over next 3-5 years",
		},
		OverlookedOpportunities: []string{
			"Renovation potential relative to year built",
			"Comparable sales momentum in this zip code",
			"Development plans for immediate area",
		},
	}
}

func propertyRisks(loc *model.LocationInsight, photos *model.PhotoInsights) *model.StrategicRisks {
	accuracy := model.SeverityLow
	if photos != nil && photos.LightAssessment.ArtificialEnhancementSuspected {
		accuracy = model.SeverityMedium
	}
	noise := model.SeverityMedium
	if loc.TrafficExposure == scoring.TrafficHigh {
		noise = model.SeverityHigh
	}
	return &model.StrategicRisks{Risks: []model.StrategicRisk{
		{Risk: "Listing photo accuracy", Severity: accuracy, Mitigation: "Verify all key claims in person before making offer."},
		{Risk: "Noise environment", Severity: noise, Mitigation: "Visit at multiple times of day and evening before committing."},
		{Risk: "Market liquidity", Severity: model.SeverityLow, Mitigation: "Research recent comparable sales in the immediate area."},
	}}
}

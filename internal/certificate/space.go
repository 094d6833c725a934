package certificate

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/rumoo/internal/model"
	"github.com/sells-group/rumoo/internal/scoring"
)

// SpaceInput is everything needed to certify a space.
type SpaceInput struct {
	Space     *model.Space
	Tier      model.Tier
	Overrides *model.StateOverrides
}

// Space builds a space certificate.
func (b *Builder) Space(ctx context.Context, in SpaceInput) (*model.SpaceCertificate, error) {
	if !in.Tier.IsValid() {
		return nil, eris.Errorf("certificate: invalid tier %q", in.Tier)
	}
	if in.Space == nil {
		return nil, eris.New("certificate: space is required")
	}

	ev, err := b.space.Evaluate(ctx, scoring.Subject{Space: in.Space, Overrides: in.Overrides})
	if err != nil {
		return nil, eris.Wrap(err, "certificate: evaluate space")
	}

	sp := in.Space
	cert := &model.SpaceCertificate{
		Meta: b.meta(in.Tier),
		PropertyIdentity: model.SpaceIdentity{
			Title:        fmt.Sprintf("%s in %s", sp.PropertyType, sp.NeighborhoodOr(sp.City)),
			City:         sp.City,
			PropertyType: sp.PropertyType,
			AreaM2:       sp.AreaM2,
			Floor:        sp.Floor,
		},
		ExperienceBarometer: model.Barometer{
			State:       ev.State,
			Trajectory:  ev.Trajectory,
			OneSentence: ev.OneSentence,
		},
		ExperienceCapital: ev.Capital,
		Signals:           ev.Signals,
		EditorialSummary:  ev.EditorialSummary,
	}

	if in.Tier == model.TierPro {
		ground := sp.Floor == model.FloorGround
		cert.SilenceAndDrift = spaceSilence(ground)
		cert.PeerGravity = peerGravity(sp, ground)
		cert.ExperienceTension = experienceTension(sp, ground)
		cert.StrategicRisks = spaceRisks(sp)
		cert.Evidence = spaceEvidence()
	}
	return cert, nil
}

func spaceSilence(ground bool) *model.SilenceAndDrift {
	access := "Lift dependency and breakdown response time"
	if ground {
		access = "Street-level noise and privacy exposure"
	}
	return &model.SilenceAndDrift{
		MissingElements: []string{
			"Actual light conditions across seasons",
			"Neighbor proximity and soundproofing quality",
			"Building maintenance history and upcoming works",
		},
		HiddenRisks: []string{
			access,
			"Heating/cooling efficiency in actual use",
			"Storage limitations with typical furniture",
		},
		OverlookedOpportunities: []string{
			"Renovation potential within building regulations",
			"Comparable sales momentum in immediate area",
			"Neighborhood infrastructure development plans",
		},
	}
}

func peerGravity(sp *model.Space, ground bool) *model.PeerGravity {
	position := "Mid-market positioned"
	switch {
	case sp.AreaM2 > 60:
		position = "Premium positioned"
	case sp.AreaM2 < 40:
		position = "Entry-level positioned"
	}
	floorNote := "Floor position is typical for segment."
	if ground {
		floorNote = "Ground access adds differentiation."
	}
	return &model.PeerGravity{
		ComparableSegment: fmt.Sprintf("%s apartments in %s central areas", sp.PropertyType, sp.City),
		PerceivedPosition: position,
		Explanation:       fmt.Sprintf("Property competes with similar %s units. %s", sp.PropertyType, floorNote),
	}
}

func experienceTension(sp *model.Space, ground bool) *model.ExperienceTension {
	access := "Upper-floor privacy traded for lift dependency"
	dependency := "Lift reliability and maintenance"
	if ground {
		access = "Ground access traded for reduced privacy"
		dependency = "Street-level noise management"
	}
	scale := "Larger space traded for higher utility costs"
	if sp.AreaM2 < 40 {
		scale = "Compact scale traded for maintenance simplicity"
	}
	return &model.ExperienceTension{
		Compensations: []string{access, scale},
		Dependencies: []string{
			"Building management responsiveness",
			"Immediate neighborhood evolution",
			dependency,
		},
	}
}

func spaceRisks(sp *model.Space) *model.StrategicRisks {
	liquidity := model.SeverityLow
	if sp.AreaM2 < 35 {
		liquidity = model.SeverityMedium
	}
	return &model.StrategicRisks{Risks: []model.StrategicRisk{
		{
			Risk:       "Resale liquidity in economic downturn",
			Severity:   liquidity,
			Mitigation: "Maintain property in competitive condition. Price aligned with comparable sales.",
		},
		{
			Risk:       "Building aging and shared maintenance costs",
			Severity:   model.SeverityMedium,
			Mitigation: "Review condominium reserves and maintenance history. Budget for collective works.",
		},
	}}
}

// Spaces carry no photos, so evidence is the fixed observation set.
func spaceEvidence() *model.Evidence {
	return &model.Evidence{
		PhotoObservations: []string{
			"Listing photos show staged furniture and enhanced lighting",
			"Room dimensions appear typical for property type",
			"Finishes suggest standard market positioning",
		},
		ListingObservations: []string{
			"Standard description language without unique differentiators",
			"Price positioning suggests normal market expectations",
			"Property type and location are primary value drivers",
		},
	}
}

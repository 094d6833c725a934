package scoring

import (
	"context"
	"slices"

	"github.com/rotisserie/eris"

	"github.com/sells-group/rumoo/internal/model"
)

const maxSpaceSignals = 6

var (
	centralNeighborhoods = []string{"Baixa", "Chiado", "Santos", "Príncipe Real"}
	// Príncipe Real counts as central but does not earn the urban energy item.
	energeticNeighborhoods = []string{"Baixa", "Chiado", "Santos"}
)

// SpaceStrategy scores a space from static attributes only: floor, area,
// neighborhood, type and listing price.
type SpaceStrategy struct {
	Editorial EditorialGenerator
}

// NewSpaceStrategy returns a SpaceStrategy using the given editorial
// generator, or templates when nil.
func NewSpaceStrategy(e EditorialGenerator) *SpaceStrategy {
	return &SpaceStrategy{Editorial: editorialOrDefault(e)}
}

func (ss *SpaceStrategy) Name() string { return "space" }

// Evaluate scores the subject's space, honoring any state or trajectory override.
func (ss *SpaceStrategy) Evaluate(ctx context.Context, s Subject) (*Evaluation, error) {
	if s.Space == nil {
		return nil, eris.Wrap(ErrIncompleteSubject, "scoring: space strategy needs a space")
	}
	sp := s.Space

	ev := &Evaluation{
		State:      SpaceState(sp),
		Trajectory: SpaceTrajectory(sp),
		Capital:    spaceCapital(sp),
		Signals:    spaceSignals(sp),
	}
	if s.Overrides != nil {
		if s.Overrides.State != "" {
			ev.State = s.Overrides.State
		}
		if s.Overrides.Trajectory != "" {
			ev.Trajectory = s.Overrides.Trajectory
		}
	}

	in := EditorialInput{
		State:      ev.State,
		Trajectory: ev.Trajectory,
		Signals:    ev.Signals,
		Space:      sp,
	}
	gen := editorialOrDefault(ss.Editorial)
	var err error
	if ev.OneSentence, err = gen.OneSentence(ctx, in); err != nil {
		return nil, eris.Wrap(err, "scoring: one sentence")
	}
	if ev.EditorialSummary, err = gen.Summary(ctx, in); err != nil {
		return nil, eris.Wrap(err, "scoring: editorial summary")
	}
	return ev, nil
}

func isCentral(sp *model.Space) bool {
	return slices.Contains(centralNeighborhoods, sp.NeighborhoodOr(""))
}

// SpaceState classifies a space as Fragile, Strong or Balanced.
func SpaceState(sp *model.Space) string {
	ground := sp.Floor == model.FloorGround
	high := slices.Contains([]string{"4", "5", model.FloorSixPlus, model.FloorAttic}, sp.Floor)
	large := sp.AreaM2 > 60
	small := sp.AreaM2 < 35
	central := isCentral(sp)

	switch {
	case sp.Floor == model.FloorBasement:
		return StateFragile
	case small && high:
		return StateFragile
	case ground && large, central && large, ground && central:
		return StateStrong
	default:
		return StateBalanced
	}
}

// SpaceTrajectory classifies a space as Improving, Declining or Stable.
func SpaceTrajectory(sp *model.Space) string {
	modern := sp.PropertyType == "Loft" || sp.PropertyType == "Studio"
	low := slices.Contains([]string{model.FloorGround, "1", "2"}, sp.Floor)

	switch {
	case modern && sp.AreaM2 > 50:
		return TrajectoryImproving
	case sp.AreaM2 < 35 && !low:
		return TrajectoryDeclining
	default:
		return TrajectoryStable
	}
}

func spaceCapital(sp *model.Space) model.Capital {
	var c model.Capital

	if sp.Floor == model.FloorGround {
		c.Generating = append(c.Generating, "Direct street access")
	}
	if sp.AreaM2 > 60 {
		c.Generating = append(c.Generating, "Generous living space")
	}
	if sp.PropertyType == "Loft" || sp.PropertyType == "Duplex" {
		c.Generating = append(c.Generating, "Vertical living flexibility")
	}
	if slices.Contains(energeticNeighborhoods, sp.NeighborhoodOr("")) {
		c.Generating = append(c.Generating, "Central urban energy")
	}

	if sp.PropertyType == "T1" || sp.PropertyType == "T2" {
		c.Preserving = append(c.Preserving, "Standard layout familiarity")
	}
	if sp.AreaM2 >= 40 && sp.AreaM2 <= 70 {
		c.Preserving = append(c.Preserving, "Manageable maintenance scale")
	}
	if slices.Contains([]string{"1", "2", "3"}, sp.Floor) {
		c.Preserving = append(c.Preserving, "Mid-level privacy balance")
	}

	if sp.AreaM2 < 35 {
		c.Draining = append(c.Draining, "Spatial compression")
	}
	if sp.Floor == model.FloorSixPlus || sp.Floor == model.FloorAttic {
		c.Draining = append(c.Draining, "Vertical access dependency")
	}
	if sp.Floor == model.FloorBasement {
		c.Draining = append(c.Draining, "Natural light scarcity")
	}

	// Every bucket carries at least one entry.
	if len(c.Generating) == 0 {
		c.Generating = []string{"Location accessibility"}
	}
	if len(c.Preserving) == 0 {
		c.Preserving = []string{"Established neighborhood character"}
	}
	if len(c.Draining) == 0 {
		c.Draining = []string{"Urban density trade-offs"}
	}
	return c
}

func spaceSignals(sp *model.Space) []model.Signal {
	signals := make([]model.Signal, 0, maxSpaceSignals)

	switch sp.Floor {
	case model.FloorGround:
		signals = append(signals, model.Signal{
			Name:             "Ground-Level Living",
			State:            model.SignalPositive,
			ShortExplanation: "Direct access eliminates vertical dependency. Supports immediate street connection.",
		})
	case model.FloorSixPlus, model.FloorAttic:
		signals = append(signals, model.Signal{
			Name:             "Elevated Access",
			State:            model.SignalSensitive,
			ShortExplanation: "Requires consistent lift availability. Daily vertical navigation shapes routine.",
		})
	default:
		signals = append(signals, model.Signal{
			Name:             "Mid-Floor Positioning",
			State:            model.SignalNeutral,
			ShortExplanation: "Balanced between ground accessibility and upper privacy. Standard urban experience.",
		})
	}

	switch {
	case sp.AreaM2 > 70:
		signals = append(signals, model.Signal{
			Name:             "Room to Breathe",
			State:            model.SignalPositive,
			ShortExplanation: "Space permits functional separation and storage flexibility. Supports multi-activity living.",
		})
	case sp.AreaM2 < 35:
		signals = append(signals, model.Signal{
			Name:             "Compact Footprint",
			State:            model.SignalSensitive,
			ShortExplanation: "Every square meter counts. Requires disciplined organization and selective furniture.",
		})
	default:
		signals = append(signals, model.Signal{
			Name:             "Standard Dimensions",
			State:            model.SignalNeutral,
			ShortExplanation: "Typical urban scale. Supports basic living functions without excess.",
		})
	}

	if isCentral(sp) {
		signals = append(signals, model.Signal{
			Name:             "Central Gravity",
			State:            model.SignalPositive,
			ShortExplanation: "Walking distance to cultural and commercial infrastructure. Urban energy proximity.",
		})
	} else {
		signals = append(signals, model.Signal{
			Name:             "Residential Calm",
			State:            model.SignalNeutral,
			ShortExplanation: "Quieter neighborhood positioning. Prioritizes residential rhythm over immediate amenity access.",
		})
	}

	switch sp.PropertyType {
	case "Studio":
		signals = append(signals, model.Signal{
			Name:             "Open-Plan Living",
			State:            model.SignalNeutral,
			ShortExplanation: "Single-space lifestyle. Requires intentional zoning through furniture and lighting.",
		})
	case "T3", "T4":
		signals = append(signals, model.Signal{
			Name:             "Room Abundance",
			State:            model.SignalPositive,
			ShortExplanation: "Multiple private zones enable household flexibility. Supports work-from-home and guests.",
		})
	}

	if sp.ListingPrice != nil && *sp.ListingPrice > 0 && sp.AreaM2 > 0 {
		perM2 := *sp.ListingPrice / sp.AreaM2
		switch {
		case perM2 > 6000:
			signals = append(signals, model.Signal{
				Name:             "Premium Positioning",
				State:            model.SignalSensitive,
				ShortExplanation: "Price signals high market expectations. Property must deliver exceptional fundamentals.",
			})
		case perM2 < 3500:
			signals = append(signals, model.Signal{
				Name:             "Value Entry Point",
				State:            model.SignalPositive,
				ShortExplanation: "Below-median pricing creates opportunity. May indicate negotiation flexibility.",
			})
		}
	}

	if len(signals) > maxSpaceSignals {
		signals = signals[:maxSpaceSignals]
	}
	return signals
}

// ValidateSpace returns one message per missing or invalid required field.
func ValidateSpace(sp *model.Space) []string {
	var errs []string
	if sp.Name == "" {
		errs = append(errs, "name is required")
	}
	if sp.City == "" {
		errs = append(errs, "city is required")
	}
	if sp.PropertyType == "" {
		errs = append(errs, "property_type is required")
	}
	if sp.Floor == "" {
		errs = append(errs, "floor is required")
	}
	if sp.AreaM2 <= 0 {
		errs = append(errs, "area_m2 must be positive")
	}
	return errs
}

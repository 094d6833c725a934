package scoring

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/rumoo/internal/model"
)

// VerificationReminder closes every property editorial summary.
const VerificationReminder = "In-person verification is essential before any decision."

// EditorialInput carries the scored facts an editorial generator may phrase.
// Exactly one of Property (with Location) or Space is set.
type EditorialInput struct {
	State      string
	Trajectory string
	Signals    []model.Signal
	PhotoLine  string
	Property   *model.Property
	Location   *model.LocationInsight
	Space      *model.Space
}

// EditorialGenerator produces the free-text parts of a certificate.
type EditorialGenerator interface {
	OneSentence(ctx context.Context, in EditorialInput) (string, error)
	Summary(ctx context.Context, in EditorialInput) (string, error)
}

// TemplateEditorial is the deterministic default generator.
type TemplateEditorial struct{}

var spaceSentences = map[string]string{
	StateStrong + "-" + TrajectoryImproving:   "%s combines strong fundamentals with upward momentum.",
	StateStrong + "-" + TrajectoryStable:      "%s delivers consistent quality in established configuration.",
	StateStrong + "-" + TrajectoryDeclining:   "%s maintains core strengths despite market pressure.",
	StateBalanced + "-" + TrajectoryImproving: "%s shows promise as fundamentals strengthen.",
	StateBalanced + "-" + TrajectoryStable:    "%s offers typical urban living without extremes.",
	StateBalanced + "-" + TrajectoryDeclining: "%s faces ordinary challenges in competitive segment.",
	StateFragile + "-" + TrajectoryImproving:  "%s requires attention as it develops from weak base.",
	StateFragile + "-" + TrajectoryStable:     "%s maintains fragile equilibrium with ongoing dependencies.",
	StateFragile + "-" + TrajectoryDeclining:  "%s shows compounding vulnerabilities requiring mitigation.",
}

// OneSentence renders the barometer line.
func (TemplateEditorial) OneSentence(_ context.Context, in EditorialInput) (string, error) {
	if in.Space != nil {
		tmpl, ok := spaceSentences[in.State+"-"+in.Trajectory]
		if !ok {
			tmpl = "%s presents typical urban living characteristics."
		}
		return fmt.Sprintf(tmpl, in.Space.PropertyType), nil
	}
	if in.Property == nil || in.Location == nil {
		return "", ErrIncompleteSubject
	}
	kind := in.Property.PropertyType
	if kind == "" {
		kind = "Property"
	}
	return fmt.Sprintf("%s in %s neighbourhood with %s daily convenience.",
		kind, in.Location.NeighbourhoodEnergy, in.Location.DailyConvenience), nil
}

// Summary renders the editorial paragraph.
func (TemplateEditorial) Summary(_ context.Context, in EditorialInput) (string, error) {
	if in.Space != nil {
		return spaceSummary(in), nil
	}
	if in.Property == nil || in.Location == nil {
		return "", ErrIncompleteSubject
	}
	p, loc := in.Property, in.Location
	kind := p.PropertyType
	if kind == "" {
		kind = "property"
	}
	traffic := "Acoustic conditions appear manageable from available data."
	if loc.TrafficExposure == TrafficHigh {
		traffic = "Traffic noise requires investigation before committing."
	}
	return fmt.Sprintf("This %s at %s presents a %s experience profile. %s The location offers %s daily convenience in a %s neighbourhood. %s %s",
		kind, p.Address, cases.Lower(language.English).String(in.State), in.PhotoLine,
		loc.DailyConvenience, loc.NeighbourhoodEnergy, traffic, VerificationReminder), nil
}

func spaceSummary(in EditorialInput) string {
	sp := in.Space
	place := sp.NeighborhoodOr(sp.City)
	area := int(math.Round(sp.AreaM2))
	positive := countSignals(in.Signals, model.SignalPositive)
	sensitive := countSignals(in.Signals, model.SignalSensitive)

	switch {
	case positive > sensitive:
		return fmt.Sprintf("This %s in %s demonstrates balanced fundamentals. The %dm² layout on floor %s supports standard urban living patterns. "+
			"Key strengths include spatial adequacy and neighborhood positioning. Standard urban trade-offs apply, requiring typical resident adaptations. "+
			"Property functions within expected parameters for its category.",
			sp.PropertyType, place, area, sp.Floor)
	case sensitive > positive:
		return fmt.Sprintf("This %s requires careful evaluation of %d sensitive factors. The %dm² space on floor %s presents characteristic urban constraints. "+
			"Residents should anticipate ongoing management of identified dependencies. Success here demands intentional lifestyle alignment with space limitations. "+
			"Consider carefully before proceeding.",
			sp.PropertyType, sensitive, area, sp.Floor)
	default:
		return fmt.Sprintf("This %s presents standard characteristics for its category in %s. The %dm² configuration on floor %s neither excels nor disappoints significantly. "+
			"Property delivers typical urban experience with predictable trade-offs. Suitable for buyers seeking conventional city living without distinctive features.",
			sp.PropertyType, place, area, sp.Floor)
	}
}

package scoring

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/rumoo/internal/model"
)

// Experience states.
const (
	StateStrong    = "Strong"
	StateStable    = "Stable"
	StateBalanced  = "Balanced"
	StateFragile   = "Fragile"
	StateDeclining = "Declining"
)

// Trajectories.
const (
	TrajectoryImproving = "Improving"
	TrajectoryStable    = "Stable"
	TrajectoryDeclining = "Declining"
)

// Subject is everything a strategy may look at. Property strategies read
// Property, Location and Photos; space strategies read Space and Overrides.
type Subject struct {
	Property  *model.Property
	Location  *model.LocationInsight
	Photos    *model.PhotoInsights
	Space     *model.Space
	Overrides *model.StateOverrides
}

// Evaluation is the deterministic assessment a certificate is built from.
type Evaluation struct {
	Score            int
	State            string
	Trajectory       string
	Capital          model.Capital
	Signals          []model.Signal
	Checklist        []model.ChecklistItem
	OneSentence      string
	EditorialSummary string
	PhotoLine        string
}

// Strategy scores one kind of subject.
type Strategy interface {
	Name() string
	Evaluate(ctx context.Context, s Subject) (*Evaluation, error)
}

// ErrIncompleteSubject is returned when a strategy is handed a subject
// missing the inputs it scores.
var ErrIncompleteSubject = eris.New("scoring: incomplete subject")

func editorialOrDefault(e EditorialGenerator) EditorialGenerator {
	if e == nil {
		return TemplateEditorial{}
	}
	return e
}

func countSignals(signals []model.Signal, state model.SignalState) int {
	n := 0
	for _, s := range signals {
		if s.State == state {
			n++
		}
	}
	return n
}

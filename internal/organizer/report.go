package organizer

import (
	"github.com/sandily/bidskit/internal/materialize"
	"github.com/sandily/bidskit/internal/purpose"
	"github.com/sandily/bidskit/internal/walker"
)

// Placement is one artifact handled while organizing a unit.
type Placement struct {
	Kind        purpose.ArtifactKind
	Destination string
	Outcome     materialize.Outcome
}

// UnitReport tallies what happened to a unit's series and artifacts.
type UnitReport struct {
	Unit       walker.Unit
	Series     int
	Rejected   int
	Excluded   int
	Discarded  int
	Skipped    int
	Created    int
	Replaced   int
	Preserved  int
	Warnings   int
	Placements []Placement
}

func (r *UnitReport) skip() {
	r.Skipped++
	r.Warnings++
}

func (r *UnitReport) count(outcome materialize.Outcome) {
	switch outcome {
	case materialize.OutcomeCreated:
		r.Created++
	case materialize.OutcomeReplaced:
		r.Replaced++
	case materialize.OutcomePreserved:
		r.Preserved++
	}
}

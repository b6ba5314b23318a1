package refine

import (
	"fmt"

	"github.com/grailbio/svmerge/sv"
)

// State is the refinement state of one region.
type State int

const (
	// Pending regions have not started.
	Pending State = iota
	// Extracting collects the region's reads.
	Extracting
	// Assembling runs the assembler.
	Assembling
	// Aligning runs the aligner.
	Aligning
	// Refined regions produced at least one breakpoint.  Terminal.
	Refined
	// Fallback regions failed somewhere and keep their input calls.
	// Terminal.
	Fallback
	// Skipped regions were not scheduled for assembly.  Terminal.
	Skipped
)

var stateNames = [...]string{"PENDING", "EXTRACTING", "ASSEMBLING", "ALIGNING", "REFINED", "FALLBACK", "SKIPPED"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// Terminal is true for Refined, Fallback and Skipped.
func (s State) Terminal() bool {
	return s == Refined || s == Fallback || s == Skipped
}

// Outcome maps a terminal state to the outcome recorded on calls.
func (s State) Outcome() sv.Outcome {
	switch s {
	case Refined:
		return sv.Refined
	case Fallback:
		return sv.Fallback
	case Skipped:
		return sv.Skipped
	}
	return sv.Unrefined
}

// next lists the legal transitions.  Every non-terminal state may also fall
// back.
var next = map[State][]State{
	Pending:    {Extracting, Skipped},
	Extracting: {Assembling},
	Assembling: {Aligning},
	Aligning:   {Refined},
}

// canMove checks whether from -> to is a legal transition.
func canMove(from, to State) bool {
	if from.Terminal() {
		return false
	}
	if to == Fallback {
		return true
	}
	for _, s := range next[from] {
		if s == to {
			return true
		}
	}
	return false
}

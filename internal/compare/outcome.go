package compare

import (
	"github.com/roach88/parity/internal/jsondiff"
)

// Outcome is the classification of one paired comparison.
//
// This is a sealed interface; only the types in this package implement it.
type Outcome interface {
	isOutcome()
}

// Match means both responses were equal.
type Match struct{}

// Mismatch means both requests succeeded but the documents differ.
type Mismatch struct {
	Left  Body
	Right Body
	Diffs []jsondiff.Difference
}

// LeftError means only the left request failed.
type LeftError struct {
	Message string
}

// RightError means only the right request failed.
type RightError struct {
	Message string
}

// BothError means both requests failed.
type BothError struct {
	Left  string
	Right string
}

func (Match) isOutcome()      {}
func (Mismatch) isOutcome()   {}
func (LeftError) isOutcome()  {}
func (RightError) isOutcome() {}
func (BothError) isOutcome()  {}

// Same reports whether both sides failed with byte-identical messages.
func (b BothError) Same() bool {
	return b.Left == b.Right
}

// Name returns the snake_case name of an outcome, as stored in the run log.
func Name(o Outcome) string {
	switch o.(type) {
	case Match:
		return "match"
	case Mismatch:
		return "mismatch"
	case LeftError:
		return "left_error"
	case RightError:
		return "right_error"
	case BothError:
		return "both_error"
	default:
		return "unknown"
	}
}

// Target addresses one comparison.
type Target struct {
	// ID is the primary identifier, usually a block number.
	ID uint64
	// Index is the sub-index for fan-out comparisons, nil otherwise.
	Index *uint64
	// Resource names the pallet or account, empty when not iterated.
	Resource string

	LeftURL  string
	RightURL string
}

// Result pairs a target with its outcome.
type Result struct {
	Target  Target
	Outcome Outcome
}

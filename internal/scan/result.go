package scan

import (
	"time"

	"github.com/roach88/parity/internal/coverage"
)

// Issue kinds beyond the comparison outcome names.
const (
	KindLookupError = "lookup_error"
)

// Issue is one non-agreeing comparison.
type Issue struct {
	// ID is the block number, or 0 for flat endpoints.
	ID uint64
	// Index is the extrinsic index for fan-out endpoints.
	Index *uint64
	// Resource is the pallet name or account address, if iterated.
	Resource string
	// Kind is the outcome name (e.g. "mismatch") or KindLookupError.
	Kind    string
	Message string
	// LeftBody and RightBody are the raw documents of a mismatch.
	LeftBody  []byte
	RightBody []byte
}

// ResourceResult is the tally for one resource. Endpoints that do not
// iterate resources produce a single ResourceResult with an empty Name.
type ResourceResult struct {
	Name string
	// Label is a display name, e.g. an account label. Empty when Name is
	// already readable.
	Label    string
	Counters coverage.Counters
	Issues   []Issue
}

// DisplayName returns Label when set, Name otherwise.
func (r ResourceResult) DisplayName() string {
	if r.Label != "" {
		return r.Label
	}
	return r.Name
}

// RunResult is everything one scan produced.
type RunResult struct {
	RunID    string
	Chain    string
	Endpoint string
	LeftURL  string
	RightURL string
	// Ranged is false for flat endpoints; Start and End are meaningless then.
	Ranged     bool
	Start      uint64
	End        uint64
	Resources  []ResourceResult
	StartedAt  time.Time
	FinishedAt time.Time
}

// Totals sums the counters of every resource.
func (r *RunResult) Totals() coverage.Counters {
	var total coverage.Counters
	for _, rr := range r.Resources {
		total.Add(rr.Counters)
	}
	return total
}

// IssueCount returns the number of recorded issues.
func (r *RunResult) IssueCount() int {
	n := 0
	for _, rr := range r.Resources {
		n += len(rr.Issues)
	}
	return n
}

// Duration returns how long the scan took.
func (r *RunResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

package cli

import (
	"time"

	"github.com/roach88/parity/internal/coverage"
	"github.com/roach88/parity/internal/scan"
	"github.com/roach88/parity/internal/store"
)

// runView is the JSON form of a scan result.
type runView struct {
	RunID     string            `json:"run_id,omitempty"`
	Chain     string            `json:"chain"`
	Endpoint  string            `json:"endpoint"`
	Start     *uint64           `json:"start,omitempty"`
	End       *uint64           `json:"end,omitempty"`
	Totals    coverage.Counters `json:"totals"`
	PassRate  float64           `json:"pass_rate"`
	Resources []resourceView    `json:"resources,omitempty"`
	StartedAt time.Time         `json:"started_at"`
	Duration  string            `json:"duration"`
}

type resourceView struct {
	Name     string            `json:"name,omitempty"`
	Label    string            `json:"label,omitempty"`
	Counters coverage.Counters `json:"counters"`
	Issues   []issueView       `json:"issues,omitempty"`
}

type issueView struct {
	Block   uint64  `json:"block"`
	Index   *uint64 `json:"index,omitempty"`
	Kind    string  `json:"kind"`
	Message string  `json:"message"`
}

func newRunView(r *scan.RunResult) runView {
	totals := r.Totals()
	v := runView{
		RunID:     r.RunID,
		Chain:     r.Chain,
		Endpoint:  r.Endpoint,
		Totals:    totals,
		PassRate:  totals.PassRate(),
		StartedAt: r.StartedAt,
		Duration:  r.Duration().String(),
	}
	if r.Ranged {
		start, end := r.Start, r.End
		v.Start, v.End = &start, &end
	}
	for _, rr := range r.Resources {
		rv := resourceView{Name: rr.Name, Label: rr.Label, Counters: rr.Counters}
		for _, issue := range rr.Issues {
			rv.Issues = append(rv.Issues, issueView{
				Block:   issue.ID,
				Index:   issue.Index,
				Kind:    issue.Kind,
				Message: issue.Message,
			})
		}
		v.Resources = append(v.Resources, rv)
	}
	return v
}

// runRowView is the JSON form of a run log row.
type runRowView struct {
	ID         string            `json:"id"`
	Chain      string            `json:"chain"`
	Endpoint   string            `json:"endpoint"`
	Start      *uint64           `json:"start,omitempty"`
	End        *uint64           `json:"end,omitempty"`
	Status     string            `json:"status"`
	Error      string            `json:"error,omitempty"`
	Totals     coverage.Counters `json:"totals"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt *time.Time        `json:"finished_at,omitempty"`
}

func newRunRowView(r store.Run) runRowView {
	v := runRowView{
		ID:        r.ID,
		Chain:     r.Chain,
		Endpoint:  r.Endpoint,
		Status:    string(r.Status),
		Error:     r.Error,
		Totals:    r.Totals,
		StartedAt: r.StartedAt,
	}
	if r.Ranged {
		start, end := r.Start, r.End
		v.Start, v.End = &start, &end
	}
	if !r.FinishedAt.IsZero() {
		finished := r.FinishedAt
		v.FinishedAt = &finished
	}
	return v
}

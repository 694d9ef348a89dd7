package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/parity/internal/coverage"
	"github.com/roach88/parity/internal/scan"
)

// Run is one row of the run log.
type Run struct {
	ID       string
	Chain    string
	Endpoint string
	Ranged   bool
	Start    uint64
	End      uint64
	LeftURL  string
	RightURL string
	// FinishedAt is zero while the run is in progress.
	StartedAt  time.Time
	FinishedAt time.Time
	Status     Status
	Error      string
	Totals     coverage.Counters
}

const runColumns = `
	id, chain, endpoint, ranged, start_block, end_block, left_url, right_url,
	started_at, finished_at, status, error,
	matched, mismatched, left_errors, right_errors, both_errors_differing
`

// ReadRun returns the run with the given ID, or ErrRunNotFound.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("read run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns up to limit runs, newest first. A limit <= 0 returns all
// runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	return runs, nil
}

// ReadIssues returns a run's issues in arrival order.
func (s *Store) ReadIssues(ctx context.Context, runID string) ([]scan.Issue, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT resource, identifier, idx, kind, message, left_body, right_body
		FROM issues
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("read issues: %w", err)
	}
	defer rows.Close()

	var issues []scan.Issue
	for rows.Next() {
		var (
			issue       scan.Issue
			id          int64
			index       sql.NullInt64
			left, right sql.NullString
		)
		if err := rows.Scan(&issue.Resource, &id, &index, &issue.Kind, &issue.Message, &left, &right); err != nil {
			return nil, fmt.Errorf("read issues: %w", err)
		}
		issue.ID = uint64(id)
		if index.Valid {
			i := uint64(index.Int64)
			issue.Index = &i
		}
		if left.Valid {
			issue.LeftBody = []byte(left.String)
		}
		if right.Valid {
			issue.RightBody = []byte(right.String)
		}
		issues = append(issues, issue)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read issues: %w", err)
	}

	return issues, nil
}

// IssueCounts returns the number of issues of each kind in a run.
func (s *Store) IssueCounts(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, COUNT(*) FROM issues WHERE run_id = ? GROUP BY kind
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("issue counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			kind string
			n    int
		)
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("issue counts: %w", err)
		}
		counts[kind] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("issue counts: %w", err)
	}
	return counts, nil
}

// LoadResult rebuilds the scan result of a stored run. Issues recorded for a
// resource that never finished are attached to a zero-count entry.
func (s *Store) LoadResult(ctx context.Context, id string) (*scan.RunResult, error) {
	run, err := s.ReadRun(ctx, id)
	if err != nil {
		return nil, err
	}

	resources, err := s.readResources(ctx, id)
	if err != nil {
		return nil, err
	}
	issues, err := s.ReadIssues(ctx, id)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]int, len(resources))
	for i, rr := range resources {
		byName[rr.Name] = i
	}
	for _, issue := range issues {
		i, ok := byName[issue.Resource]
		if !ok {
			resources = append(resources, scan.ResourceResult{Name: issue.Resource})
			i = len(resources) - 1
			byName[issue.Resource] = i
		}
		resources[i].Issues = append(resources[i].Issues, issue)
	}

	return &scan.RunResult{
		RunID:      run.ID,
		Chain:      run.Chain,
		Endpoint:   run.Endpoint,
		LeftURL:    run.LeftURL,
		RightURL:   run.RightURL,
		Ranged:     run.Ranged,
		Start:      run.Start,
		End:        run.End,
		Resources:  resources,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
	}, nil
}

func (s *Store) readResources(ctx context.Context, runID string) ([]scan.ResourceResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, label, matched, mismatched, left_errors, right_errors, both_errors_differing
		FROM run_resources
		WHERE run_id = ?
		ORDER BY pos ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("read resources: %w", err)
	}
	defer rows.Close()

	var out []scan.ResourceResult
	for rows.Next() {
		var rr scan.ResourceResult
		dest := append([]any{&rr.Name, &rr.Label}, counterDest(&rr.Counters)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("read resources: %w", err)
		}
		out = append(out, rr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read resources: %w", err)
	}
	return out, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run             Run
		start, end      int64
		started, status string
		finished        sql.NullString
	)
	dest := []any{
		&run.ID, &run.Chain, &run.Endpoint, &run.Ranged, &start, &end, &run.LeftURL, &run.RightURL,
		&started, &finished, &status, &run.Error,
	}
	dest = append(dest, counterDest(&run.Totals)...)
	if err := row.Scan(dest...); err != nil {
		return Run{}, err
	}

	run.Start, run.End = uint64(start), uint64(end)
	run.Status = Status(status)

	var err error
	if run.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return Run{}, fmt.Errorf("started_at: %w", err)
	}
	if finished.Valid {
		if run.FinishedAt, err = time.Parse(time.RFC3339Nano, finished.String); err != nil {
			return Run{}, fmt.Errorf("finished_at: %w", err)
		}
	}
	return run, nil
}

func counterDest(c *coverage.Counters) []any {
	return []any{&c.Matched, &c.Mismatched, &c.LeftErrors, &c.RightErrors, &c.BothErrorsDiffering}
}

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/parity/internal/scan"
)

// Status is the lifecycle state of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// BeginRun inserts a run in the running state and returns its ID. When
// run.ID is empty a new ID is generated.
func (s *Store) BeginRun(ctx context.Context, run Run) (string, error) {
	if run.ID == "" {
		run.ID = s.ids.Generate()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, chain, endpoint, ranged, start_block, end_block, left_url, right_url, started_at, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Chain,
		run.Endpoint,
		run.Ranged,
		int64(run.Start),
		int64(run.End),
		run.LeftURL,
		run.RightURL,
		formatTime(run.StartedAt),
		string(StatusRunning),
	)
	if err != nil {
		return "", fmt.Errorf("begin run: %w", err)
	}

	return run.ID, nil
}

// RecordIssue appends an issue to a run. Issues are numbered in arrival
// order. RecordIssue satisfies scan.Recorder.
//
// Note: The run must exist (foreign key constraint).
func (s *Store) RecordIssue(ctx context.Context, runID string, issue scan.Issue) error {
	var index sql.NullInt64
	if issue.Index != nil {
		index = sql.NullInt64{Int64: int64(*issue.Index), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO issues
		(run_id, seq, resource, identifier, idx, kind, message, left_body, right_body)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM issues WHERE run_id = ?), ?, ?, ?, ?, ?, ?, ?)
	`,
		runID,
		runID,
		issue.Resource,
		int64(issue.ID),
		index,
		issue.Kind,
		issue.Message,
		nullBody(issue.LeftBody),
		nullBody(issue.RightBody),
	)
	if err != nil {
		return fmt.Errorf("record issue: %w", err)
	}

	return nil
}

// FinishRun stores the outcome of a run: its finish time, totals, and
// per-resource tallies. A non-nil runErr marks the run failed.
//
// The update and the resource inserts commit together.
func (s *Store) FinishRun(ctx context.Context, result *scan.RunResult, runErr error) error {
	status, message := StatusCompleted, ""
	if runErr != nil {
		status, message = StatusFailed, runErr.Error()
	}
	totals := result.Totals()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE runs SET
			finished_at = ?, status = ?, error = ?,
			matched = ?, mismatched = ?, left_errors = ?, right_errors = ?, both_errors_differing = ?
		WHERE id = ?
	`,
		formatTime(result.FinishedAt),
		string(status),
		message,
		int64(totals.Matched),
		int64(totals.Mismatched),
		int64(totals.LeftErrors),
		int64(totals.RightErrors),
		int64(totals.BothErrorsDiffering),
		result.RunID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: %w", result.RunID, ErrRunNotFound)
	}

	for pos, rr := range result.Resources {
		c := rr.Counters
		_, err := tx.ExecContext(ctx, `
			INSERT INTO run_resources
			(run_id, pos, name, label, matched, mismatched, left_errors, right_errors, both_errors_differing)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			result.RunID,
			pos,
			rr.Name,
			rr.Label,
			int64(c.Matched),
			int64(c.Mismatched),
			int64(c.LeftErrors),
			int64(c.RightErrors),
			int64(c.BothErrorsDiffering),
		)
		if err != nil {
			return fmt.Errorf("finish run: resource %q: %w", rr.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func nullBody(b []byte) sql.NullString {
	if b == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}

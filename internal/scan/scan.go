package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"

	"github.com/roach88/parity/internal/compare"
	"github.com/roach88/parity/internal/coverage"
	"github.com/roach88/parity/internal/endpoint"
	"github.com/roach88/parity/internal/jsondiff"
)

// Defaults for Config fields.
const (
	DefaultBatchSize = 100
	DefaultDelay     = 100 * time.Millisecond
)

// progressEvery is the identifier stride between progress log lines.
const progressEvery = 1000

// Config describes one scan.
type Config struct {
	// RunID identifies the run in the run log; optional.
	RunID    string
	Chain    string
	Endpoint *endpoint.Endpoint
	LeftURL  string
	RightURL string
	// Start and End bound the block range, inclusive. Ignored for flat
	// endpoints.
	Start     uint64
	End       uint64
	BatchSize int
	Delay     time.Duration
	// TotalResources is stored on the chain coverage when non-zero.
	TotalResources int
}

// Validate checks the configuration before any request is made.
func (c Config) Validate() error {
	if c.Endpoint == nil {
		return errors.New("scan: endpoint is required")
	}
	if c.LeftURL == "" || c.RightURL == "" {
		return errors.New("scan: both left and right URLs are required")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("scan: batch size must be positive, got %d", c.BatchSize)
	}
	if c.Endpoint.Ranged() && c.Start > c.End {
		return fmt.Errorf("scan: start block %d is after end block %d", c.Start, c.End)
	}
	return nil
}

// Recorder receives every issue as it is aggregated. A Recorder error
// aborts the scan.
type Recorder interface {
	RecordIssue(ctx context.Context, runID string, issue Issue) error
}

// Scanner runs scans. It is safe to reuse across sequential runs.
type Scanner struct {
	cmp      *compare.Comparator
	logger   *slog.Logger
	recorder Recorder
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithLogger sets the progress logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scanner) {
		s.logger = l
	}
}

// WithRecorder attaches a run log.
func WithRecorder(r Recorder) Option {
	return func(s *Scanner) {
		s.recorder = r
	}
}

// WithClock replaces the wall clock used for run and coverage timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Scanner) {
		s.now = now
	}
}

// New returns a Scanner comparing with cmp.
func New(cmp *compare.Comparator, opts ...Option) *Scanner {
	s := &Scanner{
		cmp:    cmp,
		logger: slog.Default(),
		now:    time.Now,
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run scans space and folds the results into cov, which may be nil. The
// returned RunResult is populated even when Run fails part way.
func (s *Scanner) Run(ctx context.Context, cfg Config, space Space, cov *coverage.Store) (*RunResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	_, flat := space.(FlatSpace)
	r := &run{
		Scanner: s,
		cfg:     cfg,
		cov:     cov,
		result: &RunResult{
			RunID:     cfg.RunID,
			Chain:     cfg.Chain,
			Endpoint:  cfg.Endpoint.Name,
			LeftURL:   cfg.LeftURL,
			RightURL:  cfg.RightURL,
			Ranged:    !flat,
			Start:     cfg.Start,
			End:       cfg.End,
			StartedAt: s.now(),
		},
	}
	if cov != nil {
		cov.Chain(cfg.Chain, cfg.TotalResources)
	}

	s.logger.Info("scan started",
		"chain", cfg.Chain,
		"endpoint", cfg.Endpoint.Name,
		"start", cfg.Start,
		"end", cfg.End,
		"batch_size", cfg.BatchSize,
	)

	err := space.drive(ctx, r)
	r.result.FinishedAt = s.now()
	if err != nil {
		return r.result, err
	}

	totals := r.result.Totals()
	s.logger.Info("scan finished",
		"endpoint", cfg.Endpoint.Name,
		"matched", totals.Matched,
		"total", totals.Total(),
		"issues", r.result.IssueCount(),
	)
	return r.result, nil
}

// run is the state of one scan. It is only touched by the goroutine that
// called Run.
type run struct {
	*Scanner
	cfg     Config
	cov     *coverage.Store
	result  *RunResult
	started bool
}

func (r *run) target(p endpoint.Params, id uint64, index *uint64, resource string) (compare.Target, error) {
	path, err := r.cfg.Endpoint.Path(p)
	if err != nil {
		return compare.Target{}, err
	}
	return compare.Target{
		ID:       id,
		Index:    index,
		Resource: resource,
		LeftURL:  joinURL(r.cfg.LeftURL, path),
		RightURL: joinURL(r.cfg.RightURL, path),
	}, nil
}

// windows calls fn for each batch-sized window of the block range, sleeping
// the configured delay between windows. Cancellation is only observed
// between windows: a dispatched window is fetched and folded in full.
func (r *run) windows(ctx context.Context, label string, fn func(ctx context.Context, lo, hi uint64) error) error {
	batch := uint64(r.cfg.BatchSize)
	lo := r.cfg.Start
	for {
		hi := r.cfg.End
		if r.cfg.End-lo >= batch {
			hi = lo + batch - 1
		}

		if err := r.pause(ctx); err != nil {
			return err
		}
		if lo == r.cfg.Start || hi/progressEvery > (lo-1)/progressEvery {
			r.logger.Info("processing blocks", "from", lo, "to", hi, "resource", label)
		}

		if err := fn(context.WithoutCancel(ctx), lo, hi); err != nil {
			return err
		}
		if hi == r.cfg.End {
			return nil
		}
		lo = hi + 1
	}
}

// pause sleeps before every window except the first of the run.
func (r *run) pause(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !r.started {
		r.started = true
		return nil
	}
	return r.sleep(ctx, r.cfg.Delay)
}

// compareAll runs one comparison per target, at most BatchSize at a time,
// and returns the results ordered by identifier.
func (r *run) compareAll(ctx context.Context, targets []compare.Target) ([]compare.Result, error) {
	if len(targets) == 0 {
		return nil, nil
	}

	results := make(chan compare.Result, len(targets))
	var pc panics.Catcher
	p := pool.New().WithMaxGoroutines(r.cfg.BatchSize)
	for _, t := range targets {
		p.Go(func() {
			pc.Try(func() {
				results <- r.cmp.Compare(ctx, t)
			})
		})
	}
	p.Wait()
	close(results)

	if rec := pc.Recovered(); rec != nil {
		return nil, fmt.Errorf("comparison task panicked: %w", rec.AsError())
	}

	out := make([]compare.Result, 0, len(targets))
	for res := range results {
		out = append(out, res)
	}
	slices.SortFunc(out, func(a, b compare.Result) int {
		return compareTargets(a.Target, b.Target)
	})
	return out, nil
}

func compareTargets(a, b compare.Target) int {
	if c := strings.Compare(a.Resource, b.Resource); c != 0 {
		return c
	}
	if a.ID != b.ID {
		if a.ID < b.ID {
			return -1
		}
		return 1
	}
	ai, bi := indexOf(a.Index), indexOf(b.Index)
	switch {
	case ai < bi:
		return -1
	case ai > bi:
		return 1
	default:
		return 0
	}
}

func indexOf(p *uint64) uint64 {
	if p == nil {
		return 0
	}
	return *p
}

func (r *run) foldAll(ctx context.Context, rr *ResourceResult, results []compare.Result) error {
	for _, res := range results {
		if err := r.fold(ctx, rr, res); err != nil {
			return err
		}
	}
	return nil
}

// fold applies one result to the resource tally.
func (r *run) fold(ctx context.Context, rr *ResourceResult, res compare.Result) error {
	t := res.Target
	issue := Issue{ID: t.ID, Index: t.Index, Resource: t.Resource, Kind: compare.Name(res.Outcome)}

	switch o := res.Outcome.(type) {
	case compare.Match:
		rr.Counters.Matched++
		return nil
	case compare.Mismatch:
		rr.Counters.Mismatched++
		r.logMismatch(t, o.Diffs)
		issue.Message = "MISMATCH - " + jsondiff.Summarize(o.Diffs)
		issue.LeftBody = o.Left.Raw
		issue.RightBody = o.Right.Raw
	case compare.LeftError:
		rr.Counters.LeftErrors++
		r.logger.Warn("left error", "id", displayID(t), "error", o.Message)
		issue.Message = "LEFT ERROR: " + o.Message
	case compare.RightError:
		rr.Counters.RightErrors++
		r.logger.Warn("right error", "id", displayID(t), "error", o.Message)
		issue.Message = "RIGHT ERROR: " + o.Message
	case compare.BothError:
		// Identical failures count as agreement. This also hides
		// error-path coverage: two servers rejecting the same bad input look
		// the same as two servers returning the same document.
		if o.Same() {
			rr.Counters.Matched++
			return nil
		}
		rr.Counters.BothErrorsDiffering++
		r.logger.Warn("both sides failed differently", "id", displayID(t), "left", o.Left, "right", o.Right)
		issue.Message = fmt.Sprintf("BOTH ERRORS (different codes) - left: %s, right: %s", o.Left, o.Right)
	default:
		panic(fmt.Sprintf("scan: unknown outcome %T", res.Outcome))
	}
	return r.addIssue(ctx, rr, issue)
}

func (r *run) addIssue(ctx context.Context, rr *ResourceResult, issue Issue) error {
	if issue.Resource == "" {
		issue.Resource = rr.Name
	}
	rr.Issues = append(rr.Issues, issue)
	if r.recorder == nil {
		return nil
	}
	if err := r.recorder.RecordIssue(ctx, r.cfg.RunID, issue); err != nil {
		return fmt.Errorf("record issue: %w", err)
	}
	return nil
}

func (r *run) logMismatch(t compare.Target, diffs []jsondiff.Difference) {
	attrs := []any{"id", displayID(t), "diffs", len(diffs)}
	for i, d := range diffs[:min(3, len(diffs))] {
		attrs = append(attrs, fmt.Sprintf("diff%d", i+1), d.String())
	}
	r.logger.Warn("mismatch", attrs...)
}

// finishRanged records a completed resource (or the whole endpoint when key
// is empty) over the configured block range.
func (r *run) finishRanged(rr *ResourceResult, key string) {
	r.result.Resources = append(r.result.Resources, *rr)
	if r.cov == nil {
		return
	}
	r.cov.RecordRun(
		coverage.Key{Chain: r.cfg.Chain, Endpoint: r.cfg.Endpoint.Name, Resource: key},
		coverage.NewRange(r.cfg.Start, r.cfg.End),
		rr.Counters,
		r.now(),
	)
}

func (r *run) finishFlat(rr *ResourceResult) {
	r.result.Resources = append(r.result.Resources, *rr)
	if r.cov == nil {
		return
	}
	r.cov.RecordFlat(
		coverage.Key{Chain: r.cfg.Chain, Endpoint: r.cfg.Endpoint.Name},
		rr.Counters,
		r.now(),
	)
}

func displayID(t compare.Target) string {
	var b strings.Builder
	if t.Resource != "" {
		b.WriteString(t.Resource)
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "block %d", t.ID)
	if t.Index != nil {
		fmt.Fprintf(&b, " ext %d", *t.Index)
	}
	return b.String()
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + path
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

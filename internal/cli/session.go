package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/parity/internal/chain"
	"github.com/roach88/parity/internal/compare"
	"github.com/roach88/parity/internal/coverage"
	"github.com/roach88/parity/internal/plan"
	"github.com/roach88/parity/internal/scan"
	"github.com/roach88/parity/internal/store"
)

// Defaults shared by the scan and plan commands.
const (
	DefaultChain        = "polkadot"
	DefaultEndpoint     = "consts"
	DefaultLeftURL      = "http://localhost:8080/v1"
	DefaultRightURL     = "http://localhost:8045"
	DefaultCoverageFile = "coverage/coverage.json"
)

// sessionOptions holds the flags of commands that run scans.
type sessionOptions struct {
	CoverageFile string
	Database     string
	ChainsFile   string
	Timeout      time.Duration
	RPS          float64
}

func (o *sessionOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.CoverageFile, "coverage-file", DefaultCoverageFile, "coverage file to merge results into")
	cmd.Flags().StringVar(&o.Database, "db", "", "SQLite run log (disabled when empty)")
	cmd.Flags().StringVar(&o.ChainsFile, "chains", "", "CUE file replacing the built-in chain tables")
	cmd.Flags().DurationVar(&o.Timeout, "timeout", compare.DefaultTimeout, "per-request timeout")
	cmd.Flags().Float64Var(&o.RPS, "rps", 0, "request rate limit per second across both servers (0 = unlimited)")
}

// session owns everything a sequence of scans shares: the HTTP client, the
// locked coverage store and the optional run log.
type session struct {
	out      *OutputFormatter
	logger   *slog.Logger
	registry *chain.Registry
	fetcher  compare.Fetcher
	cmp      *compare.Comparator
	cov      *coverage.Store
	covPath  string
	lock     *coverage.FileLock
	runs     *store.Store
	now      func() time.Time
}

func openSession(root *RootOptions, o *sessionOptions, out *OutputFormatter) (*session, error) {
	s := &session{
		out:     out,
		logger:  root.Logger(),
		covPath: o.CoverageFile,
		now:     time.Now,
	}

	registry, err := loadRegistry(o.ChainsFile)
	if err != nil {
		return nil, out.Fail(ExitCommandError, CodeConfig, "failed to load chain tables", err)
	}
	s.registry = registry

	s.fetcher = compare.NewHTTPFetcher(
		compare.WithTimeout(o.Timeout),
		compare.WithRateLimit(o.RPS),
	)
	s.cmp = compare.New(s.fetcher, compare.WithLogger(s.logger))

	s.lock, err = coverage.Lock(o.CoverageFile)
	if err != nil {
		return nil, out.Fail(ExitFailure, CodeCoverage, "failed to lock coverage file", err)
	}
	s.cov, err = coverage.Load(o.CoverageFile)
	if err != nil {
		s.close()
		return nil, out.Fail(ExitFailure, CodeCoverage, "failed to load coverage file", err)
	}

	if o.Database != "" {
		s.logger.Debug("opening run log", "path", o.Database)
		s.runs, err = store.Open(o.Database)
		if err != nil {
			s.close()
			return nil, out.Fail(ExitFailure, CodeRunLog, "failed to open run log", err)
		}
	}

	return s, nil
}

func (s *session) close() {
	if s.runs != nil {
		if err := s.runs.Close(); err != nil {
			s.logger.Error("error closing run log", "error", err)
		}
	}
	if err := s.lock.Unlock(); err != nil {
		s.logger.Error("error releasing coverage lock", "error", err)
	}
}

// save writes the coverage store back to disk.
func (s *session) save() error {
	if err := s.cov.Save(s.covPath); err != nil {
		return s.out.Fail(ExitFailure, CodeCoverage, "failed to save coverage", err)
	}
	s.logger.Info("coverage saved", "path", s.covPath)
	return nil
}

// run executes one job. Argument errors are returned before any scan
// request is made. The result is non-nil whenever the scan started.
func (s *session) run(ctx context.Context, job plan.Job) (*scan.RunResult, error) {
	c, err := s.registry.Lookup(job.Chain)
	if err != nil {
		return nil, s.out.Fail(ExitCommandError, CodeInvalidArgs, "invalid chain", err)
	}
	ep := job.Endpoint

	cfg := scan.Config{
		Chain:          c.Name,
		Endpoint:       ep,
		LeftURL:        job.LeftURL,
		RightURL:       job.RightURL,
		Start:          job.Start,
		BatchSize:      job.BatchSize,
		Delay:          job.Delay,
		TotalResources: len(c.Pallets),
	}
	if ep.Ranged() {
		end, err := s.resolveEnd(ctx, job)
		if err != nil {
			return nil, err
		}
		cfg.End = end
	}
	if err := cfg.Validate(); err != nil {
		return nil, s.out.Fail(ExitCommandError, CodeInvalidArgs, "invalid scan", err)
	}

	space, err := scan.SpaceFor(ep, c, job.Resource, s.logger)
	if err != nil {
		return nil, s.out.Fail(ExitCommandError, CodeInvalidArgs, "invalid resource filter", err)
	}

	opts := []scan.Option{scan.WithLogger(s.logger), scan.WithClock(s.now)}
	if s.runs != nil {
		cfg.RunID, err = s.runs.BeginRun(ctx, store.Run{
			Chain:     cfg.Chain,
			Endpoint:  ep.Name,
			Ranged:    ep.Ranged(),
			Start:     cfg.Start,
			End:       cfg.End,
			LeftURL:   cfg.LeftURL,
			RightURL:  cfg.RightURL,
			StartedAt: s.now(),
		})
		if err != nil {
			return nil, s.out.Fail(ExitFailure, CodeRunLog, "failed to record run", err)
		}
		opts = append(opts, scan.WithRecorder(s.runs))
		s.logger.Info("run recorded", "run_id", cfg.RunID)
	}

	result, runErr := scan.New(s.cmp, opts...).Run(ctx, cfg, space, s.cov)

	if s.runs != nil && result != nil {
		// The run is closed out even when ctx was cancelled.
		if err := s.runs.FinishRun(context.WithoutCancel(ctx), result, runErr); err != nil {
			return result, s.out.Fail(ExitFailure, CodeRunLog, "failed to finish run", errors.Join(runErr, err))
		}
	}
	if runErr != nil {
		return result, s.out.Fail(ExitFailure, CodeScan, "scan failed", runErr)
	}
	return result, nil
}

// resolveEnd returns the job's end block, asking the left server for its
// head block when none was given.
func (s *session) resolveEnd(ctx context.Context, job plan.Job) (uint64, error) {
	if job.End != nil {
		return *job.End, nil
	}
	head, err := compare.LatestBlock(ctx, s.fetcher, job.LeftURL)
	if err != nil {
		return 0, s.out.Fail(ExitFailure, CodeScan, "failed to resolve end block", err)
	}
	s.logger.Info("using head block as end", "end", head)
	return head, nil
}

func loadRegistry(path string) (*chain.Registry, error) {
	if path == "" {
		return chain.Default()
	}
	return chain.LoadFile(path)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("received signal, stopping after current window", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// writeReport writes a Markdown run report to path.
func writeReport(path string, render func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := render(f); err != nil {
		f.Close()
		return fmt.Errorf("write report: %w", err)
	}
	return f.Close()
}

package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/parity/internal/endpoint"
	"github.com/roach88/parity/internal/plan"
	"github.com/roach88/parity/internal/report"
	"github.com/roach88/parity/internal/scan"
)

// ScanOptions holds flags for the scan command.
type ScanOptions struct {
	*RootOptions
	sessionOptions

	Chain     string
	Endpoint  string
	Resource  string
	LeftURL   string
	RightURL  string
	Start     uint64
	End       uint64
	BatchSize int
	Delay     time.Duration
	Report    string
}

// NewScanCommand creates the scan command.
func NewScanCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScanOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Compare one endpoint across a block range",
		Long: `Request the same paths from the left (reference) and right (candidate)
servers and report every response that differs.

Block-ranged endpoints default to scanning up to the left server's head
block. Pallet and account endpoints iterate every pallet or test account of
the chain unless --resource narrows the list.

Example:
  parity scan --endpoint block --start 1000 --end 1999
  parity scan --chain kusama --endpoint storage --resource balances --end 20000000
  parity scan --endpoint node-version --db runs.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Chain, "chain", "c", DefaultChain, "chain name or alias")
	cmd.Flags().StringVarP(&opts.Endpoint, "endpoint", "e", DefaultEndpoint, "endpoint name or alias")
	cmd.Flags().StringVarP(&opts.Resource, "resource", "r", "", "case-insensitive pallet or account filter")
	cmd.Flags().StringVar(&opts.LeftURL, "left-url", DefaultLeftURL, "reference server base URL")
	cmd.Flags().StringVar(&opts.RightURL, "right-url", DefaultRightURL, "candidate server base URL")
	cmd.Flags().Uint64VarP(&opts.Start, "start", "s", 0, "first block (inclusive)")
	cmd.Flags().Uint64Var(&opts.End, "end", 0, "last block (inclusive; default: left server head)")
	cmd.Flags().IntVarP(&opts.BatchSize, "batch-size", "b", scan.DefaultBatchSize, "concurrent requests per window")
	cmd.Flags().DurationVar(&opts.Delay, "delay", scan.DefaultDelay, "pause between windows")
	cmd.Flags().StringVar(&opts.Report, "report", "", "write a Markdown report of the run to this file")
	opts.addFlags(cmd)

	return cmd
}

func runScan(cmd *cobra.Command, opts *ScanOptions) error {
	out := opts.formatter(cmd)

	ep, err := endpoint.Parse(opts.Endpoint)
	if err != nil {
		return out.Fail(ExitCommandError, CodeInvalidArgs, "invalid endpoint", err)
	}
	if opts.BatchSize <= 0 {
		return out.Fail(ExitCommandError, CodeInvalidArgs,
			fmt.Sprintf("batch size must be positive, got %d", opts.BatchSize), nil)
	}

	job := plan.Job{
		Chain:     opts.Chain,
		Endpoint:  ep,
		Resource:  opts.Resource,
		LeftURL:   opts.LeftURL,
		RightURL:  opts.RightURL,
		Start:     opts.Start,
		BatchSize: opts.BatchSize,
		Delay:     opts.Delay,
	}
	if cmd.Flags().Changed("end") {
		end := opts.End
		job.End = &end
	}

	s, err := openSession(opts.RootOptions, &opts.sessionOptions, out)
	if err != nil {
		return err
	}
	defer s.close()

	ctx, cancel := signalContext(cmd.Context(), s.logger)
	defer cancel()

	result, runErr := s.run(ctx, job)
	if result == nil {
		return runErr
	}

	// Completed resources were merged into coverage even if the run failed.
	if err := s.save(); err != nil {
		return err
	}
	if err := emitResult(out, result, opts.Report); err != nil {
		return err
	}
	return runErr
}

// emitResult prints the run summary and writes the optional Markdown report.
func emitResult(out *OutputFormatter, result *scan.RunResult, reportPath string) error {
	if reportPath != "" {
		err := writeReport(reportPath, func(f *os.File) error {
			return report.RunMarkdown(f, result)
		})
		if err != nil {
			return out.Fail(ExitFailure, CodeScan, "failed to write report", err)
		}
		out.VerboseLog("Report written to %s", reportPath)
	}

	if out.Format == "json" {
		return out.Success(newRunView(result))
	}
	return printSummary(out.Writer, result)
}

func printSummary(w io.Writer, result *scan.RunResult) error {
	if err := report.RunSummary(w, result); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

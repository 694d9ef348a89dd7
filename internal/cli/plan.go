package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/parity/internal/plan"
	"github.com/roach88/parity/internal/scan"
)

// PlanOptions holds flags for the plan command.
type PlanOptions struct {
	*RootOptions
	sessionOptions

	Chain     string
	LeftURL   string
	RightURL  string
	BatchSize int
	Delay     time.Duration
}

// NewPlanCommand creates the plan command.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlanOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "plan <plan.yaml>",
		Short: "Run the scans listed in a plan file",
		Long: `Run every scan of a YAML plan in order, sharing one coverage file and
run log. Coverage is saved once, after the last scan or the first failure.

Settings resolve scan entry first, then the plan's defaults block, then
the flags of this command.

Example:
  parity plan nightly.yaml --db runs.db
  parity plan smoke.yaml --left-url http://staging:8080/v1`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.Chain, "chain", "c", DefaultChain, "default chain name or alias")
	cmd.Flags().StringVar(&opts.LeftURL, "left-url", DefaultLeftURL, "default reference server base URL")
	cmd.Flags().StringVar(&opts.RightURL, "right-url", DefaultRightURL, "default candidate server base URL")
	cmd.Flags().IntVarP(&opts.BatchSize, "batch-size", "b", scan.DefaultBatchSize, "default concurrent requests per window")
	cmd.Flags().DurationVar(&opts.Delay, "delay", scan.DefaultDelay, "default pause between windows")
	opts.addFlags(cmd)

	return cmd
}

func runPlan(cmd *cobra.Command, opts *PlanOptions, path string) error {
	out := opts.formatter(cmd)

	p, err := plan.Load(path)
	if err != nil {
		return out.Fail(ExitCommandError, CodeConfig, "failed to load plan", err)
	}
	delay := opts.Delay
	jobs, err := p.Jobs(plan.Defaults{
		Chain:     opts.Chain,
		Left:      opts.LeftURL,
		Right:     opts.RightURL,
		BatchSize: opts.BatchSize,
		Delay:     &delay,
	})
	if err != nil {
		return out.Fail(ExitCommandError, CodeConfig, "invalid plan", err)
	}

	s, err := openSession(opts.RootOptions, &opts.sessionOptions, out)
	if err != nil {
		return err
	}
	defer s.close()

	ctx, cancel := signalContext(cmd.Context(), s.logger)
	defer cancel()

	var (
		views  []runView
		runErr error
	)
	for i, job := range jobs {
		s.logger.Info("plan step", "step", fmt.Sprintf("%d/%d", i+1, len(jobs)), "endpoint", job.Endpoint.Name, "chain", job.Chain)

		var result *scan.RunResult
		result, runErr = s.run(ctx, job)
		if result != nil {
			if out.Format == "json" {
				views = append(views, newRunView(result))
			} else if err := printSummary(out.Writer, result); err != nil {
				return err
			}
		}
		if runErr != nil {
			break
		}
	}

	if err := s.save(); err != nil {
		return err
	}
	if out.Format == "json" {
		if err := out.Success(views); err != nil {
			return err
		}
	}
	return runErr
}

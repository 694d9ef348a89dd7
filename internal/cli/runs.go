package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/parity/internal/report"
	"github.com/roach88/parity/internal/store"
)

// RunsOptions holds flags for the runs command.
type RunsOptions struct {
	*RootOptions
	Database string
	RunID    string
	Limit    int
	Markdown bool
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs or show one run",
		Long: `Read the run log written by scan --db and plan --db.

Without --run, lists the most recent runs. With --run, prints the summary
of that run rebuilt from its recorded tallies and issues.

Example:
  parity runs --db runs.db
  parity runs --db runs.db --run 0190a0c2-7b1e-7c3a-9d8e-5f1a2b3c4d5e --markdown`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite run log (required)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "show a single run")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "maximum runs to list (0 = all)")
	cmd.Flags().BoolVar(&opts.Markdown, "markdown", false, "render a single run as Markdown")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runRuns(cmd *cobra.Command, opts *RunsOptions) error {
	out := opts.formatter(cmd)
	ctx := cmd.Context()

	st, err := store.Open(opts.Database)
	if err != nil {
		return out.Fail(ExitCommandError, CodeRunLog, "failed to open run log", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			opts.Logger().Error("error closing run log", "error", closeErr)
		}
	}()

	if opts.RunID != "" {
		return showRun(ctx, out, st, opts)
	}

	runs, err := st.ListRuns(ctx, opts.Limit)
	if err != nil {
		return out.Fail(ExitFailure, CodeRunLog, "failed to list runs", err)
	}

	if out.Format == "json" {
		views := make([]runRowView, len(runs))
		for i, r := range runs {
			views[i] = newRunRowView(r)
		}
		return out.Success(views)
	}
	return printRuns(out.Writer, runs)
}

func showRun(ctx context.Context, out *OutputFormatter, st *store.Store, opts *RunsOptions) error {
	result, err := st.LoadResult(ctx, opts.RunID)
	if errors.Is(err, store.ErrRunNotFound) {
		return out.Fail(ExitCommandError, CodeInvalidArgs, "unknown run", err)
	}
	if err != nil {
		return out.Fail(ExitFailure, CodeRunLog, "failed to read run", err)
	}

	switch {
	case out.Format == "json":
		return out.Success(newRunView(result))
	case opts.Markdown:
		return report.RunMarkdown(out.Writer, result)
	default:
		return report.RunSummary(out.Writer, result)
	}
}

func printRuns(w io.Writer, runs []store.Run) error {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tCHAIN\tENDPOINT\tBLOCKS\tSTATUS\tMATCHED\tISSUES")
	for _, r := range runs {
		blocks := "-"
		if r.Ranged {
			blocks = fmt.Sprintf("%d-%d", r.Start, r.End)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%d/%d\t%d\n",
			r.ID,
			r.StartedAt.UTC().Format(time.DateTime),
			r.Chain,
			r.Endpoint,
			blocks,
			r.Status,
			r.Totals.Matched,
			r.Totals.Total(),
			r.Totals.Total()-r.Totals.Matched,
		)
	}
	return tw.Flush()
}

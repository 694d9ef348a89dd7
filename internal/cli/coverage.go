package cli

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/parity/internal/coverage"
	"github.com/roach88/parity/internal/endpoint"
	"github.com/roach88/parity/internal/report"
)

// CoverageOptions holds flags for the coverage command.
type CoverageOptions struct {
	*RootOptions
	CoverageFile string
	Markdown     bool
	Out          string
}

// NewCoverageCommand creates the coverage command.
func NewCoverageCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CoverageOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "coverage",
		Short: "Show accumulated coverage",
		Long: `Render the coverage file: which endpoints, pallets and block ranges have
been compared, and their pass rates.

Example:
  parity coverage
  parity coverage --markdown --out coverage/COVERAGE.md
  parity coverage --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCoverage(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.CoverageFile, "coverage-file", DefaultCoverageFile, "coverage file to read")
	cmd.Flags().BoolVar(&opts.Markdown, "markdown", false, "render Markdown instead of text")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "write the report to a file instead of stdout")

	return cmd
}

func runCoverage(cmd *cobra.Command, opts *CoverageOptions) error {
	out := opts.formatter(cmd)

	cov, err := coverage.Load(opts.CoverageFile)
	if err != nil {
		return out.Fail(ExitCommandError, CodeCoverage, "failed to load coverage file", err)
	}

	if out.Format == "json" && opts.Out == "" {
		return out.Success(cov)
	}

	var buf bytes.Buffer
	if opts.Markdown {
		err = report.CoverageMarkdown(&buf, cov, endpoint.All())
	} else {
		err = report.CoverageText(&buf, cov, endpoint.All())
	}
	if err != nil {
		return out.Fail(ExitFailure, CodeCoverage, "failed to render coverage", err)
	}

	if opts.Out == "" {
		_, err := buf.WriteTo(out.Writer)
		return err
	}
	if err := os.WriteFile(opts.Out, buf.Bytes(), 0o644); err != nil {
		return out.Fail(ExitFailure, CodeCoverage, "failed to write coverage report", err)
	}
	if out.Format == "json" {
		return out.Success(map[string]string{"written": opts.Out})
	}
	fmt.Fprintf(out.Writer, "Coverage report saved to: %s\n", opts.Out)
	return nil
}

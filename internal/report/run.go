package report

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/roach88/parity/internal/scan"
)

const (
	summaryWidth = 90

	// Issue detail limits for the text summary.
	maxResourceIssues = 10
	maxFlatIssues     = 20

	// maxBodyLen bounds each response body embedded in a Markdown report.
	maxBodyLen = 4096
)

// RunSummary writes the final summary of a run: a counter table (one row
// per resource, or a single block for endpoints without resources) followed
// by issue details.
func RunSummary(w io.Writer, r *scan.RunResult) error {
	var b bytes.Buffer
	rule := strings.Repeat("=", summaryWidth)

	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, center("FINAL SUMMARY", summaryWidth))
	fmt.Fprintln(&b, rule)
	if r.RunID != "" {
		fmt.Fprintf(&b, "Run: %s\n", r.RunID)
	}
	fmt.Fprintf(&b, "Chain: %s\n", r.Chain)
	fmt.Fprintf(&b, "Endpoint: %s\n", r.Endpoint)
	if r.Ranged {
		fmt.Fprintf(&b, "Block range: %d - %d\n", r.Start, r.End)
	}
	fmt.Fprintf(&b, "Duration: %s\n", r.Duration().Round(time.Millisecond))

	if perResource(r) {
		writeResourceTable(&b, r)
	} else {
		writeTotals(&b, r)
	}
	writeIssueDetails(&b, r)

	_, err := b.WriteTo(w)
	return err
}

// perResource reports whether the run iterated named resources.
func perResource(r *scan.RunResult) bool {
	return len(r.Resources) > 1 || (len(r.Resources) == 1 && r.Resources[0].Name != "")
}

const (
	rowHeader = "%-25s %8s %10s %10s %10s %10s %8s\n"
	rowFormat = "%-25s %8d %10d %10d %10d %10d %7.2f%%\n"
)

func writeResourceTable(b *bytes.Buffer, r *scan.RunResult) {
	fmt.Fprintf(b, "Total resources scanned: %d\n\n", len(r.Resources))
	fmt.Fprintf(b, rowHeader, "Resource", "Matched", "Mismatch", "LeftErr", "RightErr", "BothErr", "Rate")
	fmt.Fprintln(b, strings.Repeat("-", summaryWidth))
	for _, rr := range r.Resources {
		c := rr.Counters
		fmt.Fprintf(b, rowFormat, rr.DisplayName(), c.Matched, c.Mismatched, c.LeftErrors, c.RightErrors, c.BothErrorsDiffering, c.PassRate())
	}
	fmt.Fprintln(b, strings.Repeat("-", summaryWidth))
	t := r.Totals()
	fmt.Fprintf(b, rowFormat, "TOTAL", t.Matched, t.Mismatched, t.LeftErrors, t.RightErrors, t.BothErrorsDiffering, t.PassRate())
}

func writeTotals(b *bytes.Buffer, r *scan.RunResult) {
	t := r.Totals()
	fmt.Fprintln(b)
	fmt.Fprintf(b, "Matched:        %d / %d (%.2f%%)\n", t.Matched, t.Total(), t.PassRate())
	fmt.Fprintf(b, "Mismatched:     %d\n", t.Mismatched)
	fmt.Fprintf(b, "Left Errors:    %d\n", t.LeftErrors)
	fmt.Fprintf(b, "Right Errors:   %d\n", t.RightErrors)
	fmt.Fprintf(b, "Both Errors:    %d\n", t.BothErrorsDiffering)
}

func writeIssueDetails(b *bytes.Buffer, r *scan.RunResult) {
	if r.IssueCount() == 0 {
		return
	}
	rule := strings.Repeat("=", summaryWidth)
	fmt.Fprintln(b)
	fmt.Fprintln(b, rule)
	fmt.Fprintln(b, center("ISSUE DETAILS", summaryWidth))
	fmt.Fprintln(b, rule)

	if !perResource(r) {
		writeIssues(b, r, r.Resources[0].Issues, maxFlatIssues)
		return
	}
	for _, rr := range r.Resources {
		if len(rr.Issues) == 0 {
			continue
		}
		fmt.Fprintf(b, "\n%s:\n", rr.DisplayName())
		writeIssues(b, r, rr.Issues, maxResourceIssues)
	}
}

func writeIssues(b *bytes.Buffer, r *scan.RunResult, issues []scan.Issue, limit int) {
	for i, issue := range issues {
		if i >= limit {
			fmt.Fprintf(b, "  ... and %d more issues\n", len(issues)-limit)
			return
		}
		fmt.Fprintf(b, "  %s: %s\n", issueLabel(r, issue), issue.Message)
	}
}

// issueLabel names the identifier an issue was raised for.
func issueLabel(r *scan.RunResult, issue scan.Issue) string {
	switch {
	case !r.Ranged:
		return "Request"
	case issue.Index != nil:
		return fmt.Sprintf("Block %d ext %d", issue.ID, *issue.Index)
	default:
		return fmt.Sprintf("Block %d", issue.ID)
	}
}

func center(s string, width int) string {
	pad := (width - len(s)) / 2
	if pad <= 0 {
		return s
	}
	return strings.Repeat(" ", pad) + s
}

// RunMarkdown writes a Markdown report of a run: metadata, a counter table,
// and every issue with the response bodies of mismatches.
func RunMarkdown(w io.Writer, r *scan.RunResult) error {
	var b bytes.Buffer

	fmt.Fprintf(&b, "# Parity Report: %s / %s\n\n", r.Chain, r.Endpoint)
	if r.RunID != "" {
		fmt.Fprintf(&b, "- **Run:** `%s`\n", r.RunID)
	}
	fmt.Fprintf(&b, "- **Left:** %s\n", r.LeftURL)
	fmt.Fprintf(&b, "- **Right:** %s\n", r.RightURL)
	if r.Ranged {
		fmt.Fprintf(&b, "- **Block range:** %d - %d\n", r.Start, r.End)
	}
	fmt.Fprintf(&b, "- **Started:** %s\n", r.StartedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "- **Duration:** %s\n\n", r.Duration().Round(time.Millisecond))

	b.WriteString("## Summary\n\n")
	b.WriteString("| Resource | Matched | Mismatched | Left Errors | Right Errors | Both Errors | Pass Rate |\n")
	b.WriteString("|----------|---------|------------|-------------|--------------|-------------|-----------|\n")
	for _, rr := range r.Resources {
		name := rr.DisplayName()
		if name == "" {
			name = r.Endpoint
		}
		writeCounterRow(&b, name, rr.Counters.Matched, rr.Counters.Mismatched, rr.Counters.LeftErrors,
			rr.Counters.RightErrors, rr.Counters.BothErrorsDiffering, rr.Counters.PassRate())
	}
	if perResource(r) {
		t := r.Totals()
		writeCounterRow(&b, "**Total**", t.Matched, t.Mismatched, t.LeftErrors, t.RightErrors, t.BothErrorsDiffering, t.PassRate())
	}

	b.WriteString("\n## Issues\n\n")
	if r.IssueCount() == 0 {
		b.WriteString("No issues found.\n")
	}
	for _, rr := range r.Resources {
		if len(rr.Issues) == 0 {
			continue
		}
		if perResource(r) {
			fmt.Fprintf(&b, "### %s\n\n", rr.DisplayName())
		}
		for _, issue := range rr.Issues {
			writeMarkdownIssue(&b, r, issue)
		}
	}

	_, err := b.WriteTo(w)
	return err
}

func writeCounterRow(b *bytes.Buffer, name string, matched, mismatched, left, right, both uint64, rate float64) {
	fmt.Fprintf(b, "| %s | %d | %d | %d | %d | %d | %.2f%% |\n", name, matched, mismatched, left, right, both, rate)
}

func writeMarkdownIssue(b *bytes.Buffer, r *scan.RunResult, issue scan.Issue) {
	fmt.Fprintf(b, "#### %s (%s)\n\n", issueLabel(r, issue), issue.Kind)
	fmt.Fprintf(b, "```text\n%s\n```\n\n", issue.Message)
	if issue.LeftBody == nil && issue.RightBody == nil {
		return
	}
	b.WriteString("<details><summary>Responses</summary>\n\n")
	writeBody(b, "Left", issue.LeftBody)
	writeBody(b, "Right", issue.RightBody)
	b.WriteString("</details>\n\n")
}

func writeBody(b *bytes.Buffer, side string, body []byte) {
	fmt.Fprintf(b, "**%s:**\n\n```json\n", side)
	if len(body) > maxBodyLen {
		b.Write(body[:maxBodyLen])
		b.WriteString("\n... (truncated)")
	} else {
		b.Write(body)
	}
	b.WriteString("\n```\n\n")
}

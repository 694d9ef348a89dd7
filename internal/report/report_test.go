package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/parity/internal/coverage"
	"github.com/roach88/parity/internal/endpoint"
	"github.com/roach88/parity/internal/scan"
)

var testStart = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func newGoldie(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata"),
		goldie.WithNameSuffix(".golden"),
	)
}

func palletRun() *scan.RunResult {
	return &scan.RunResult{
		RunID:      "test-run-0001",
		Chain:      "polkadot",
		Endpoint:   "consts",
		LeftURL:    "http://left:8080/v1",
		RightURL:   "http://right:8045",
		Ranged:     true,
		Start:      100,
		End:        109,
		StartedAt:  testStart,
		FinishedAt: testStart.Add(90 * time.Second),
		Resources: []scan.ResourceResult{
			{Name: "Balances", Counters: coverage.Counters{Matched: 10}},
			{
				Name:     "System",
				Counters: coverage.Counters{Matched: 8, Mismatched: 1, LeftErrors: 1},
				Issues: []scan.Issue{
					{
						ID: 103, Resource: "System", Kind: "mismatch",
						Message:   `MISMATCH - 1 difference: at.height: left="5" vs right="6"`,
						LeftBody:  []byte(`{"at":{"height":"5"}}`),
						RightBody: []byte(`{"at":{"height":"6"}}`),
					},
					{ID: 107, Resource: "System", Kind: "left_error", Message: "LEFT ERROR: HTTP 500 Internal Server Error"},
				},
			},
		},
	}
}

func fanoutRun() *scan.RunResult {
	return &scan.RunResult{
		Chain:      "kusama",
		Endpoint:   "block-extrinsics-idx",
		LeftURL:    "http://left:8080/v1",
		RightURL:   "http://right:8045",
		Ranged:     true,
		Start:      5,
		End:        9,
		StartedAt:  testStart,
		FinishedAt: testStart.Add(2500 * time.Millisecond),
		Resources: []scan.ResourceResult{{
			Counters: coverage.Counters{Matched: 20, Mismatched: 1, LeftErrors: 1, BothErrorsDiffering: 1},
			Issues: []scan.Issue{
				{ID: 5, Index: endpoint.Uint(2), Kind: "mismatch", Message: "MISMATCH - 1 difference: method.pallet: missing on right (left=\"timestamp\")"},
				{ID: 6, Kind: scan.KindLookupError, Message: "Failed to fetch extrinsics: HTTP 404 Not Found"},
				{ID: 7, Index: endpoint.Uint(0), Kind: "both_error", Message: "BOTH ERRORS (different codes) - left: HTTP 500 Internal Server Error, right: HTTP 502 Bad Gateway"},
			},
		}},
	}
}

func flatRun() *scan.RunResult {
	return &scan.RunResult{
		Chain:      "polkadot",
		Endpoint:   "node-version",
		LeftURL:    "http://left:8080/v1",
		RightURL:   "http://right:8045",
		StartedAt:  testStart,
		FinishedAt: testStart,
		Resources:  []scan.ResourceResult{{Counters: coverage.Counters{Matched: 1}}},
	}
}

func TestRunSummary_Resources(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RunSummary(&buf, palletRun()))
	newGoldie(t).Assert(t, "summary_resources", buf.Bytes())
}

func TestRunSummary_Fanout(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RunSummary(&buf, fanoutRun()))
	newGoldie(t).Assert(t, "summary_fanout", buf.Bytes())
}

func TestRunSummary_Flat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RunSummary(&buf, flatRun()))
	newGoldie(t).Assert(t, "summary_flat", buf.Bytes())
}

func TestRunSummary_TruncatesIssueList(t *testing.T) {
	r := flatRun()
	r.Ranged = true
	for i := range 25 {
		r.Resources[0].Issues = append(r.Resources[0].Issues, scan.Issue{ID: uint64(i), Kind: "right_error", Message: "RIGHT ERROR: x"})
	}

	var buf bytes.Buffer
	require.NoError(t, RunSummary(&buf, r))
	out := buf.String()
	assert.Equal(t, 20, strings.Count(out, ": RIGHT ERROR: x"))
	assert.Contains(t, out, "  ... and 5 more issues\n")
}

func TestRunMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RunMarkdown(&buf, palletRun()))
	newGoldie(t).Assert(t, "run_markdown", buf.Bytes())
}

func TestRunMarkdown_NoIssues(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RunMarkdown(&buf, flatRun()))

	out := buf.String()
	assert.Contains(t, out, "| node-version | 1 | 0 | 0 | 0 | 0 | 100.00% |\n")
	assert.Contains(t, out, "No issues found.\n")
	assert.NotContains(t, out, "Block range")
}

func TestRunMarkdown_TruncatesBodies(t *testing.T) {
	r := palletRun()
	r.Resources[1].Issues[0].LeftBody = bytes.Repeat([]byte("a"), maxBodyLen+10)

	var buf bytes.Buffer
	require.NoError(t, RunMarkdown(&buf, r))
	assert.Contains(t, buf.String(), "\n... (truncated)\n```")
}

func coverageFixture() *coverage.Store {
	cov := coverage.New()
	cov.Chain("kusama", 0)
	cov.Chain("polkadot", 61)

	cov.RecordRun(coverage.Key{Chain: "polkadot", Endpoint: "consts", Resource: "System"},
		coverage.NewRange(100, 109), coverage.Counters{Matched: 8, Mismatched: 1, LeftErrors: 1}, testStart)
	cov.RecordRun(coverage.Key{Chain: "polkadot", Endpoint: "consts", Resource: "Balances"},
		coverage.NewRange(100, 109), coverage.Counters{Matched: 10}, testStart)
	cov.RecordRun(coverage.Key{Chain: "polkadot", Endpoint: "block"},
		coverage.NewRange(200, 299), coverage.Counters{Matched: 100}, testStart)
	cov.RecordRun(coverage.Key{Chain: "polkadot", Endpoint: "block"},
		coverage.NewRange(0, 99), coverage.Counters{Matched: 99, Mismatched: 1}, testStart)
	cov.RecordRun(coverage.Key{Chain: "polkadot", Endpoint: "account-balance-info"},
		coverage.NewRange(100, 109), coverage.Counters{Matched: 20}, testStart)
	cov.RecordFlat(coverage.Key{Chain: "polkadot", Endpoint: "node-version"},
		coverage.Counters{Matched: 1}, testStart)
	cov.RecordFlat(coverage.Key{Chain: "polkadot", Endpoint: "runtime-spec"},
		coverage.Counters{LeftErrors: 1}, testStart)
	return cov
}

func TestCoverageText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, CoverageText(&buf, coverageFixture(), endpoint.All()))
	newGoldie(t).Assert(t, "coverage_text", buf.Bytes())
}

func TestCoverageMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, CoverageMarkdown(&buf, coverageFixture(), endpoint.All()))
	newGoldie(t).Assert(t, "coverage_markdown", buf.Bytes())
}

func TestCoverage_Empty(t *testing.T) {
	var text, md bytes.Buffer
	require.NoError(t, CoverageText(&text, coverage.New(), endpoint.All()))
	require.NoError(t, CoverageMarkdown(&md, coverage.New(), endpoint.All()))

	assert.Contains(t, text.String(), "No coverage data recorded yet.")
	assert.Contains(t, md.String(), "No coverage data recorded yet.")
	assert.NotContains(t, md.String(), "### Chain")
}

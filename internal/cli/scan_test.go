package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/parity/internal/coverage"
	"github.com/roach88/parity/internal/store"
	"github.com/roach88/parity/internal/testutil"
)

func scanArgs(left, right *testutil.FakeAPI, covPath string, extra ...string) []string {
	args := []string{
		"scan",
		"--left-url", left.URL,
		"--right-url", right.URL,
		"--coverage-file", covPath,
		"--delay", "0s",
	}
	return append(args, extra...)
}

func TestScan_BlockRange(t *testing.T) {
	left, right := servers(t, 2)
	covPath, dbPath := workspace(t)

	stdout, _, err := execute(t, scanArgs(left, right, covPath,
		"--endpoint", "block", "--start", "1", "--end", "3", "--db", dbPath)...)
	require.NoError(t, err)

	assert.Contains(t, stdout, "FINAL SUMMARY")
	assert.Contains(t, stdout, "Block range: 1 - 3")
	assert.Contains(t, stdout, "Matched:        2 / 3 (66.67%)")
	assert.Contains(t, stdout, "Block 2: MISMATCH - 1 difference: hash")

	ec := loadCoverage(t, covPath).Lookup("polkadot", "block")
	require.NotNil(t, ec)
	assert.Equal(t, coverage.Ranges{{Start: 1, End: 3}}, ec.Ranges)
	assert.Equal(t, uint64(2), ec.Matched)
	assert.Equal(t, uint64(1), ec.Mismatched)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()
	runs, err := st.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, store.StatusCompleted, runs[0].Status)
	assert.Equal(t, uint64(1), runs[0].Totals.Mismatched)

	issues, err := st.ReadIssues(context.Background(), runs[0].ID)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, uint64(2), issues[0].ID)
	assert.NotEmpty(t, issues[0].LeftBody)
}

func TestScan_EndDefaultsToHead(t *testing.T) {
	left, right := servers(t)
	left.JSON("/blocks/head", `{"number":"4"}`)
	covPath, _ := workspace(t)

	_, _, err := execute(t, scanArgs(left, right, covPath, "--endpoint", "block-header", "--start", "3")...)
	require.NoError(t, err)

	ec := loadCoverage(t, covPath).Lookup("polkadot", "block-header")
	require.NotNil(t, ec)
	assert.Equal(t, coverage.Ranges{{Start: 3, End: 4}}, ec.Ranges)
}

func TestScan_HeadUnavailable(t *testing.T) {
	left, right := servers(t)
	covPath, _ := workspace(t)

	_, _, err := execute(t, scanArgs(left, right, covPath, "--endpoint", "block")...)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to resolve end block")
}

func TestScan_ArgumentErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown endpoint", []string{"--endpoint", "bogus", "--end", "1"}, "unknown endpoint 'bogus'"},
		{"unknown chain", []string{"--chain", "westend", "--endpoint", "block", "--end", "1"}, "unknown chain 'westend'"},
		{"inverted range", []string{"--endpoint", "block", "--start", "9", "--end", "5"}, "start block 9 is after end block 5"},
		{"zero batch", []string{"--endpoint", "block", "--end", "1", "--batch-size", "0"}, "batch size must be positive"},
		{"unmatched pallet", []string{"--endpoint", "consts", "--end", "1", "--resource", "nosuchpallet"}, "no pallets on polkadot match"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			left, right := servers(t)
			covPath, _ := workspace(t)

			_, _, err := execute(t, scanArgs(left, right, covPath, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.want)
			assert.Zero(t, left.TotalHits()+right.TotalHits())
		})
	}
}

func TestScan_InvalidFormat(t *testing.T) {
	_, _, err := execute(t, "scan", "--format", "yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestScan_CoverageLocked(t *testing.T) {
	left, right := servers(t)
	covPath, _ := workspace(t)

	lock, err := coverage.Lock(covPath)
	require.NoError(t, err)
	defer lock.Unlock()

	_, _, err = execute(t, scanArgs(left, right, covPath, "--endpoint", "block", "--end", "1")...)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.ErrorIs(t, err, coverage.ErrLocked)
}

func TestScan_FlatEndpoint(t *testing.T) {
	left, right := servers(t)
	left.JSON("/node/version", `{"clientVersion":"1.0"}`)
	right.JSON("/node/version", `{"clientVersion":"1.0"}`)
	covPath, _ := workspace(t)

	stdout, _, err := execute(t, scanArgs(left, right, covPath, "--endpoint", "node-version")...)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Matched:        1 / 1 (100.00%)")
	assert.NotContains(t, stdout, "Block range")

	ec := loadCoverage(t, covPath).Lookup("polkadot", "node-version")
	require.NotNil(t, ec)
	assert.True(t, ec.Tested)
	assert.Empty(t, ec.Ranges)
	assert.Equal(t, 0, left.Hits("/blocks/head"))
}

const testChains = `
chains: testnet: {
	aliases: ["tn"]
	pallets: [
		{name: "System", index: 0},
		{name: "Balances", index: 5},
	]
	accounts: [
		{label: "Alice", address: "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"},
	]
}
`

func TestScan_PalletsFromChainsFile(t *testing.T) {
	chainsFile := filepath.Join(t.TempDir(), "chains.cue")
	require.NoError(t, os.WriteFile(chainsFile, []byte(testChains), 0o644))

	left, right := servers(t)
	for _, pallet := range []string{"System", "Balances"} {
		uri := "/pallets/" + pallet + "/consts?at=7"
		left.JSON(uri, `{"pallet":"`+pallet+`","items":[]}`)
		right.JSON(uri, `{"pallet":"`+pallet+`","items":[]}`)
	}
	covPath, _ := workspace(t)

	stdout, _, err := execute(t, scanArgs(left, right, covPath,
		"--chains", chainsFile, "--chain", "TN", "--endpoint", "consts", "--start", "7", "--end", "7")...)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Total resources scanned: 2")

	cc := loadCoverage(t, covPath).Chains["testnet"]
	require.NotNil(t, cc)
	assert.Equal(t, 2, cc.TotalResourceCount)
	ec := cc.Endpoints["consts"]
	require.NotNil(t, ec)
	assert.Len(t, ec.Resources, 2)
	assert.Equal(t, uint64(1), ec.Resources["Balances"].Matched)
}

func TestScan_JSONOutput(t *testing.T) {
	left, right := servers(t, 1)
	covPath, _ := workspace(t)

	stdout, _, err := execute(t, scanArgs(left, right, covPath,
		"--format", "json", "--endpoint", "block", "--start", "1", "--end", "2")...)
	require.NoError(t, err)

	var resp struct {
		Status string  `json:"status"`
		Data   runView `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "block", resp.Data.Endpoint)
	assert.Equal(t, uint64(1), resp.Data.Totals.Matched)
	assert.Equal(t, uint64(1), resp.Data.Totals.Mismatched)
	require.Len(t, resp.Data.Resources, 1)
	require.Len(t, resp.Data.Resources[0].Issues, 1)
	assert.Equal(t, "mismatch", resp.Data.Resources[0].Issues[0].Kind)
}

func TestScan_MarkdownReport(t *testing.T) {
	left, right := servers(t, 1)
	covPath, _ := workspace(t)
	reportPath := filepath.Join(t.TempDir(), "report.md")

	_, _, err := execute(t, scanArgs(left, right, covPath,
		"--endpoint", "block", "--start", "1", "--end", "1", "--report", reportPath)...)
	require.NoError(t, err)

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Parity Report: polkadot / block")
	assert.Contains(t, string(data), "#### Block 1 (mismatch)")
}

func TestScan_MergesCoverageAcrossRuns(t *testing.T) {
	left, right := servers(t)
	covPath, _ := workspace(t)

	for _, r := range [][2]string{{"1", "2"}, {"3", "4"}, {"10", "11"}} {
		_, _, err := execute(t, scanArgs(left, right, covPath, "--endpoint", "block", "--start", r[0], "--end", r[1])...)
		require.NoError(t, err)
	}

	ec := loadCoverage(t, covPath).Lookup("polkadot", "block")
	require.NotNil(t, ec)
	assert.Equal(t, coverage.Ranges{{Start: 1, End: 4}, {Start: 10, End: 11}}, ec.Ranges)
	assert.Equal(t, uint64(6), ec.Matched)
}

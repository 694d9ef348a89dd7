package cli

import (
	"bytes"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/parity/internal/coverage"
	"github.com/roach88/parity/internal/testutil"
)

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// servers starts a left and right API that agree on every /blocks/N except
// the listed blocks, where the right side reports a different hash.
func servers(t *testing.T, differing ...uint64) (*testutil.FakeAPI, *testutil.FakeAPI) {
	t.Helper()
	left, right := testutil.NewFakeAPI(t), testutil.NewFakeAPI(t)

	block := func(tag string, skew map[uint64]bool) func(string) (testutil.Response, bool) {
		return func(uri string) (testutil.Response, bool) {
			var n uint64
			if _, err := fmt.Sscanf(uri, "/blocks/%d", &n); err != nil {
				return testutil.Response{}, false
			}
			hash := "0xaa"
			if skew[n] {
				hash = "0x" + tag
			}
			return testutil.Response{Body: fmt.Sprintf(`{"number":"%d","hash":"%s"}`, n, hash)}, true
		}
	}
	skew := make(map[uint64]bool)
	for _, n := range differing {
		skew[n] = true
	}
	left.Fallback(block("aa", nil))
	right.Fallback(block("bb", skew))
	return left, right
}

// workspace returns coverage and database paths in a fresh temp directory.
func workspace(t *testing.T) (covPath, dbPath string) {
	t.Helper()
	dir := t.TempDir()
	return filepath.Join(dir, "coverage", "coverage.json"), filepath.Join(dir, "runs.db")
}

func loadCoverage(t *testing.T, path string) *coverage.Store {
	t.Helper()
	cov, err := coverage.Load(path)
	require.NoError(t, err)
	return cov
}

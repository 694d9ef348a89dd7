package endpoint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, name string) *Endpoint {
	t.Helper()
	e, err := Parse(name)
	require.NoError(t, err)
	return e
}

func TestPath(t *testing.T) {
	tests := []struct {
		endpoint string
		params   Params
		want     string
	}{
		{"block", Params{Block: Uint(5)}, "/blocks/5"},
		{"block-header", Params{Block: Uint(42)}, "/blocks/42/header"},
		{"block-extrinsics", Params{Block: Uint(1)}, "/blocks/1/extrinsics-info"},
		{"block-para-inclusions", Params{Block: Uint(1)}, "/blocks/1/para-inclusions"},
		{"consts", Params{Resource: "System", Block: Uint(100)}, "/pallets/System/consts?at=100"},
		{"storage", Params{Resource: "Balances"}, "/pallets/Balances/storage"},
		{"account-balance-info", Params{Account: "15oF4", Block: Uint(7)}, "/accounts/15oF4/balance-info?at=7"},
		{"runtime-spec", Params{}, "/runtime/spec"},
		{"runtime-spec", Params{Block: Uint(3)}, "/runtime/spec?at=3"},
		{"node-version", Params{Block: Uint(3)}, "/node/version"},
		{"block-extrinsics-idx", Params{Block: Uint(10), Index: Uint(2)}, "/blocks/10/extrinsics/2"},
		{"rc-block-extrinsics-idx", Params{Block: Uint(10), Index: Uint(0)}, "/rc/blocks/10/extrinsics/0"},
		{"block-extrinsics-idx-rcblock", Params{Block: Uint(10), Index: Uint(1)}, "/blocks/10/extrinsics/1?useRcBlock=true"},
	}

	for _, tt := range tests {
		t.Run(tt.endpoint+"_"+tt.want, func(t *testing.T) {
			got, err := mustParse(t, tt.endpoint).Path(tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPath_MissingParams(t *testing.T) {
	tests := []struct {
		endpoint string
		params   Params
		missing  string
	}{
		{"consts", Params{Block: Uint(1)}, "resource"},
		{"block", Params{}, "block"},
		{"account-balance-info", Params{Block: Uint(1)}, "account"},
		{"block-extrinsics-idx", Params{Block: Uint(1)}, "index"},
	}

	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			_, err := mustParse(t, tt.endpoint).Path(tt.params)
			require.ErrorIs(t, err, ErrMissingParam)
			assert.Contains(t, err.Error(), tt.missing)
		})
	}
}

func TestPath_EscapesResource(t *testing.T) {
	got, err := mustParse(t, "consts").Path(Params{Resource: "a/b"})
	require.NoError(t, err)
	assert.Equal(t, "/pallets/a%2Fb/consts", got)
}

func TestCountPath(t *testing.T) {
	p, ok := mustParse(t, "block-extrinsics-idx").CountPath(9)
	assert.True(t, ok)
	assert.Equal(t, "/blocks/9/extrinsics-raw", p)

	p, ok = mustParse(t, "rc-block-extrinsics-idx").CountPath(9)
	assert.True(t, ok)
	assert.Equal(t, "/rc/blocks/9/extrinsics-raw", p)

	_, ok = mustParse(t, "block").CountPath(9)
	assert.False(t, ok)
}

func TestParse_Aliases(t *testing.T) {
	assert.Equal(t, "consts", mustParse(t, "pallet-consts").Name)
	assert.Equal(t, "block", mustParse(t, "BLOCKS").Name)
	assert.Equal(t, "tx-material", mustParse(t, "transaction-material").Name)
	assert.Equal(t, "account-balance-info", mustParse(t, "balance-info").Name)
}

func TestParse_Unknown(t *testing.T) {
	_, err := Parse("bogus")
	require.ErrorIs(t, err, ErrUnknownEndpoint)
	assert.Contains(t, err.Error(), "'bogus'")
	assert.Contains(t, err.Error(), "pallet: consts, storage, dispatchables, errors, events")
	assert.Contains(t, err.Error(), "runtime: runtime-spec")
}

func TestCatalog_UniqueNames(t *testing.T) {
	seen := make(map[string]string)
	for _, e := range All() {
		for _, n := range append([]string{e.Name}, e.Aliases...) {
			prev, dup := seen[n]
			assert.False(t, dup, "%s used by %s and %s", n, prev, e.Name)
			seen[n] = e.Name
		}
	}
}

func TestCategories(t *testing.T) {
	assert.True(t, mustParse(t, "consts").PerResource())
	assert.True(t, mustParse(t, "account-balance-info").PerResource())
	assert.False(t, mustParse(t, "block").PerResource())
	assert.False(t, mustParse(t, "runtime-spec").Ranged())
	assert.True(t, mustParse(t, "account-staking-info").Staking)
	assert.Len(t, ByCategory(CategoryPallet), 5)
	assert.Equal(t, "extrinsic", CategoryExtrinsic.String())
}

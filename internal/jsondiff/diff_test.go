package jsondiff

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parse decodes a JSON literal the same way the comparator does.
func parse(t *testing.T, s string) any {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	require.NoError(t, dec.Decode(&v))
	return v
}

func TestDiff_IdenticalDocuments(t *testing.T) {
	docs := []string{
		`null`,
		`true`,
		`42`,
		`"hello"`,
		`[]`,
		`{}`,
		`[1, "two", null, {"three": [3]}]`,
		`{"number": "5", "hash": "0xAB", "extrinsics": [{"method": {"pallet": "timestamp"}}]}`,
	}

	for _, doc := range docs {
		t.Run(doc, func(t *testing.T) {
			v := parse(t, doc)
			assert.Empty(t, Diff(v, v))
			assert.True(t, Equal(v, v))
		})
	}
}

func TestDiff_StringsAreCaseInsensitive(t *testing.T) {
	left := parse(t, `{"x": "Hi"}`)
	right := parse(t, `{"x": "hi"}`)

	assert.Empty(t, Diff(left, right))
	assert.True(t, Equal(left, right))

	hexLeft := parse(t, `{"hash": "0xABCDEF"}`)
	hexRight := parse(t, `{"hash": "0xabcdef"}`)
	assert.Empty(t, Diff(hexLeft, hexRight))
}

func TestDiff_MissingKeysAreDirectional(t *testing.T) {
	withKey := parse(t, `{"a": 1}`)
	empty := parse(t, `{}`)

	diffs := Diff(withKey, empty)
	require.Len(t, diffs, 1)
	assert.Equal(t, MissingOnRight, diffs[0].Kind)
	assert.Equal(t, "a", diffs[0].Path)
	assert.Equal(t, json.Number("1"), diffs[0].Left)

	diffs = Diff(empty, withKey)
	require.Len(t, diffs, 1)
	assert.Equal(t, MissingOnLeft, diffs[0].Kind)
	assert.Equal(t, "a", diffs[0].Path)
	assert.Equal(t, json.Number("1"), diffs[0].Right)
}

func TestDiff_ArrayLengthMismatchWithEqualPrefix(t *testing.T) {
	diffs := Diff(parse(t, `[1, 2, 9]`), parse(t, `[1, 2]`))

	require.Len(t, diffs, 1)
	assert.Equal(t, ArrayLengthMismatch, diffs[0].Kind)
	assert.Equal(t, "", diffs[0].Path)
	assert.Len(t, diffs[0].Left, 3)
	assert.Len(t, diffs[0].Right, 2)
}

func TestDiff_ArrayLengthMismatchStillComparesPrefix(t *testing.T) {
	diffs := Diff(parse(t, `{"xs": [1, 2, 9]}`), parse(t, `{"xs": [1, 3]}`))

	require.Len(t, diffs, 2)
	assert.Equal(t, ArrayLengthMismatch, diffs[0].Kind)
	assert.Equal(t, "xs", diffs[0].Path)
	assert.Equal(t, ValueMismatch, diffs[1].Kind)
	assert.Equal(t, "xs[1]", diffs[1].Path)
}

func TestDiff_TypeMismatchesSortLast(t *testing.T) {
	left := parse(t, `{"a": 1, "b": "x", "c": true}`)
	right := parse(t, `{"a": "1", "b": "y", "c": false}`)

	diffs := Diff(left, right)
	require.Len(t, diffs, 3)

	assert.Equal(t, ValueMismatch, diffs[0].Kind)
	assert.Equal(t, "b", diffs[0].Path)
	assert.Equal(t, ValueMismatch, diffs[1].Kind)
	assert.Equal(t, "c", diffs[1].Path)
	assert.Equal(t, TypeMismatch, diffs[2].Kind)
	assert.Equal(t, "a", diffs[2].Path)
}

func TestDiff_TypeMismatchDoesNotRecurse(t *testing.T) {
	diffs := Diff(parse(t, `{"a": {"b": 1}}`), parse(t, `{"a": [1]}`))

	require.Len(t, diffs, 1)
	assert.Equal(t, TypeMismatch, diffs[0].Kind)
	assert.Equal(t, "a", diffs[0].Path)
}

func TestDiff_NestedPaths(t *testing.T) {
	left := parse(t, `{"at": {"height": "5"}, "extrinsics": [{"method": "set"}, {"method": "transfer"}]}`)
	right := parse(t, `{"at": {"height": "6"}, "extrinsics": [{"method": "set"}, {"method": "batch"}]}`)

	diffs := Diff(left, right)
	require.Len(t, diffs, 2)
	assert.Equal(t, "at.height", diffs[0].Path)
	assert.Equal(t, "extrinsics[1].method", diffs[1].Path)
}

func TestDiff_RootArrayPaths(t *testing.T) {
	diffs := Diff(parse(t, `[{"x": 1}]`), parse(t, `[{"x": 2}]`))

	require.Len(t, diffs, 1)
	assert.Equal(t, "[0].x", diffs[0].Path)
}

func TestDiff_NumbersCompareByValue(t *testing.T) {
	assert.Empty(t, Diff(parse(t, `{"n": 1}`), parse(t, `{"n": 1.0}`)))
	assert.Empty(t, Diff(parse(t, `{"n": 100}`), parse(t, `{"n": 1e2}`)))

	diffs := Diff(parse(t, `{"n": 1}`), parse(t, `{"n": 2}`))
	require.Len(t, diffs, 1)
	assert.Equal(t, ValueMismatch, diffs[0].Kind)
}

func TestDiff_LargeIntegersCompareExactly(t *testing.T) {
	pairs := [][2]string{
		{`{"n": 12345678901234567890}`, `{"n": 12345678901234567891}`},
		{`{"n": 9007199254740993}`, `{"n": 9007199254740992}`},
		{`{"n": 0.10000000000000000001}`, `{"n": 0.1}`},
	}

	for _, p := range pairs {
		t.Run(p[0], func(t *testing.T) {
			left, right := parse(t, p[0]), parse(t, p[1])
			assert.False(t, Equal(left, right))

			diffs := Diff(left, right)
			require.Len(t, diffs, 1)
			assert.Equal(t, "n", diffs[0].Path)
			assert.Equal(t, ValueMismatch, diffs[0].Kind)
		})
	}

	assert.True(t, Equal(parse(t, `18446744073709551616`), parse(t, `1.8446744073709551616e19`)))
}

func TestDiff_NullAgainstValue(t *testing.T) {
	diffs := Diff(parse(t, `{"v": null}`), parse(t, `{"v": 0}`))

	require.Len(t, diffs, 1)
	assert.Equal(t, TypeMismatch, diffs[0].Kind)
}

func TestDiff_ObjectKeysVisitedInSortedOrder(t *testing.T) {
	left := parse(t, `{"z": 1, "m": 1, "a": 1}`)
	right := parse(t, `{}`)

	diffs := Diff(left, right)
	require.Len(t, diffs, 3)
	assert.Equal(t, []string{"a", "m", "z"}, []string{diffs[0].Path, diffs[1].Path, diffs[2].Path})
}

func TestDiff_ConsistentWithEqual(t *testing.T) {
	pairs := [][2]string{
		{`{"a": 1}`, `{"a": 1}`},
		{`{"a": 1}`, `{"a": 1, "b": 2}`},
		{`{"a": "X"}`, `{"a": "x"}`},
		{`[1, 2]`, `[1, 2, 3]`},
		{`[1, 2]`, `[2, 1]`},
		{`{"a": [{"b": null}]}`, `{"a": [{"b": null}]}`},
		{`{"a": [{"b": null}]}`, `{"a": [{"b": false}]}`},
		{`"1"`, `1`},
		{`true`, `true`},
		{`{}`, `[]`},
	}

	for _, p := range pairs {
		t.Run(p[0]+"_vs_"+p[1], func(t *testing.T) {
			left, right := parse(t, p[0]), parse(t, p[1])
			assert.Equal(t, len(Diff(left, right)) == 0, Equal(left, right))
			assert.Equal(t, len(Diff(right, left)) == 0, Equal(right, left))
		})
	}
}

func TestDiff_AcceptsFloatDecodedDocuments(t *testing.T) {
	var left, right any
	require.NoError(t, json.Unmarshal([]byte(`{"n": 1.5}`), &left))
	require.NoError(t, json.Unmarshal([]byte(`{"n": 1.5}`), &right))

	assert.True(t, Equal(left, right))
	assert.Empty(t, Diff(left, right))
}

// Package jsondiff structurally compares two decoded JSON documents.
//
// Documents are the trees produced by encoding/json when decoding into an
// any: nil, bool, json.Number (or float64), string, []any and map[string]any.
//
// # Comparison Rules
//
//   - Objects are compared key by key in sorted key order. A key present on
//     only one side is reported as MissingOnRight or MissingOnLeft.
//   - Arrays of different length report a single ArrayLengthMismatch and are
//     still compared element by element over the shared prefix.
//   - Strings compare case-insensitively.
//   - Numbers compare by numeric value.
//   - Values of different JSON kinds report a TypeMismatch and are not
//     descended into.
//
// Diff returns TypeMismatch entries after every other kind, keeping discovery
// order within each group. Equal applies the same rules without building the
// difference list, so Equal(a, b) is true exactly when Diff(a, b) is empty.
package jsondiff

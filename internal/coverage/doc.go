// Package coverage accumulates, across independent runs, which identifier
// ranges each endpoint and resource has been exercised over and with what
// outcome.
//
// # Ranges
//
// Every resource keeps a normalized set of inclusive ranges: sorted by start,
// with no two ranges overlapping or adjacent. Ranges.Add re-normalizes after
// every insertion, so inserting the same range twice or inserting ranges in
// any order yields the same set.
//
// # Persistence
//
// The Store is read once at process start (a missing file yields an empty
// store) and written back once, as a complete snapshot, at the end of the
// run. Acquire takes an advisory lock next to the file so two processes do not
// interleave their read-modify-write cycles.
//
// A Store is not safe for concurrent use. The scanner mutates it only from its
// aggregating goroutine.
package coverage

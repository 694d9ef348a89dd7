// Package scan drives a Comparator across an identifier space.
//
// ARCHITECTURE:
//
// Windowed Concurrency:
// Identifiers are processed in windows of BatchSize consecutive values.
// Every identifier in a window is compared on its own goroutine (bounded by
// BatchSize); the scanner waits for the whole window before moving on and
// sleeps Delay between windows.
//
// Single Aggregator:
// Comparison tasks only send results on a channel. The goroutine calling
// Run owns the counters, the issue list, the Recorder and the coverage
// store, so none of them need locking.
//
// Identifier Spaces:
//   - FlatSpace: one request, no iteration.
//   - BlockSpace: every block in [Start, End].
//   - ResourceSpace: every block for each resource (pallet or account).
//   - FanoutSpace: per block, discover an extrinsic count on the left server,
//     then compare every (block, index) pair.
//
// Failure Semantics:
// Per-request failures are classified outcomes and never abort a run. A
// panicking task, a Recorder error or context cancellation aborts it.
package scan

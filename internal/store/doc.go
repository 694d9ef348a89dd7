// Package store provides the SQLite-backed run log.
//
// Every scan that runs with a database records:
//   - Runs: one row per scan with its configuration, status and totals
//   - Run Resources: per-pallet or per-account tallies of a run
//   - Issues: every non-agreeing comparison, including the raw response
//     bodies of mismatches
//
// # Ordering
//
// Issues carry a per-run seq assigned at insert time. Reads order issues by
// seq, so a run log replays in the order the scanner aggregated it. Runs are
// listed newest first by start time, ties broken by id.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Run IDs are UUIDv7 so they sort by creation time.
package store

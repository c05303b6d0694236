// Package store provides SQLite-backed persistence for edgewatch.
//
// Two tables:
//   - entries: the registered rule set, one row per entry, keyed by entry ID
//     with its canonical spec and fingerprint
//   - firings: append-only audit log of rising edges
//
// Cached condition values are never persisted; a restarted watcher
// re-registers entries and rebuilds its caches from live sources.
//
// # Critical Patterns
//
// Logical time:
//   - All ordering uses seq INTEGER (logical clock), NEVER timestamps
//   - MaxSeq seeds the clock on restart so seq stays monotonic
//
// Deterministic query results:
//   - Every read orders by seq ASC with a binary tie-break
//
// Integrity:
//   - The fingerprint column is recomputed on load; a mismatch is an error
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store

// Package store provides SQLite-backed storage for models and their fits.
//
// The store keeps:
//   - Models: canonical JSON dumps, content-addressed by their hash
//   - Fits: one record per committed solve, linked to a model hash
//   - Fit parameters: the parameter rows of a fit in registry order
//
// # Ordering
//
// Every record carries a seq INTEGER assigned on insert. Queries order by
// seq ASC, id ASC COLLATE BINARY so listings are stable.
//
// # Missing values
//
// NaN parameter values are stored as NULL and read back as NaN.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Model hashes are computed by internal/canon over the dump with its file
// info cleared, so saving the same model twice is a no-op.
package store

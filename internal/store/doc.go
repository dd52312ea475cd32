// Package store persists finished executions in SQLite.
//
// An execution is written once, in a single transaction, after the engine
// returns:
//   - executions: one row per Execute call, with the trajectory digest
//   - sessions: one row per (subset, run) with its parameters and outcome
//   - records: the collated trajectory, one row per snapshot
//
// Records are read back in collation order (subset, run, timestep,
// substep) and can be filtered with a query.Predicate over the tag columns.
// States and parameters are stored as canonical JSON (see ir.MarshalCanonical).
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON
package store

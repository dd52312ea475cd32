// Package engine implements the stepsim simulation engine.
//
// The engine runs a discrete-time, multi-substep state-update model. A model
// declares an initial state snapshot, a parameter set and an ordered list of
// partial state update blocks. Each timestep runs every block once, in
// declaration order; each block evaluates its policies, aggregates their
// signals and applies its state updates to produce the next snapshot.
//
// ARCHITECTURE:
//
// Data flows strictly downward and results flow back up as snapshots:
//
//	Execute (orchestrator)
//	  → Expand (parameter sweep)
//	  → runSession        one per (run, subset)
//	    → runTimestep     T times, sequential
//	      → runSubstep    once per block, sequential
//	        → Aggregate   merge same-named policy signals
//	  → Collate           flatten into an ir.Table
//
// Sessions are independent and run on a bounded worker pool. Inside a
// session everything is sequential. Each session owns its history; the only
// state shared between sessions is the read-only parameter configuration.
//
// ERRORS:
//
// Configuration errors (ConfigError) abort Execute before any session runs.
// Execution errors (ExecutionError) fail only the session that raised them;
// the session keeps its partial history and siblings continue. Result.Err
// reports every failed session once all sessions are done.
//
// DETERMINISM:
//
// Output order is fixed by Collate, never by scheduling. Given pure policies
// and updates, two executions of the same model produce the same table and
// therefore the same ir.TableDigest.
package engine

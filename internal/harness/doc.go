// Package harness runs conformance scenarios against simulation models.
//
// A scenario names a model directory, optionally overrides its runs and
// timesteps, and states what the execution must produce. The harness loads
// the model, executes it with a fixed execution ID, writes the result to a
// fresh in-memory store and evaluates the expectations against it.
//
// # Scenario Format
//
//	name: supply
//	description: "Supply series is replayed row by row"
//	model: supply            # directory, relative to the scenario file
//	runs: 1                  # optional override
//	timesteps: 3             # optional override
//	expect:
//	  rows: 4
//	  failed_sessions: 0
//	  configurations: 1
//	  rows_at:
//	    - {run: 1, subset: 0, timestep: 2, substep: 1, state: {supply: 72085596.47}}
//	  final_state: {timestamp: "2015-08-01"}
//	golden: true
//
// rows_at and final_state use subset semantics: only the listed variables
// are compared. Numbers compare numerically, so 1 matches 1.0.
//
// # Golden Files
//
// With golden: true the canonical trajectory (ir.CanonicalTable) is compared
// byte for byte with golden/<scenario-file-name>.golden next to the
// scenario. In Go tests, RunWithGolden does the same through goldie under
// testdata/golden.
package harness

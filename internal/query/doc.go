// Package query provides a small predicate IR for filtering stored
// trajectories and its compilation to parameterised SQL.
//
// Predicates address the record tag columns only (run, subset, timestep,
// substep). State variables are opaque JSON in the store and are filtered
// after decoding, if at all.
//
// Predicate is a sealed interface: only Equals, Between and And implement
// it, so backends can switch exhaustively:
//
//	switch p := pred.(type) {
//	case Equals:
//	case Between:
//	case And:
//	}
//
// Values are always bound as parameters, never interpolated into SQL.
// Field names are checked against a fixed allow-list before they reach SQL.
package query

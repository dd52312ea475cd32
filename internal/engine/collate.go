package engine

import (
	"cmp"
	"slices"

	"github.com/roach88/stepsim/internal/ir"
)

// Collate flattens session histories into one trajectory table.
//
// Records are ordered by (subset, run, timestep, substep). Sessions are
// sorted by (subset, run); within a session the history is already
// chronological. Failed sessions contribute their partial history.
// State values are copied through untouched.
func Collate(variables []string, sessions []SessionResult) ir.Table {
	ordered := slices.Clone(sessions)
	slices.SortStableFunc(ordered, func(a, b SessionResult) int {
		if c := cmp.Compare(a.Subset, b.Subset); c != 0 {
			return c
		}
		return cmp.Compare(a.Run, b.Run)
	})

	rows := 0
	for _, s := range ordered {
		rows += len(s.History)
	}

	table := ir.Table{
		Variables: slices.Clone(variables),
		Records:   make([]ir.Record, 0, rows),
	}
	for _, s := range ordered {
		for _, snap := range s.History {
			table.Records = append(table.Records, ir.Record{
				Run:      s.Run,
				Subset:   s.Subset,
				Timestep: snap.Timestep,
				Substep:  snap.Substep,
				State:    snap.State,
			})
		}
	}
	return table
}

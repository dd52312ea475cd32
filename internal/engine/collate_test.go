package engine

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/roach88/stepsim/internal/ir"
)

func snap(t, s int, x int64) ir.Snapshot {
	return ir.Snapshot{Timestep: t, Substep: s, State: ir.MustState(ir.P("x", ir.Int(x)))}
}

func TestCollate_OrdersBySubsetThenRun(t *testing.T) {
	sessions := []SessionResult{
		{Run: 2, Subset: 1, History: []ir.Snapshot{snap(0, 0, 21)}},
		{Run: 1, Subset: 1, History: []ir.Snapshot{snap(0, 0, 11)}},
		{Run: 2, Subset: 0, History: []ir.Snapshot{snap(0, 0, 20), snap(1, 1, 22)}},
		{Run: 1, Subset: 0, History: []ir.Snapshot{snap(0, 0, 10)}},
	}

	table := Collate([]string{"x"}, sessions)

	type tag struct{ run, subset, timestep int }
	var got []tag
	for _, r := range table.Records {
		got = append(got, tag{r.Run, r.Subset, r.Timestep})
	}
	want := []tag{{1, 0, 0}, {2, 0, 0}, {2, 0, 1}, {1, 1, 0}, {2, 1, 0}}
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(tag{})); diff != "" {
		t.Errorf("record order (-want +got):\n%s", diff)
	}

	// Input slice is not reordered.
	assert.Equal(t, 2, sessions[0].Run)
}

func TestCollate_KeepsFailedPartialHistory(t *testing.T) {
	sessions := []SessionResult{
		{Run: 1, History: []ir.Snapshot{snap(0, 0, 0), snap(1, 1, 1)}, Status: StatusFailed},
		{Run: 2, Status: StatusCanceled},
	}

	table := Collate([]string{"x"}, sessions)
	assert.Equal(t, 2, table.Len())
	assert.Equal(t, []string{"x"}, table.Variables)
}

package engine

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/stepsim/internal/ir"
)

// Divergence locates the first difference between two trajectory tables.
// Index is the record position; -1 means the variable lists differ.
type Divergence struct {
	Index    int
	Expected *ir.Record
	Actual   *ir.Record
	Reason   string
}

func (d *Divergence) String() string {
	return fmt.Sprintf("record %d: %s", d.Index, d.Reason)
}

// ReplayReport is the outcome of re-executing a model against a stored
// trajectory.
type ReplayReport struct {
	ExpectedDigest string
	ActualDigest   string
	Result         *Result
	Divergence     *Divergence
}

// Match reports whether the replayed trajectory is identical.
func (r *ReplayReport) Match() bool {
	return r.ExpectedDigest == r.ActualDigest
}

// Replay re-executes m and compares the new trajectory with expected.
//
// Replay relies on determinism: pure policies and updates over the same
// model always yield the same table, so a digest mismatch means the model,
// its data or its functions changed since expected was recorded.
func (e *Engine) Replay(ctx context.Context, m *ir.Model, expected ir.Table) (*ReplayReport, error) {
	want, err := ir.TableDigest(expected)
	if err != nil {
		return nil, fmt.Errorf("digest stored trajectory: %w", err)
	}

	res, err := e.Execute(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}

	got, err := ir.TableDigest(res.Table)
	if err != nil {
		return nil, fmt.Errorf("digest replayed trajectory: %w", err)
	}

	report := &ReplayReport{
		ExpectedDigest: want,
		ActualDigest:   got,
		Result:         res,
	}
	if !report.Match() {
		report.Divergence = Diff(expected, res.Table)
	}
	return report, nil
}

// Diff returns the first difference between two tables, or nil when they
// hold the same variables and records.
func Diff(expected, actual ir.Table) *Divergence {
	if !slices.Equal(expected.Variables, actual.Variables) {
		return &Divergence{
			Index:  -1,
			Reason: fmt.Sprintf("variables %v != %v", expected.Variables, actual.Variables),
		}
	}

	n := min(len(expected.Records), len(actual.Records))
	for i := 0; i < n; i++ {
		want, got := expected.Records[i], actual.Records[i]
		if reason := recordDiff(want, got); reason != "" {
			return &Divergence{Index: i, Expected: &want, Actual: &got, Reason: reason}
		}
	}

	switch {
	case len(expected.Records) > n:
		want := expected.Records[n]
		return &Divergence{Index: n, Expected: &want, Reason: "record missing from replay"}
	case len(actual.Records) > n:
		got := actual.Records[n]
		return &Divergence{Index: n, Actual: &got, Reason: "unexpected extra record"}
	}
	return nil
}

func recordDiff(want, got ir.Record) string {
	if want.Run != got.Run || want.Subset != got.Subset ||
		want.Timestep != got.Timestep || want.Substep != got.Substep {
		return fmt.Sprintf("tags (run=%d subset=%d timestep=%d substep=%d) != (run=%d subset=%d timestep=%d substep=%d)",
			want.Run, want.Subset, want.Timestep, want.Substep,
			got.Run, got.Subset, got.Timestep, got.Substep)
	}
	for _, k := range want.State.Keys() {
		if !ir.Equal(want.State.Get(k), got.State.Get(k)) {
			return fmt.Sprintf("variable %q differs", k)
		}
	}
	return ""
}

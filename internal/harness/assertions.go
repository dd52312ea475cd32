package harness

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/stepsim/internal/engine"
	"github.com/roach88/stepsim/internal/ir"
	"github.com/roach88/stepsim/internal/query"
	"github.com/roach88/stepsim/internal/store"
)

// Expectation type names used in AssertionError.Type.
const (
	AssertRows           = "rows"
	AssertFailedSessions = "failed_sessions"
	AssertConfigurations = "configurations"
	AssertRowsAt         = "rows_at"
	AssertFinalState     = "final_state"
)

// AssertionError is returned when an expectation fails.
type AssertionError struct {
	Type     string // expectation kind
	Expected string // human-readable expected outcome
	Actual   string // human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// AssertionContext provides store access for evaluating expectations.
type AssertionContext struct {
	Store       *store.Store
	Ctx         context.Context
	ExecutionID string
}

// EvaluateExpectations evaluates every expectation against the result.
// Returns a slice of error messages for failed expectations.
func EvaluateExpectations(result *Result, expect Expect, actx *AssertionContext) []string {
	var errs []string
	add := func(err error) {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	if expect.Rows != nil {
		add(assertCount(AssertRows, *expect.Rows, result.Table.Len()))
	}
	if expect.Configurations != nil {
		add(assertCount(AssertConfigurations, *expect.Configurations, result.Execution.Configurations))
	}
	if expect.FailedSessions != nil {
		add(assertCount(AssertFailedSessions, *expect.FailedSessions, result.Execution.FailedSessions))
	}

	for i, row := range expect.RowsAt {
		if actx == nil || actx.Store == nil {
			add(fmt.Errorf("rows_at[%d]: requires database context", i))
			continue
		}
		add(assertRowAt(actx, row))
	}

	if len(expect.FinalState) > 0 {
		if actx == nil || actx.Store == nil {
			add(fmt.Errorf("final_state: requires database context"))
		} else {
			add(assertFinalState(actx, result.Table, expect.FinalState))
		}
	}

	return errs
}

func assertCount(kind string, want, got int) error {
	if want == got {
		return nil
	}
	return &AssertionError{
		Type:     kind,
		Expected: fmt.Sprintf("%d", want),
		Actual:   fmt.Sprintf("%d", got),
	}
}

// assertRowAt reads exactly one record from the store and compares the
// listed state variables.
func assertRowAt(actx *AssertionContext, row RowAt) error {
	pred := query.And{Predicates: []query.Predicate{
		query.Equals{Field: query.Run, Value: row.Run},
		query.Equals{Field: query.Subset, Value: row.Subset},
		query.Equals{Field: query.Timestep, Value: row.Timestep},
		query.Equals{Field: query.Substep, Value: row.Substep},
	}}
	where := fmt.Sprintf("run=%d subset=%d timestep=%d substep=%d", row.Run, row.Subset, row.Timestep, row.Substep)

	table, err := actx.Store.ReadTrajectory(actx.Ctx, actx.ExecutionID, pred)
	if err != nil {
		return &AssertionError{
			Type:     AssertRowsAt,
			Expected: fmt.Sprintf("record at %s", where),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}
	switch len(table.Records) {
	case 0:
		return &AssertionError{
			Type:     AssertRowsAt,
			Expected: fmt.Sprintf("record at %s", where),
			Actual:   "record not found",
		}
	case 1:
	default:
		return &AssertionError{
			Type:     AssertRowsAt,
			Expected: fmt.Sprintf("exactly one record at %s", where),
			Actual:   fmt.Sprintf("%d records matched", len(table.Records)),
		}
	}

	if err := matchState(table.Records[0].State, row.State); err != nil {
		return &AssertionError{
			Type:     AssertRowsAt,
			Expected: fmt.Sprintf("state at %s to match", where),
			Actual:   err.Error(),
		}
	}
	return nil
}

// assertFinalState checks the last record of every succeeded session.
func assertFinalState(actx *AssertionContext, table ir.Table, expect map[string]any) error {
	sessions, err := actx.Store.ReadSessions(actx.Ctx, actx.ExecutionID)
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: "stored sessions",
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}

	checked := 0
	for _, sess := range sessions {
		if sess.Status != engine.StatusSucceeded {
			continue
		}
		records := table.Session(sess.Run, sess.Subset)
		if len(records) == 0 {
			continue
		}
		last := records[len(records)-1]
		if err := matchState(last.State, expect); err != nil {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("final state of run=%d subset=%d to match", sess.Run, sess.Subset),
				Actual:   err.Error(),
			}
		}
		checked++
	}

	if checked == 0 {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: "at least one succeeded session",
			Actual:   "no succeeded sessions",
		}
	}
	return nil
}

// matchState compares expected values (subset semantics) with a state.
// Keys are checked in sorted order so the first reported mismatch is stable.
func matchState(actual ir.State, expected map[string]any) error {
	keys := make([]string, 0, len(expected))
	for k := range expected {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		got, ok := actual.Lookup(key)
		if !ok {
			return fmt.Errorf("variable %q not in state %v", key, actual.Keys())
		}
		want, err := ir.FromGo(expected[key])
		if err != nil {
			return fmt.Errorf("variable %q: expected value: %w", key, err)
		}
		if !valuesEqual(got, want) {
			return fmt.Errorf("variable %q = %s, want %s", key, describe(got), describe(want))
		}
	}
	return nil
}

// valuesEqual compares two values, treating Int and Float numerically.
// Scenario YAML cannot always say which numeric type it means.
func valuesEqual(actual, expected ir.Value) bool {
	if ir.Equal(actual, expected) {
		return true
	}
	af, aNum := ir.AsFloat(actual)
	ef, eNum := ir.AsFloat(expected)
	return aNum && eNum && af == ef
}

func describe(v ir.Value) string {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v (%s)", v, ir.TypeName(v))
	}
	return fmt.Sprintf("%s (%s)", data, ir.TypeName(v))
}

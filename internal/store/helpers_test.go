package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/roach88/stepsim/internal/engine"
	"github.com/roach88/stepsim/internal/ir"
)

// createTestStore opens a fresh store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// sweepModel sweeps "rate" over {1, 2} and adds rate to "level" every
// timestep. The rate=2 configuration fails at timestep 2.
func sweepModel(runs, timesteps int) *ir.Model {
	add := ir.PolicyFunc(func(ctx ir.StepContext) (ir.Signals, error) {
		rate := ctx.Params.Get("rate")
		if ir.Equal(rate, ir.Int(2)) && ctx.Timestep == 2 {
			return nil, errors.New("rate too high")
		}
		return ir.Signals{"delta": rate}, nil
	})
	level := ir.UpdateFunc(func(ctx ir.StepContext, in ir.Signals) (string, ir.Value, error) {
		v, err := ir.Add(ctx.Prev.Get("level"), in["delta"])
		return "level", v, err
	})
	return &ir.Model{
		Runs:      runs,
		Timesteps: timesteps,
		Params: ir.ParamSet{
			"rate":  ir.Sweep(ir.Int(1), ir.Int(2)),
			"label": ir.Static(ir.String("tank")),
		},
		Initial: ir.MustState(ir.P("level", ir.Int(0)), ir.P("note", ir.String("start"))),
		Blocks: []ir.Block{{
			Name:     "fill",
			Policies: []ir.NamedPolicy{{Name: "add", Policy: add}},
			Updates:  []ir.NamedUpdate{{Name: "level", Update: level}},
		}},
	}
}

func executeModel(t *testing.T, id string, m *ir.Model) *engine.Result {
	t.Helper()
	e := engine.New(
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		engine.WithIDGenerator(engine.NewFixedGenerator(id)),
	)
	res, err := e.Execute(context.Background(), m)
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	return res
}

// writeTestExecution executes sweepModel and stores it under id.
func writeTestExecution(t *testing.T, s *Store, id string) (*engine.Result, Execution) {
	t.Helper()
	m := sweepModel(2, 3)
	res := executeModel(t, id, m)
	exec, err := s.WriteExecution(context.Background(), Execution{
		Model:     "testdata/tank",
		Runs:      m.Runs,
		Timesteps: m.Timesteps,
	}, res)
	if err != nil {
		t.Fatalf("WriteExecution() failed: %v", err)
	}
	return res, exec
}

package engine

import (
	"io"
	"log/slog"

	"github.com/google/go-cmp/cmp"

	"github.com/roach88/stepsim/internal/ir"
)

// stateComparer lets go-cmp diff tables holding ir.State.
var stateComparer = cmp.Comparer(func(a, b ir.State) bool { return a.Equal(b) })

func quietEngine(opts ...EngineOption) *Engine {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(append([]EngineOption{WithLogger(logger)}, opts...)...)
}

func constPolicy(s ir.Signals) ir.Policy {
	return ir.PolicyFunc(func(ir.StepContext) (ir.Signals, error) {
		return s, nil
	})
}

// passThrough assigns the variable the merged signal of the same name.
func passThrough(name string) ir.StateUpdate {
	return ir.UpdateFunc(func(_ ir.StepContext, in ir.Signals) (string, ir.Value, error) {
		return name, in[name], nil
	})
}

// accumulate adds a signal to the previous value of a variable.
func accumulate(variable, signal string) ir.StateUpdate {
	return ir.UpdateFunc(func(ctx ir.StepContext, in ir.Signals) (string, ir.Value, error) {
		v, err := ir.Add(ctx.Prev.Get(variable), in[signal])
		return variable, v, err
	})
}

// counterModel increments "count" by one every timestep.
func counterModel(runs, timesteps int) *ir.Model {
	return &ir.Model{
		Runs:      runs,
		Timesteps: timesteps,
		Initial:   ir.MustState(ir.P("count", ir.Int(0))),
		Blocks: []ir.Block{{
			Name:     "tick",
			Policies: []ir.NamedPolicy{{Name: "one", Policy: constPolicy(ir.Signals{"delta": ir.Int(1)})}},
			Updates:  []ir.NamedUpdate{{Name: "count", Update: accumulate("count", "delta")}},
		}},
	}
}

// supplyRows is a three-row supply time series.
func supplyRows() ir.Array {
	return ir.Array{
		ir.Object{"date": ir.String("2015-07-30"), "supply": ir.Float(72049306.59)},
		ir.Object{"date": ir.String("2015-07-31"), "supply": ir.Float(72085596.47)},
		ir.Object{"date": ir.String("2015-08-01"), "supply": ir.Float(72113847.53)},
	}
}

// supplyModel reads row t-1 of a static table parameter each timestep and
// passes timestamp and supply straight through.
func supplyModel() *ir.Model {
	rows := supplyRows()
	parse := ir.PolicyFunc(func(ctx ir.StepContext) (ir.Signals, error) {
		row, err := ir.Index(ctx.Params.Get("supply_timeseries"), ctx.Timestep-1)
		if err != nil {
			return nil, err
		}
		date, err := ir.Field(row, "date")
		if err != nil {
			return nil, err
		}
		supply, err := ir.Field(row, "supply")
		if err != nil {
			return nil, err
		}
		return ir.Signals{"timestamp": date, "supply": supply}, nil
	})

	return &ir.Model{
		Runs:      1,
		Timesteps: len(rows),
		Params:    ir.ParamSet{"supply_timeseries": ir.Static(rows)},
		Initial:   ir.MustState(ir.P("timestamp", ir.Null{}), ir.P("supply", ir.Int(0))),
		Blocks: []ir.Block{{
			Name:     "ingest",
			Policies: []ir.NamedPolicy{{Name: "parse", Policy: parse}},
			Updates: []ir.NamedUpdate{
				{Name: "timestamp", Update: passThrough("timestamp")},
				{Name: "supply", Update: passThrough("supply")},
			},
		}},
	}
}

package builtin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stepsim/internal/ir"
)

func supplyParams() ir.Params {
	return ir.NewParams(map[string]ir.Value{
		"supply_timeseries": ir.Array{
			ir.Object{"date": ir.String("2015-07-30"), "supply": ir.Float(72049306.59)},
			ir.Object{"date": ir.String("2015-07-31"), "supply": ir.Float(72085596.47)},
		},
		"cap": ir.Int(100),
	})
}

func TestTableRow_ReadsRowForTimestep(t *testing.T) {
	p, err := TableRow(Args{
		"table":  ir.String("supply_timeseries"),
		"rename": ir.Object{"date": ir.String("timestamp")},
	})
	require.NoError(t, err)

	signals, err := p.Evaluate(ir.StepContext{Params: supplyParams(), Timestep: 2})
	require.NoError(t, err)
	assert.Equal(t, ir.Signals{
		"timestamp": ir.String("2015-07-31"),
		"supply":    ir.Float(72085596.47),
	}, signals)
}

func TestTableRow_Fields(t *testing.T) {
	p, err := TableRow(Args{
		"table":  ir.String("supply_timeseries"),
		"fields": ir.Array{ir.String("supply")},
	})
	require.NoError(t, err)

	signals, err := p.Evaluate(ir.StepContext{Params: supplyParams(), Timestep: 1})
	require.NoError(t, err)
	assert.Equal(t, ir.Signals{"supply": ir.Float(72049306.59)}, signals)
}

func TestTableRow_Errors(t *testing.T) {
	_, err := TableRow(Args{})
	assert.EqualError(t, err, `table_row: argument "table": required`)

	_, err = TableRow(Args{"table": ir.String("t"), "colums": ir.Array{}})
	assert.EqualError(t, err, `table_row: argument "colums": unknown argument`)

	_, err = TableRow(Args{"table": ir.Int(1)})
	assert.ErrorContains(t, err, "expected string, got int")

	p, err := TableRow(Args{"table": ir.String("supply_timeseries")})
	require.NoError(t, err)

	_, err = p.Evaluate(ir.StepContext{Params: supplyParams(), Timestep: 3})
	assert.EqualError(t, err, `table "supply_timeseries" has 2 rows, timestep 3 needs row 2`)

	p, err = TableRow(Args{"table": ir.String("cap")})
	require.NoError(t, err)
	_, err = p.Evaluate(ir.StepContext{Params: supplyParams(), Timestep: 1})
	assert.EqualError(t, err, `parameter "cap" is int, not a table`)
}

func TestConstant(t *testing.T) {
	p, err := Constant(Args{"x": ir.Int(3)})
	require.NoError(t, err)

	first, err := p.Evaluate(ir.StepContext{})
	require.NoError(t, err)
	first["x"] = ir.Int(99)

	second, err := p.Evaluate(ir.StepContext{})
	require.NoError(t, err)
	assert.Equal(t, ir.Signals{"x": ir.Int(3)}, second, "callers cannot mutate the constant")
}

func TestParam(t *testing.T) {
	p, err := Param(Args{"names": ir.Array{ir.String("cap")}})
	require.NoError(t, err)

	signals, err := p.Evaluate(ir.StepContext{Params: supplyParams()})
	require.NoError(t, err)
	assert.Equal(t, ir.Signals{"cap": ir.Int(100)}, signals)

	p, err = Param(Args{"names": ir.Array{ir.String("missing")}})
	require.NoError(t, err)
	_, err = p.Evaluate(ir.StepContext{Params: supplyParams()})
	assert.EqualError(t, err, `parameter "missing" not set`)

	_, err = Param(Args{})
	assert.Error(t, err)
}

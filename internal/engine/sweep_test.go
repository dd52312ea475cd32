package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stepsim/internal/ir"
)

func TestExpand_NoSweepIsOneConfiguration(t *testing.T) {
	configs, err := Expand(ir.ParamSet{
		"cap":   ir.Static(ir.Int(100)),
		"table": ir.Static(ir.Array{ir.Object{"x": ir.Int(1)}}),
	})

	require.NoError(t, err)
	require.Len(t, configs, 1)
	assert.Equal(t, ir.Int(100), configs[0].Get("cap"))
	assert.Equal(t, []string{"cap", "table"}, configs[0].Names())
}

func TestExpand_EmptyParamSet(t *testing.T) {
	configs, err := Expand(nil)

	require.NoError(t, err)
	require.Len(t, configs, 1)
	assert.Equal(t, 0, configs[0].Len())
}

func TestExpand_CartesianOrder(t *testing.T) {
	configs, err := Expand(ir.ParamSet{
		"b":   ir.Sweep(ir.String("x"), ir.String("y")),
		"a":   ir.Sweep(ir.Int(1), ir.Int(2)),
		"cap": ir.Static(ir.Int(7)),
	})
	require.NoError(t, err)
	require.Len(t, configs, 4)

	// "a" sorts first so it varies slowest.
	expected := [][2]ir.Value{
		{ir.Int(1), ir.String("x")},
		{ir.Int(1), ir.String("y")},
		{ir.Int(2), ir.String("x")},
		{ir.Int(2), ir.String("y")},
	}
	for i, want := range expected {
		assert.Equal(t, want[0], configs[i].Get("a"), "config %d", i)
		assert.Equal(t, want[1], configs[i].Get("b"), "config %d", i)
		assert.Equal(t, ir.Int(7), configs[i].Get("cap"), "config %d", i)
	}
}

func TestExpand_EmptySweepIsConfigError(t *testing.T) {
	_, err := Expand(ir.ParamSet{"rate": ir.Sweep()})

	require.Error(t, err)
	assert.True(t, IsConfigError(err))
	assert.Contains(t, err.Error(), string(ErrCodeEmptySweep))
}

func TestExecute_SweepTimesRuns(t *testing.T) {
	m := counterModel(2, 1)
	m.Params = ir.ParamSet{"rate": ir.Sweep(ir.Float(0.1), ir.Float(0.2), ir.Float(0.3))}

	res, err := quietEngine().Execute(t.Context(), m)
	require.NoError(t, err)

	assert.Len(t, res.Configurations, 3)
	assert.Len(t, res.Sessions, 6)
	for i, s := range res.Sessions {
		assert.Equal(t, i/2, s.Subset)
		assert.Equal(t, i%2+1, s.Run)
		assert.Equal(t, res.Configurations[s.Subset].Get("rate"), s.Params.Get("rate"))
	}
}

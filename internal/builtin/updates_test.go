package builtin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stepsim/internal/ir"
)

func ctxWith(pairs ...ir.Pair) ir.StepContext {
	return ir.StepContext{Prev: ir.MustState(pairs...)}
}

func TestAssign_PassThrough(t *testing.T) {
	u, err := Assign("supply", nil)
	require.NoError(t, err)

	name, v, err := u.Update(ctxWith(ir.P("supply", ir.Int(0))), ir.Signals{"supply": ir.Float(1.25)})
	require.NoError(t, err)
	assert.Equal(t, "supply", name)
	assert.Equal(t, ir.Float(1.25), v)
}

func TestAssign_FromOtherSignal(t *testing.T) {
	u, err := Assign("timestamp", Args{"signal": ir.String("date")})
	require.NoError(t, err)

	_, v, err := u.Update(ctxWith(ir.P("timestamp", ir.Null{})), ir.Signals{"date": ir.String("2015-07-30")})
	require.NoError(t, err)
	assert.Equal(t, ir.String("2015-07-30"), v)
}

func TestAssign_MissingSignal(t *testing.T) {
	u, err := Assign("supply", nil)
	require.NoError(t, err)

	_, _, err = u.Update(ctxWith(ir.P("supply", ir.Int(0))), ir.Signals{})
	assert.EqualError(t, err, `signal "supply" not in policy input`)
}

func TestAccumulate(t *testing.T) {
	u, err := Accumulate("balance", Args{"signal": ir.String("inflow")})
	require.NoError(t, err)

	ctx := ctxWith(ir.P("balance", ir.Int(10)))

	_, v, err := u.Update(ctx, ir.Signals{"inflow": ir.Int(5)})
	require.NoError(t, err)
	assert.Equal(t, ir.Int(15), v)

	_, v, err = u.Update(ctx, ir.Signals{})
	require.NoError(t, err)
	assert.Equal(t, ir.Int(10), v, "no signal keeps the previous value")

	_, _, err = u.Update(ctx, ir.Signals{"inflow": ir.String("lots")})
	assert.ErrorContains(t, err, "cannot add int and string")
}

func TestIncrement(t *testing.T) {
	u, err := Increment("count", nil)
	require.NoError(t, err)
	_, v, err := u.Update(ctxWith(ir.P("count", ir.Int(1))), nil)
	require.NoError(t, err)
	assert.Equal(t, ir.Int(2), v)

	u, err = Increment("level", Args{"by": ir.Float(0.5)})
	require.NoError(t, err)
	_, v, err = u.Update(ctxWith(ir.P("level", ir.Int(1))), nil)
	require.NoError(t, err)
	assert.Equal(t, ir.Float(1.5), v)

	_, err = Increment("count", Args{"by": ir.String("one")})
	assert.EqualError(t, err, `increment: argument "by": expected number, got string`)
}

package builtin

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stepsim/internal/ir"
)

func TestDefault_Names(t *testing.T) {
	r := Default()

	assert.Equal(t, []string{"constant", "param", "table_row"}, r.Names(KindPolicy))
	assert.Equal(t, []string{"accumulate", "assign", "increment"}, r.Names(KindUpdate))
	assert.Equal(t, []string{"collect", "first", "last", "max", "min", "sum"}, r.Names(KindReducer))
}

func TestRegistry_Unknown(t *testing.T) {
	r := Default()

	_, err := r.Policy("fetch_prices", nil)
	var ue *UnknownFunctionError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, KindPolicy, ue.Kind)
	assert.Equal(t, `unknown policy "fetch_prices"`, err.Error())

	_, err = r.Update("clamp", "x", nil)
	assert.EqualError(t, err, `unknown update "clamp"`)

	_, err = r.Reducer("median")
	assert.EqualError(t, err, `unknown reducer "median"`)
}

func TestRegistry_DuplicateRegistration(t *testing.T) {
	r := Default()

	err := r.RegisterPolicy("constant", Constant)
	assert.EqualError(t, err, `policy "constant" already registered`)

	err = r.RegisterReducer("sum", nil)
	assert.Error(t, err)
}

func TestRegistry_CustomFunction(t *testing.T) {
	r := Default()
	require.NoError(t, r.RegisterUpdate("halve", func(variable string, _ Args) (ir.StateUpdate, error) {
		return ir.UpdateFunc(func(ctx ir.StepContext, _ ir.Signals) (string, ir.Value, error) {
			f, _ := ir.AsFloat(ctx.Prev.Get(variable))
			return variable, ir.Float(f / 2), nil
		}), nil
	}))

	u, err := r.Update("halve", "x", nil)
	require.NoError(t, err)

	name, v, err := u.Update(ir.StepContext{Prev: ir.MustState(ir.P("x", ir.Int(3)))}, nil)
	require.NoError(t, err)
	assert.Equal(t, "x", name)
	assert.Equal(t, ir.Float(1.5), v)
}

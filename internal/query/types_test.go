package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stepsim/internal/ir"
)

func rec(run, subset, timestep, substep int) ir.Record {
	return ir.Record{Run: run, Subset: subset, Timestep: timestep, Substep: substep}
}

func TestMatch(t *testing.T) {
	r := rec(2, 1, 5, 3)

	assert.True(t, Match(nil, r))
	assert.True(t, Match(Equals{Field: Run, Value: 2}, r))
	assert.False(t, Match(Equals{Field: Subset, Value: 0}, r))
	assert.True(t, Match(Between{Field: Timestep, Lo: 5, Hi: 5}, r))
	assert.False(t, Match(Between{Field: Substep, Lo: 0, Hi: 2}, r))
	assert.True(t, Match(And{}, r))
	assert.False(t, Match(And{Predicates: []Predicate{
		Equals{Field: Run, Value: 2},
		Equals{Field: Timestep, Value: 4},
	}}, r))
}

func TestFilterKeepsOrder(t *testing.T) {
	table := ir.Table{
		Variables: []string{"x"},
		Records: []ir.Record{
			rec(1, 0, 0, 0), rec(1, 0, 1, 1), rec(2, 0, 0, 0), rec(2, 0, 1, 1),
		},
	}

	got := Filter(table, Equals{Field: Timestep, Value: 1})
	assert.Equal(t, []string{"x"}, got.Variables)
	assert.Equal(t, []ir.Record{rec(1, 0, 1, 1), rec(2, 0, 1, 1)}, got.Records)
}

func TestAll(t *testing.T) {
	assert.Nil(t, All())
	assert.Nil(t, All(nil, nil))

	eq := Equals{Field: Run, Value: 1}
	assert.Equal(t, eq, All(nil, eq))
	assert.Equal(t, And{Predicates: []Predicate{eq, eq}}, All(eq, nil, eq))
}

func TestParseField(t *testing.T) {
	for _, f := range Fields {
		got, err := ParseField(string(f))
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}
	_, err := ParseField("supply")
	assert.EqualError(t, err, `unknown field "supply"`)
}

package query

import (
	"fmt"

	"github.com/roach88/stepsim/internal/ir"
)

// Field is a record tag column a predicate can address.
type Field string

const (
	Run      Field = ir.ColumnRun
	Subset   Field = ir.ColumnSubset
	Timestep Field = ir.ColumnTimestep
	Substep  Field = ir.ColumnSubstep
)

// Fields lists every addressable field in collation order.
var Fields = []Field{Subset, Run, Timestep, Substep}

// Valid reports whether f is a known tag column.
func (f Field) Valid() bool {
	switch f {
	case Run, Subset, Timestep, Substep:
		return true
	}
	return false
}

// ParseField converts a column name to a Field.
func ParseField(s string) (Field, error) {
	f := Field(s)
	if !f.Valid() {
		return "", fmt.Errorf("unknown field %q", s)
	}
	return f, nil
}

// of returns the value of f in r.
func (f Field) of(r ir.Record) int {
	switch f {
	case Run:
		return r.Run
	case Subset:
		return r.Subset
	case Timestep:
		return r.Timestep
	default:
		return r.Substep
	}
}

// Predicate is a filter over trajectory records.
//
// This is a sealed interface; the marker method keeps implementations in
// this package.
type Predicate interface {
	predicateNode()
}

// Equals matches records whose Field equals Value.
//
//	Equals{Field: Run, Value: 2}  →  run = ?
type Equals struct {
	Field Field
	Value int
}

func (Equals) predicateNode() {}

// Between matches records whose Field lies in [Lo, Hi], both inclusive.
//
//	Between{Field: Timestep, Lo: 1, Hi: 10}  →  timestep BETWEEN ? AND ?
type Between struct {
	Field Field
	Lo    int
	Hi    int
}

func (Between) predicateNode() {}

// And is a conjunction. An empty And matches every record.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// All returns the conjunction of ps, dropping nil entries.
// It returns nil when nothing is left, which matches every record.
func All(ps ...Predicate) Predicate {
	var kept []Predicate
	for _, p := range ps {
		if p != nil {
			kept = append(kept, p)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	default:
		return And{Predicates: kept}
	}
}

// Validate checks that every field is known and every range is ordered.
func Validate(p Predicate) error {
	switch pred := p.(type) {
	case nil:
		return nil
	case Equals:
		if !pred.Field.Valid() {
			return fmt.Errorf("unknown field %q", pred.Field)
		}
	case Between:
		if !pred.Field.Valid() {
			return fmt.Errorf("unknown field %q", pred.Field)
		}
		if pred.Lo > pred.Hi {
			return fmt.Errorf("%s: empty range [%d, %d]", pred.Field, pred.Lo, pred.Hi)
		}
	case And:
		for i, sub := range pred.Predicates {
			if err := Validate(sub); err != nil {
				return fmt.Errorf("and[%d]: %w", i, err)
			}
		}
	default:
		return fmt.Errorf("unsupported predicate type: %T", p)
	}
	return nil
}

// Match evaluates p against a record in memory. A nil predicate matches.
func Match(p Predicate, r ir.Record) bool {
	switch pred := p.(type) {
	case nil:
		return true
	case Equals:
		return pred.Field.of(r) == pred.Value
	case Between:
		v := pred.Field.of(r)
		return v >= pred.Lo && v <= pred.Hi
	case And:
		for _, sub := range pred.Predicates {
			if !Match(sub, r) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Filter returns the records of t matching p, in table order.
func Filter(t ir.Table, p Predicate) ir.Table {
	out := ir.Table{Variables: t.Variables}
	for _, r := range t.Records {
		if Match(p, r) {
			out.Records = append(out.Records, r)
		}
	}
	return out
}

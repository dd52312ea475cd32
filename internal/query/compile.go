package query

import (
	"fmt"
	"strings"
)

// OrderBy is the collation order of stored records.
const OrderBy = "subset ASC, run ASC, timestep ASC, substep ASC"

// Compile converts a predicate to a parameterised SQL boolean expression.
// A nil predicate compiles to "1 = 1".
func Compile(p Predicate) (string, []any, error) {
	if err := Validate(p); err != nil {
		return "", nil, err
	}
	return compile(p)
}

func compile(p Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case nil:
		return "1 = 1", nil, nil
	case Equals:
		return fmt.Sprintf("%s = ?", pred.Field), []any{int64(pred.Value)}, nil
	case Between:
		return fmt.Sprintf("%s BETWEEN ? AND ?", pred.Field), []any{int64(pred.Lo), int64(pred.Hi)}, nil
	case And:
		if len(pred.Predicates) == 0 {
			return "1 = 1", nil, nil
		}
		parts := make([]string, 0, len(pred.Predicates))
		var params []any
		for _, sub := range pred.Predicates {
			sql, subParams, err := compile(sub)
			if err != nil {
				return "", nil, err
			}
			if _, nested := sub.(And); nested {
				sql = "(" + sql + ")"
			}
			parts = append(parts, sql)
			params = append(params, subParams...)
		}
		return strings.Join(parts, " AND "), params, nil
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// SelectRecords builds the query that reads one execution's records
// matching p, in collation order. The execution id is the first parameter.
func SelectRecords(executionID string, p Predicate) (string, []any, error) {
	where, params, err := Compile(p)
	if err != nil {
		return "", nil, fmt.Errorf("compile filter: %w", err)
	}
	sql := "SELECT run, subset, timestep, substep, state FROM records" +
		" WHERE execution_id = ? AND " + where +
		" ORDER BY " + OrderBy
	return sql, append([]any{executionID}, params...), nil
}

package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/stepsim/internal/ir"
)

// toValue converts a concrete CUE value to an ir.Value.
//
// CUE ints become ir.Int and CUE floats ir.Float, so `1` and `1.0` keep
// their distinct types. Struct field order is not kept in ir.Object;
// callers that need order iterate the CUE struct directly.
func toValue(v cue.Value, field string) (ir.Value, error) {
	if err := v.Err(); err != nil {
		return nil, fromCUE(err)
	}
	if !v.IsConcrete() {
		return nil, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("value must be concrete, got %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}

	switch v.Kind() {
	case cue.NullKind:
		return ir.Null{}, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, fromCUE(err)
		}
		return ir.Bool(b), nil
	case cue.IntKind:
		i, err := v.Int64()
		if err != nil {
			return nil, fromCUE(err)
		}
		return ir.Int(i), nil
	case cue.FloatKind, cue.NumberKind:
		f, err := v.Float64()
		if err != nil {
			return nil, fromCUE(err)
		}
		return ir.Float(f), nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, fromCUE(err)
		}
		return ir.String(s), nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, fromCUE(err)
		}
		arr := ir.Array{}
		for i := 0; iter.Next(); i++ {
			elem, err := toValue(iter.Value(), fmt.Sprintf("%s[%d]", field, i))
			if err != nil {
				return nil, err
			}
			arr = append(arr, elem)
		}
		return arr, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, fromCUE(err)
		}
		obj := ir.Object{}
		for iter.Next() {
			label := iter.Label()
			elem, err := toValue(iter.Value(), field+"."+label)
			if err != nil {
				return nil, err
			}
			obj[label] = elem
		}
		return obj, nil
	default:
		return nil, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("unsupported value kind: %v", v.Kind()),
			Pos:     v.Pos(),
		}
	}
}

func toString(v cue.Value, field string) (string, error) {
	s, err := v.String()
	if err != nil {
		return "", &CompileError{Field: field, Message: "must be a string", Pos: v.Pos()}
	}
	return s, nil
}

func toInt(v cue.Value, field string) (int, error) {
	i, err := v.Int64()
	if err != nil {
		return 0, &CompileError{Field: field, Message: "must be an integer", Pos: v.Pos()}
	}
	return int(i), nil
}

package builtin

import (
	"fmt"

	"github.com/roach88/stepsim/internal/ir"
)

func (a Args) str(fn, key string, required bool) (string, error) {
	v, ok := a[key]
	if !ok {
		if required {
			return "", &ArgError{Function: fn, Arg: key, Message: "required"}
		}
		return "", nil
	}
	s, ok := v.(ir.String)
	if !ok {
		return "", &ArgError{Function: fn, Arg: key, Message: fmt.Sprintf("expected string, got %s", ir.TypeName(v))}
	}
	return string(s), nil
}

func (a Args) strList(fn, key string) ([]string, error) {
	v, ok := a[key]
	if !ok {
		return nil, nil
	}
	arr, ok := v.(ir.Array)
	if !ok {
		return nil, &ArgError{Function: fn, Arg: key, Message: fmt.Sprintf("expected list of strings, got %s", ir.TypeName(v))}
	}
	out := make([]string, len(arr))
	for i, elem := range arr {
		s, ok := elem.(ir.String)
		if !ok {
			return nil, &ArgError{Function: fn, Arg: key, Message: fmt.Sprintf("element %d: expected string, got %s", i, ir.TypeName(elem))}
		}
		out[i] = string(s)
	}
	return out, nil
}

func (a Args) strMap(fn, key string) (map[string]string, error) {
	v, ok := a[key]
	if !ok {
		return nil, nil
	}
	obj, ok := v.(ir.Object)
	if !ok {
		return nil, &ArgError{Function: fn, Arg: key, Message: fmt.Sprintf("expected struct of strings, got %s", ir.TypeName(v))}
	}
	out := make(map[string]string, len(obj))
	for k, elem := range obj {
		s, ok := elem.(ir.String)
		if !ok {
			return nil, &ArgError{Function: fn, Arg: key, Message: fmt.Sprintf("field %q: expected string, got %s", k, ir.TypeName(elem))}
		}
		out[k] = string(s)
	}
	return out, nil
}

// only rejects arguments outside allowed, so typos fail at load time.
func (a Args) only(fn string, allowed ...string) error {
	ok := make(map[string]bool, len(allowed))
	for _, k := range allowed {
		ok[k] = true
	}
	for _, k := range ir.Object(a).SortedKeys() {
		if !ok[k] {
			return &ArgError{Function: fn, Arg: k, Message: "unknown argument"}
		}
	}
	return nil
}

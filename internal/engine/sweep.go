package engine

import (
	"fmt"

	"github.com/roach88/stepsim/internal/ir"
)

// Expand turns a declared parameter set into concrete configurations.
//
// Sweepable parameters expand to the Cartesian product of their candidates,
// taken in byte order of parameter name with the first name varying slowest.
// Static parameters are copied into every configuration unchanged. With no
// sweepable parameter the result is exactly one configuration.
//
// A sweepable parameter with no candidates is a ConfigError.
func Expand(ps ir.ParamSet) ([]ir.Params, error) {
	static := make(map[string]ir.Value, len(ps))
	var axes []string
	for _, name := range ps.SortedNames() {
		p := ps[name]
		if !p.Sweepable {
			static[name] = p.Value
			continue
		}
		if len(p.Candidates) == 0 {
			return nil, &ConfigError{
				Code:     ErrCodeEmptySweep,
				Message:  fmt.Sprintf("sweepable parameter %q has no candidates", name),
				Variable: name,
			}
		}
		axes = append(axes, name)
	}

	total := 1
	for _, name := range axes {
		total *= len(ps[name].Candidates)
	}

	configs := make([]ir.Params, 0, total)
	idx := make([]int, len(axes))
	for range total {
		values := make(map[string]ir.Value, len(ps))
		for k, v := range static {
			values[k] = v
		}
		for i, name := range axes {
			values[name] = ps[name].Candidates[idx[i]]
		}
		configs = append(configs, ir.NewParams(values))

		// Odometer increment: the last axis varies fastest.
		for i := len(axes) - 1; i >= 0; i-- {
			idx[i]++
			if idx[i] < len(ps[axes[i]].Candidates) {
				break
			}
			idx[i] = 0
		}
	}
	return configs, nil
}

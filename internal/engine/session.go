package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/stepsim/internal/ir"
)

// SessionStatus is the outcome of one session.
type SessionStatus string

const (
	StatusSucceeded SessionStatus = "succeeded"
	StatusFailed    SessionStatus = "failed"
	StatusCanceled  SessionStatus = "canceled"
)

// SessionResult is the outcome of one (run, subset) session.
//
// History always starts with the initial snapshot (timestep 0, substep 0).
// A succeeded session has 1 + T×B snapshots; a failed session keeps every
// snapshot produced before the failing substep; a canceled session has none.
type SessionResult struct {
	Run     int
	Subset  int
	Params  ir.Params
	History []ir.Snapshot
	Status  SessionStatus
	Err     error
}

// historyView is a read-only, fixed-length view over a session history.
// Appends made after the view was taken are not visible through it, and
// snapshots are handed out as deep copies.
type historyView []ir.Snapshot

func (h historyView) Len() int             { return len(h) }
func (h historyView) At(i int) ir.Snapshot { return detach(h[i]) }
func (h historyView) Last() ir.Snapshot    { return detach(h[len(h)-1]) }

func detach(s ir.Snapshot) ir.Snapshot {
	s.State = s.State.DeepClone()
	return s
}

// session owns the mutable history of one (run, subset) pair.
// It is never shared between goroutines.
type session struct {
	run         int
	subset      int
	params      ir.Params
	blocks      []ir.Block
	aggregation map[string]ir.Reducer
	history     []ir.Snapshot
}

func newSession(m *ir.Model, params ir.Params, run, subset int) *session {
	s := &session{
		run:         run,
		subset:      subset,
		params:      params,
		blocks:      m.Blocks,
		aggregation: m.Aggregation,
		history:     make([]ir.Snapshot, 0, 1+m.Timesteps*len(m.Blocks)),
	}
	s.history = append(s.history, ir.Snapshot{State: m.Initial.DeepClone()})
	return s
}

// runTimesteps executes timesteps 1..T. On failure the history holds every snapshot
// produced before the failing substep.
func (s *session) runTimesteps(timesteps int) error {
	for t := 1; t <= timesteps; t++ {
		if err := s.runTimestep(t); err != nil {
			return err
		}
	}
	return nil
}

// runTimestep executes every block once, in declaration order, threading
// each block's snapshot into the next.
func (s *session) runTimestep(t int) error {
	for i, block := range s.blocks {
		prev := s.history[len(s.history)-1].State
		next, err := s.runSubstep(t, i+1, block, prev)
		if err != nil {
			return err
		}
		s.history = append(s.history, ir.Snapshot{Timestep: t, Substep: i + 1, State: next})
	}
	return nil
}

// runSubstep executes one block: policies, aggregation, then updates.
// The next snapshot is a copy of prev with every returned pair applied.
func (s *session) runSubstep(t, substep int, block ir.Block, prev ir.State) (ir.State, error) {
	ctx := ir.StepContext{
		Params:   s.params,
		Run:      s.run,
		Subset:   s.subset,
		Timestep: t,
		Substep:  substep,
		History:  historyView(s.history),
		Prev:     prev,
	}

	outputs := make([]NamedSignals, 0, len(block.Policies))
	for _, p := range block.Policies {
		signals, err := evaluate(p.Policy, withPrev(ctx, prev))
		if err != nil {
			return ir.State{}, s.fail(ctx, block.Name, p.Name, KindPolicy, err)
		}
		outputs = append(outputs, NamedSignals{Policy: p.Name, Signals: signals})
	}

	input, err := Aggregate(outputs, s.aggregation)
	if err != nil {
		var signal string
		var ae *AggregationError
		if errors.As(err, &ae) {
			signal = ae.Signal
		}
		return ir.State{}, s.fail(ctx, block.Name, signal, KindAggregation, err)
	}

	targets := make(map[string]string, len(block.Updates))
	pairs := make([]ir.Pair, 0, len(block.Updates))
	for _, u := range block.Updates {
		name, value, err := update(u.Update, withPrev(ctx, prev), cloneSignals(input))
		if err != nil {
			return ir.State{}, s.fail(ctx, block.Name, u.Name, KindUpdate, err)
		}
		if !prev.Has(name) {
			return ir.State{}, s.fail(ctx, block.Name, u.Name, KindUpdate, &ConfigError{
				Code:     ErrCodeUnknownVariable,
				Message:  fmt.Sprintf("state update returned unknown variable %q", name),
				Block:    block.Name,
				Function: u.Name,
				Variable: name,
			})
		}
		if owner, dup := targets[name]; dup {
			return ir.State{}, s.fail(ctx, block.Name, u.Name, KindUpdate, &ConfigError{
				Code:     ErrCodeDuplicateTarget,
				Message:  fmt.Sprintf("variable %q already updated by %q in this block", name, owner),
				Block:    block.Name,
				Function: u.Name,
				Variable: name,
			})
		}
		targets[name] = u.Name
		pairs = append(pairs, ir.P(name, ir.Clone(value)))
	}

	return prev.Apply(pairs...)
}

// withPrev gives one function call its own copy of the previous snapshot,
// so in-place changes never reach the history or sibling calls.
func withPrev(ctx ir.StepContext, prev ir.State) ir.StepContext {
	ctx.Prev = prev.DeepClone()
	return ctx
}

func cloneSignals(in ir.Signals) ir.Signals {
	out := make(ir.Signals, len(in))
	for k, v := range in {
		out[k] = ir.Clone(v)
	}
	return out
}

func (s *session) fail(ctx ir.StepContext, block, function string, kind ErrorKind, err error) error {
	return &ExecutionError{
		Run:      s.run,
		Subset:   s.subset,
		Timestep: ctx.Timestep,
		Substep:  ctx.Substep,
		Block:    block,
		Function: function,
		Kind:     kind,
		Err:      err,
	}
}

// result snapshots the session into a SessionResult.
func (s *session) result(err error) SessionResult {
	res := SessionResult{
		Run:     s.run,
		Subset:  s.subset,
		Params:  s.params,
		History: s.history,
		Status:  StatusSucceeded,
	}
	if err != nil {
		res.Status = StatusFailed
		res.Err = err
	}
	return res
}

// evaluate calls a policy, converting a panic into an error.
func evaluate(p ir.Policy, ctx ir.StepContext) (signals ir.Signals, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recovered(r)
		}
	}()
	return p.Evaluate(ctx)
}

// update calls a state update, converting a panic into an error.
func update(u ir.StateUpdate, ctx ir.StepContext, input ir.Signals) (name string, v ir.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recovered(r)
		}
	}()
	return u.Update(ctx, input)
}

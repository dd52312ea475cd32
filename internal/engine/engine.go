package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/stepsim/internal/ir"
)

// Engine executes simulation models.
//
// An Engine holds only configuration; it is safe to call Execute
// concurrently from several goroutines.
//
// Thread-safety model:
//   - sessions run in parallel on a pool of at most Workers goroutines
//   - each session is sequential and owns its history
//   - Params are shared read-only between sessions
type Engine struct {
	workers   int
	logger    *slog.Logger
	preflight bool
	ids       IDGenerator
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithWorkers sets the maximum number of sessions running at once.
//
// Default: runtime.GOMAXPROCS(0). Values below 1 keep the default.
// Use WithWorkers(1) to run sessions one after another.
func WithWorkers(n int) EngineOption {
	return func(e *Engine) {
		if n >= 1 {
			e.workers = n
		}
	}
}

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithPreflight enables or disables the preflight timestep.
//
// Default: enabled. Preflight runs timestep 1 of the first configuration
// (run 1) on a scratch session before any real session starts. A state
// update that returns an unknown variable, or two updates of one block
// targeting the same variable, on that path is reported as a ConfigError
// and nothing executes. The same mistake reached only at a later timestep
// or under another configuration is reported as failed sessions.
func WithPreflight(enabled bool) EngineOption {
	return func(e *Engine) {
		e.preflight = enabled
	}
}

// WithIDGenerator sets the execution ID generator. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) EngineOption {
	return func(e *Engine) {
		if g != nil {
			e.ids = g
		}
	}
}

// New creates an Engine.
func New(opts ...EngineOption) *Engine {
	e := &Engine{
		workers:   runtime.GOMAXPROCS(0),
		logger:    slog.Default(),
		preflight: true,
		ids:       UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result is the outcome of one execution.
type Result struct {
	// ExecutionID identifies this execution in logs and in the store.
	ExecutionID string

	// Configurations are the expanded sweep configurations; index = subset.
	Configurations []ir.Params

	// Sessions are ordered by (subset, run).
	Sessions []SessionResult

	// Table is the collated trajectory of every session.
	Table ir.Table
}

// Failed returns the sessions that did not succeed.
func (r *Result) Failed() []SessionResult {
	var out []SessionResult
	for _, s := range r.Sessions {
		if s.Status != StatusSucceeded {
			out = append(out, s)
		}
	}
	return out
}

func (r *Result) canceled() int {
	n := 0
	for _, s := range r.Sessions {
		if s.Status == StatusCanceled {
			n++
		}
	}
	return n
}

// Err reports every failed session, joined with errors.Join.
// Returns nil when all sessions succeeded.
func (r *Result) Err() error {
	var errs []error
	for _, s := range r.Sessions {
		switch s.Status {
		case StatusFailed:
			errs = append(errs, s.Err)
		case StatusCanceled:
			errs = append(errs, fmt.Errorf("run %d subset %d: %w", s.Run, s.Subset, ErrCanceled))
		}
	}
	return errors.Join(errs...)
}

// Execute runs every (run, subset) session of the model and collates the
// trajectories.
//
// Configuration errors are returned before any session runs, with a nil
// Result. Execution errors never make Execute fail: they mark their session
// failed and are reported by Result.Err.
//
// The context is checked at session boundaries. If it is canceled, sessions
// not yet started are marked StatusCanceled and Execute returns the partial
// Result together with an error wrapping ErrCanceled. A cancellation that
// arrives after every session has finished is not an error.
func (e *Engine) Execute(ctx context.Context, m *ir.Model) (*Result, error) {
	if err := Validate(m); err != nil {
		return nil, err
	}

	configs, err := Expand(m.Params)
	if err != nil {
		return nil, err
	}

	if e.preflight {
		if err := preflight(m, configs[0]); err != nil {
			return nil, err
		}
	}

	id := e.ids.Generate()
	log := e.logger.With("execution", id)
	log.Info("execution starting",
		"runs", m.Runs,
		"configurations", len(configs),
		"timesteps", m.Timesteps,
		"blocks", len(m.Blocks),
		"workers", e.workers,
	)

	sessions := e.runSessions(ctx, log, m, configs)

	res := &Result{
		ExecutionID:    id,
		Configurations: configs,
		Sessions:       sessions,
		Table:          Collate(m.Initial.Keys(), sessions),
	}

	failed := len(res.Failed())
	log.Info("execution finished",
		"sessions", len(sessions),
		"failed", failed,
		"rows", res.Table.Len(),
	)

	if err := ctx.Err(); err != nil && res.canceled() > 0 {
		return res, fmt.Errorf("%w: %w", ErrCanceled, err)
	}
	return res, nil
}

// runSessions fans sessions out over a bounded worker pool.
//
// Results are written by index, so the returned slice is in (subset, run)
// order regardless of scheduling. The pool is the only synchronization
// point; sessions share nothing mutable.
func (e *Engine) runSessions(ctx context.Context, log *slog.Logger, m *ir.Model, configs []ir.Params) []SessionResult {
	results := make([]SessionResult, 0, len(configs)*m.Runs)
	for subset, params := range configs {
		for run := 1; run <= m.Runs; run++ {
			results = append(results, SessionResult{
				Run:    run,
				Subset: subset,
				Params: params,
				Status: StatusCanceled,
			})
		}
	}

	var g errgroup.Group
	g.SetLimit(e.workers)

	for i := range results {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			slot := &results[i]
			s := newSession(m, slot.Params, slot.Run, slot.Subset)
			err := s.runTimesteps(m.Timesteps)
			*slot = s.result(err)

			if err != nil {
				log.Warn("session failed",
					"run", slot.Run,
					"subset", slot.Subset,
					"snapshots", len(slot.History),
					"error", err,
				)
			} else {
				log.Debug("session finished",
					"run", slot.Run,
					"subset", slot.Subset,
					"snapshots", len(slot.History),
				)
			}
			return nil
		})
	}

	// Session goroutines never return an error; failures live in results.
	_ = g.Wait()
	return results
}

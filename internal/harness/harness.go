package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/stepsim/internal/builtin"
	"github.com/roach88/stepsim/internal/compiler"
	"github.com/roach88/stepsim/internal/engine"
	"github.com/roach88/stepsim/internal/ir"
	"github.com/roach88/stepsim/internal/store"
	"github.com/roach88/stepsim/internal/testutil"
)

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	Pass bool `json:"pass"`

	// Errors contains failed expectation messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Execution is the stored summary, including the trajectory digest.
	Execution store.Execution `json:"execution"`

	// Table is the collated trajectory.
	Table ir.Table `json:"-"`

	// Canonical is the canonical JSON of Table, as compared by golden files.
	Canonical []byte `json:"-"`
}

// AddError adds a failed expectation and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Harness is the scenario execution engine.
type Harness struct {
	registry *builtin.Registry
	logger   *slog.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithRegistry sets the function registry models are resolved against.
// Default: builtin.Default().
func WithRegistry(reg *builtin.Registry) Option {
	return func(h *Harness) {
		if reg != nil {
			h.registry = reg
		}
	}
}

// WithLogger sets the engine logger. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		if l != nil {
			h.logger = l
		}
	}
}

// New creates a Harness.
func New(opts ...Option) *Harness {
	h := &Harness{
		registry: builtin.Default(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes a test scenario with the default harness.
func Run(scenario *Scenario) (*Result, error) {
	return New().Run(context.Background(), scenario)
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation, and the
// execution ID is fixed so stored output is reproducible.
//
// Execution flow:
//  1. Load and validate the model, apply overrides
//  2. Execute it
//  3. Write the result to the in-memory store
//  4. Evaluate expectations against the store
//
// An error is returned only when the scenario could not be executed at all
// (model errors, configuration errors, store failures). Unmet expectations
// are reported in Result.Errors.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	m, err := compiler.LoadModel(scenario.Model, h.registry)
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}
	if scenario.Runs != nil {
		m.Runs = *scenario.Runs
	}
	if scenario.Timesteps != nil {
		m.Timesteps = *scenario.Timesteps
	}

	opts := []engine.EngineOption{
		engine.WithLogger(h.logger),
		engine.WithIDGenerator(testutil.NewConstantIDGenerator(executionID(scenario))),
	}
	if scenario.Workers > 0 {
		opts = append(opts, engine.WithWorkers(scenario.Workers))
	}

	res, err := engine.New(opts...).Execute(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("failed to execute model: %w", err)
	}

	st, err := store.Open(":memory:", store.WithLogger(h.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	exec, err := st.WriteExecution(ctx, store.Execution{
		Model:     scenario.Model,
		Runs:      m.Runs,
		Timesteps: m.Timesteps,
	}, res)
	if err != nil {
		return nil, fmt.Errorf("failed to store execution: %w", err)
	}

	canonical, err := ir.CanonicalTable(res.Table)
	if err != nil {
		return nil, fmt.Errorf("failed to encode trajectory: %w", err)
	}

	result := &Result{
		Pass:      true,
		Errors:    []string{},
		Execution: exec,
		Table:     res.Table,
		Canonical: canonical,
	}

	actx := &AssertionContext{Store: st, Ctx: ctx, ExecutionID: exec.ID}
	for _, msg := range EvaluateExpectations(result, scenario.Expect, actx) {
		result.AddError(msg)
	}

	return result, nil
}

func executionID(s *Scenario) string {
	return "scenario-" + s.Name
}

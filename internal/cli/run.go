package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/stepsim/internal/builtin"
	"github.com/roach88/stepsim/internal/compiler"
	"github.com/roach88/stepsim/internal/engine"
	"github.com/roach88/stepsim/internal/ir"
	"github.com/roach88/stepsim/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database  string
	Workers   int
	Out       string
	Runs      int
	Timesteps int

	// Registry resolves function references. Nil means builtin.Default().
	Registry *builtin.Registry

	// IDGenerator allows overriding the execution ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDGenerator engine.IDGenerator
}

// RunSummary is the outcome of the run command.
type RunSummary struct {
	ExecutionID    string           `json:"execution_id"`
	Model          string           `json:"model"`
	Configurations int              `json:"configurations"`
	Sessions       int              `json:"sessions"`
	FailedSessions int              `json:"failed_sessions"`
	Records        int              `json:"records"`
	Digest         string           `json:"digest"`
	Database       string           `json:"database,omitempty"`
	Output         string           `json:"output,omitempty"`
	Failures       []SessionFailure `json:"failures,omitempty"`
}

// SessionFailure reports one session that did not succeed.
type SessionFailure struct {
	Run    int    `json:"run"`
	Subset int    `json:"subset"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <model-dir>",
		Short: "Execute a model",
		Long: `Execute every (run, configuration) session of a CUE model.

The trajectory can be stored in a SQLite database (--db, or db in the config
file) for later show and replay, and exported to CSV or canonical JSON
(--out, chosen by extension).

Exit codes:
  0 - Every session succeeded
  1 - One or more sessions failed, or the model is invalid
  2 - Command error (model directory not found, database error, etc.)

Examples:
  stepsim run ./models/supply
  stepsim run ./models/supply --db ./runs.db --workers 4
  stepsim run ./models/supply --out trajectory.csv
  stepsim run ./models/supply --runs 10 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModel(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config; empty disables storing)")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "maximum concurrent sessions (default from config, then one per CPU)")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "export the trajectory to a .csv or .json file")
	cmd.Flags().IntVar(&opts.Runs, "runs", 0, "override the model's run count")
	cmd.Flags().IntVar(&opts.Timesteps, "timesteps", 0, "override the model's timestep count")

	return cmd
}

func runModel(opts *RunOptions, modelDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	cfg := opts.settings()
	log := opts.logger()

	database := opts.Database
	if !cmd.Flags().Changed("db") {
		database = cfg.DB
	}
	workers := opts.Workers
	if !cmd.Flags().Changed("workers") {
		workers = cfg.Workers
	}
	reg := opts.Registry
	if reg == nil {
		reg = builtin.Default()
	}

	log.Info("loading model", "dir", modelDir)
	m, err := compiler.LoadModel(modelDir, reg)
	if err != nil {
		return reportModelError(formatter, err)
	}
	if cmd.Flags().Changed("runs") {
		m.Runs = opts.Runs
	}
	if cmd.Flags().Changed("timesteps") {
		m.Timesteps = opts.Timesteps
	}

	// Open the database before executing so a bad path fails fast.
	var st *store.Store
	if database != "" {
		log.Info("opening database", "path", database)
		st, err = store.Open(database, store.WithLogger(log))
		if err != nil {
			_ = formatter.Error(ErrCodeCommand, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
	}

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	engineOpts := []engine.EngineOption{
		engine.WithWorkers(workers),
		engine.WithLogger(log),
	}
	if opts.IDGenerator != nil {
		engineOpts = append(engineOpts, engine.WithIDGenerator(opts.IDGenerator))
	}
	eng := engine.New(engineOpts...)

	res, err := eng.Execute(ctx, m)
	if err != nil && res == nil {
		return reportModelError(formatter, err)
	}
	canceled := errors.Is(err, engine.ErrCanceled)
	if canceled {
		log.Warn("execution canceled", "execution", res.ExecutionID)
	}

	digest, err := ir.TableDigest(res.Table)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to digest trajectory", err)
	}

	summary := RunSummary{
		ExecutionID:    res.ExecutionID,
		Model:          modelDir,
		Configurations: len(res.Configurations),
		Sessions:       len(res.Sessions),
		Records:        res.Table.Len(),
		Digest:         digest,
	}
	for _, s := range res.Failed() {
		status := SessionFailure{Run: s.Run, Subset: s.Subset, Status: string(s.Status)}
		if s.Err != nil {
			status.Error = s.Err.Error()
		}
		summary.Failures = append(summary.Failures, status)
	}
	summary.FailedSessions = len(summary.Failures)

	if st != nil {
		// The write must land even when the run was interrupted.
		writeCtx := context.WithoutCancel(ctx)
		if _, err := st.WriteExecution(writeCtx, store.Execution{
			Model:     modelDir,
			Runs:      m.Runs,
			Timesteps: m.Timesteps,
		}, res); err != nil {
			_ = formatter.Error(ErrCodeCommand, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to store execution", err)
		}
		summary.Database = database
		log.Info("execution stored", "execution", res.ExecutionID, "path", database)
	}

	if opts.Out != "" {
		if err := exportTable(opts.Out, res); err != nil {
			_ = formatter.Error(ErrCodeCommand, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to export trajectory", err)
		}
		summary.Output = opts.Out
	}

	if err := outputRunSummary(formatter, summary); err != nil {
		return err
	}

	switch {
	case canceled:
		return NewExitError(ExitFailure, "execution canceled")
	case summary.FailedSessions > 0:
		return NewExitError(ExitFailure, fmt.Sprintf("%d session(s) failed", summary.FailedSessions))
	}
	return nil
}

func outputRunSummary(formatter *OutputFormatter, summary RunSummary) error {
	if formatter.isJSON() {
		resp := CLIResponse{
			Status:      "ok",
			Data:        summary,
			ExecutionID: summary.ExecutionID,
		}
		if summary.FailedSessions > 0 {
			resp.Status = "error"
			resp.Error = &CLIError{
				Code:    ErrCodeSessionsFailed,
				Message: fmt.Sprintf("%d session(s) failed", summary.FailedSessions),
			}
		}
		return formatter.Response(resp)
	}

	w := formatter.Writer
	mark := "✓"
	if summary.FailedSessions > 0 {
		mark = "✗"
	}
	fmt.Fprintf(w, "%s Execution %s\n", mark, summary.ExecutionID)
	fmt.Fprintf(w, "  configurations: %d\n", summary.Configurations)
	fmt.Fprintf(w, "  sessions:       %d (%d failed)\n", summary.Sessions, summary.FailedSessions)
	fmt.Fprintf(w, "  records:        %d\n", summary.Records)
	fmt.Fprintf(w, "  digest:         %s\n", summary.Digest)
	if summary.Database != "" {
		fmt.Fprintf(w, "  stored in:      %s\n", summary.Database)
	}
	if summary.Output != "" {
		fmt.Fprintf(w, "  exported to:    %s\n", summary.Output)
	}
	for _, f := range summary.Failures {
		fmt.Fprintf(w, "  run %d subset %d %s", f.Run, f.Subset, f.Status)
		if f.Error != "" {
			fmt.Fprintf(w, ": %s", f.Error)
		}
		fmt.Fprintln(w)
	}
	return nil
}

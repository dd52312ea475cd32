package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/stepsim/internal/builtin"
	"github.com/roach88/stepsim/internal/compiler"
	"github.com/roach88/stepsim/internal/engine"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database  string
	Execution string
	Workers   int

	// Registry resolves function references. Nil means builtin.Default().
	Registry *builtin.Registry
}

// ReplayResult holds the replay verdict.
type ReplayResult struct {
	ExecutionID    string `json:"execution_id"`
	Model          string `json:"model"`
	StoredDigest   string `json:"stored_digest"`
	ReplayedDigest string `json:"replayed_digest"`
	Deterministic  bool   `json:"deterministic"`
	Divergence     string `json:"divergence,omitempty"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay --execution <id> [model-dir]",
		Short: "Re-execute a stored execution and verify determinism",
		Long: `Re-execute a stored execution and compare trajectory digests.

The model is loaded from model-dir (default: the directory recorded when the
execution was stored) with the stored run and timestep counts. The replayed
trajectory digest must equal the stored digest; on mismatch the first
diverging record is reported.

Exit codes:
  0 - Replayed trajectory is identical
  1 - Digest mismatch, or the model is now invalid
  2 - Command error (database not found, unknown execution, etc.)

Examples:
  stepsim replay --db ./runs.db --execution 0190...
  stepsim replay --db ./runs.db --execution 0190... ./models/supply
  stepsim replay --db ./runs.db --execution 0190... --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			modelDir := ""
			if len(args) == 1 {
				modelDir = args[0]
			}
			return runReplay(opts, modelDir, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().StringVar(&opts.Execution, "execution", "", "execution ID to replay (required)")
	_ = cmd.MarkFlagRequired("execution")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "maximum concurrent sessions (default from config, then one per CPU)")

	return cmd
}

func runReplay(opts *ReplayOptions, modelDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	cfg := opts.settings()
	log := opts.logger()

	st, err := openExistingStore(formatter, opts.Database, cmd, cfg.DB)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	exec, err := st.ReadExecution(ctx, opts.Execution)
	if err != nil {
		return storeReadError(formatter, err)
	}
	expected, err := st.ReadTrajectory(ctx, opts.Execution, nil)
	if err != nil {
		return storeReadError(formatter, err)
	}

	if modelDir == "" {
		modelDir = exec.Model
	}
	reg := opts.Registry
	if reg == nil {
		reg = builtin.Default()
	}
	m, err := compiler.LoadModel(modelDir, reg)
	if err != nil {
		return reportModelError(formatter, err)
	}
	m.Runs = exec.Runs
	m.Timesteps = exec.Timesteps

	workers := opts.Workers
	if !cmd.Flags().Changed("workers") {
		workers = cfg.Workers
	}
	eng := engine.New(engine.WithWorkers(workers), engine.WithLogger(log))

	formatter.VerboseLog("Replaying %s from %s (%d records stored)", exec.ID, modelDir, expected.Len())
	report, err := eng.Replay(ctx, m, expected)
	if err != nil {
		if engine.IsConfigError(err) {
			return reportModelError(formatter, err)
		}
		_ = formatter.Error(ErrCodeCommand, err.Error(), nil)
		return WrapExitError(ExitCommandError, "replay failed", err)
	}

	// The digest recorded at write time is authoritative: the records read
	// back are only used to locate a divergence.
	result := ReplayResult{
		ExecutionID:    exec.ID,
		Model:          modelDir,
		StoredDigest:   exec.Digest,
		ReplayedDigest: report.ActualDigest,
		Deterministic:  report.ActualDigest == exec.Digest,
	}
	if !result.Deterministic {
		if div := engine.Diff(expected, report.Result.Table); div != nil {
			result.Divergence = div.String()
		}
	}
	log.Info("replay finished", "execution", exec.ID, "deterministic", result.Deterministic)

	return outputReplay(formatter, result)
}

func outputReplay(formatter *OutputFormatter, result ReplayResult) error {
	if formatter.isJSON() {
		resp := CLIResponse{
			Status:      "ok",
			Data:        result,
			ExecutionID: result.ExecutionID,
		}
		if !result.Deterministic {
			resp.Status = "error"
			resp.Error = &CLIError{
				Code:    ErrCodeDigestMismatch,
				Message: "replayed trajectory differs from stored trajectory",
			}
		}
		if err := formatter.Response(resp); err != nil {
			return err
		}
	} else {
		w := formatter.Writer
		if result.Deterministic {
			fmt.Fprintf(w, "✓ Execution %s replayed deterministically\n", result.ExecutionID)
			fmt.Fprintf(w, "  digest: %s\n", result.StoredDigest)
		} else {
			fmt.Fprintf(w, "✗ Execution %s diverged on replay\n", result.ExecutionID)
			fmt.Fprintf(w, "  stored:   %s\n", result.StoredDigest)
			fmt.Fprintf(w, "  replayed: %s\n", result.ReplayedDigest)
			if result.Divergence != "" {
				fmt.Fprintf(w, "  first difference: %s\n", result.Divergence)
			}
		}
	}

	if !result.Deterministic {
		return NewExitError(ExitFailure, "replayed trajectory differs from stored trajectory")
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

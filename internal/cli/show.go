package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/stepsim/internal/ir"
	"github.com/roach88/stepsim/internal/query"
	"github.com/roach88/stepsim/internal/store"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Database  string
	Execution string
	Run       int
	Subset    int
	From      int
	To        int
	Sessions  bool
}

// ShowResult is the JSON payload of show for one execution.
type ShowResult struct {
	Execution store.Execution `json:"execution"`
	Sessions  []store.Session `json:"sessions,omitempty"`
	Columns   []string        `json:"columns,omitempty"`
	Records   []ir.Record     `json:"records,omitempty"`
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show stored executions and trajectories",
		Long: `Show executions stored by run --db.

Without --execution, lists every stored execution. With --execution, prints
the stored trajectory, optionally filtered by run, subset and a timestep
range. --sessions prints per-session status instead of records.

Exit codes:
  0 - Success
  2 - Command error (database not found, unknown execution, bad filter)

Examples:
  stepsim show --db ./runs.db
  stepsim show --db ./runs.db --execution 0190... --run 1 --subset 0
  stepsim show --db ./runs.db --execution 0190... --from 10 --to 20
  stepsim show --db ./runs.db --execution 0190... --sessions`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().StringVar(&opts.Execution, "execution", "", "execution ID to show")
	cmd.Flags().IntVar(&opts.Run, "run", 0, "only records of this run")
	cmd.Flags().IntVar(&opts.Subset, "subset", 0, "only records of this subset (configuration index)")
	cmd.Flags().IntVar(&opts.From, "from", 0, "first timestep (inclusive)")
	cmd.Flags().IntVar(&opts.To, "to", 0, "last timestep (inclusive)")
	cmd.Flags().BoolVar(&opts.Sessions, "sessions", false, "show session status instead of records")

	return cmd
}

func runShow(opts *ShowOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := openExistingStore(formatter, opts.Database, cmd, opts.settings().DB)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.Execution == "" {
		execs, err := st.ListExecutions(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list executions", err)
		}
		return outputExecutionList(formatter, execs)
	}

	exec, err := st.ReadExecution(ctx, opts.Execution)
	if err != nil {
		return storeReadError(formatter, err)
	}
	result := ShowResult{Execution: exec}

	if opts.Sessions {
		result.Sessions, err = st.ReadSessions(ctx, opts.Execution)
		if err != nil {
			return storeReadError(formatter, err)
		}
		return outputShow(formatter, result)
	}

	pred := showFilter(opts, cmd)
	if err := query.Validate(pred); err != nil {
		_ = formatter.Error(ErrCodeCommand, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid filter", err)
	}
	table, err := st.ReadTrajectory(ctx, opts.Execution, pred)
	if err != nil {
		return storeReadError(formatter, err)
	}
	result.Columns = table.Columns()
	result.Records = table.Records
	return outputShow(formatter, result)
}

// showFilter builds the record predicate from the flags that were set.
func showFilter(opts *ShowOptions, cmd *cobra.Command) query.Predicate {
	var preds []query.Predicate
	if cmd.Flags().Changed("run") {
		preds = append(preds, query.Equals{Field: query.Run, Value: opts.Run})
	}
	if cmd.Flags().Changed("subset") {
		preds = append(preds, query.Equals{Field: query.Subset, Value: opts.Subset})
	}
	from, to := cmd.Flags().Changed("from"), cmd.Flags().Changed("to")
	if from || to {
		hi := math.MaxInt32
		if to {
			hi = opts.To
		}
		preds = append(preds, query.Between{Field: query.Timestep, Lo: opts.From, Hi: hi})
	}
	return query.All(preds...)
}

// openExistingStore opens the database named by flag or, when the flag is
// unset, by config. Missing databases are a command error, never created.
func openExistingStore(formatter *OutputFormatter, flagValue string, cmd *cobra.Command, configValue string) (*store.Store, error) {
	path := flagValue
	if !cmd.Flags().Changed("db") {
		path = configValue
	}
	if path == "" {
		_ = formatter.Error(ErrCodeCommand, "no database: pass --db or set db in the config", nil)
		return nil, NewExitError(ExitCommandError, "no database configured")
	}
	if !fileExists(path) {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("database not found: %s", path), nil)
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", path))
	}
	st, err := store.Open(path)
	if err != nil {
		_ = formatter.Error(ErrCodeCommand, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

func storeReadError(formatter *OutputFormatter, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitCommandError, "unknown execution", err)
	}
	_ = formatter.Error(ErrCodeCommand, err.Error(), nil)
	return WrapExitError(ExitCommandError, "failed to read execution", err)
}

func outputExecutionList(formatter *OutputFormatter, execs []store.Execution) error {
	if formatter.isJSON() {
		return formatter.Success(execs)
	}
	if len(execs) == 0 {
		fmt.Fprintln(formatter.Writer, "No executions found in database.")
		return nil
	}

	tw := tabwriter.NewWriter(formatter.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tMODEL\tRUNS\tTIMESTEPS\tCONFIGS\tFAILED\tDIGEST")
	for _, e := range execs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			e.ID, e.Model, e.Runs, e.Timesteps, e.Configurations, e.FailedSessions, shortDigest(e.Digest))
	}
	return tw.Flush()
}

func outputShow(formatter *OutputFormatter, result ShowResult) error {
	if formatter.isJSON() {
		return formatter.Response(CLIResponse{
			Status:      "ok",
			Data:        result,
			ExecutionID: result.Execution.ID,
		})
	}

	w := formatter.Writer
	e := result.Execution
	fmt.Fprintf(w, "Execution %s\n", e.ID)
	fmt.Fprintf(w, "  model: %s  runs: %d  timesteps: %d  configurations: %d  failed sessions: %d\n",
		e.Model, e.Runs, e.Timesteps, e.Configurations, e.FailedSessions)
	fmt.Fprintf(w, "  digest: %s\n\n", e.Digest)

	if result.Sessions != nil {
		return writeSessions(w, result.Sessions)
	}
	return writeRecords(w, e.Variables, result.Records)
}

func writeSessions(w io.Writer, sessions []store.Session) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SUBSET\tRUN\tSTATUS\tPARAMS\tERROR")
	for _, s := range sessions {
		params, err := ir.MarshalCanonical(s.Params)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\n", s.Subset, s.Run, s.Status, params, s.Error)
	}
	return tw.Flush()
}

func writeRecords(w io.Writer, variables []string, records []ir.Record) error {
	if len(records) == 0 {
		fmt.Fprintln(w, "No records match.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprint(tw, "SUBSET\tRUN\tTIMESTEP\tSUBSTEP")
	for _, v := range variables {
		fmt.Fprintf(tw, "\t%s", v)
	}
	fmt.Fprintln(tw)

	for _, r := range records {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d", r.Subset, r.Run, r.Timestep, r.Substep)
		for _, v := range variables {
			cell, err := formatCell(r.State.Get(v))
			if err != nil {
				return err
			}
			fmt.Fprintf(tw, "\t%s", cell)
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}

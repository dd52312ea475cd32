package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/stepsim/internal/builtin"
	"github.com/roach88/stepsim/internal/compiler"
	"github.com/roach88/stepsim/internal/engine"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                       `json:"valid"`
	Model  *ModelSummary              `json:"model,omitempty"`
	Errors []compiler.ValidationError `json:"errors,omitempty"`
}

// ModelSummary describes a valid model.
type ModelSummary struct {
	Runs           int      `json:"runs"`
	Timesteps      int      `json:"timesteps"`
	Configurations int      `json:"configurations"`
	Variables      []string `json:"variables"`
	Blocks         []string `json:"blocks"`
	Params         []string `json:"params"`
}

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions

	// Registry resolves function references. Nil means builtin.Default().
	Registry *builtin.Registry
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <model-dir>",
		Short: "Validate a model without running it",
		Long: `Validate a CUE model without running any session.

Loads the model package and its tables, resolves every function reference,
expands the parameter sweep and checks the model's static structure.

Exit codes:
  0 - Model is valid
  1 - Model is invalid
  2 - Command error (model directory not found, no CUE files, etc.)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *ValidateOptions, modelDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	reg := opts.Registry
	if reg == nil {
		reg = builtin.Default()
	}

	spec, err := compiler.LoadSpec(modelDir)
	if err != nil {
		return reportModelError(formatter, err)
	}
	formatter.VerboseLog("Parsed model: %d block(s), %d param(s)", len(spec.Blocks), len(spec.Params))

	if errs := compiler.Validate(spec, reg); len(errs) > 0 {
		return outputValidationErrors(formatter, errs)
	}

	m, err := compiler.Build(spec, modelDir, reg)
	if err != nil {
		return reportModelError(formatter, err)
	}
	if err := engine.Validate(m); err != nil {
		return reportModelError(formatter, err)
	}
	configs, err := engine.Expand(m.Params)
	if err != nil {
		return reportModelError(formatter, err)
	}

	summary := &ModelSummary{
		Runs:           m.Runs,
		Timesteps:      m.Timesteps,
		Configurations: len(configs),
		Variables:      m.Initial.Keys(),
		Blocks:         make([]string, len(m.Blocks)),
		Params:         m.Params.SortedNames(),
	}
	for i, b := range m.Blocks {
		summary.Blocks[i] = b.Name
	}

	return outputValidateSuccess(formatter, summary)
}

// reportModelError prints a model loading failure and maps it to an exit
// code: problems with the model itself exit 1, problems reaching it exit 2.
func reportModelError(formatter *OutputFormatter, err error) error {
	var validationErrs compiler.ValidationErrors
	if errors.As(err, &validationErrs) {
		return outputValidationErrors(formatter, validationErrs)
	}

	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return outputValidationErrors(formatter, []compiler.ValidationError{{
			Field:   compileErr.Field,
			Message: compileErr.Message,
			Code:    compiler.ErrCodeGeneric,
			Line:    lineOf(compileErr),
		}})
	}

	var configErr *engine.ConfigError
	if errors.As(err, &configErr) {
		_ = formatter.Error(string(configErr.Code), err.Error(), nil)
		return WrapExitError(ExitFailure, "invalid model configuration", err)
	}

	code := compiler.ErrCodeGeneric
	var loadErr *compiler.LoadError
	if errors.As(err, &loadErr) {
		code = loadErr.Code
	}
	_ = formatter.Error(code, err.Error(), nil)
	return WrapExitError(ExitCommandError, "failed to load model", err)
}

func lineOf(err *compiler.CompileError) int {
	if err.Pos.IsValid() {
		return err.Pos.Line()
	}
	return 0
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, summary *ModelSummary) error {
	if formatter.isJSON() {
		return formatter.Success(ValidationResult{Valid: true, Model: summary})
	}

	w := formatter.Writer
	fmt.Fprintln(w, "✓ Model valid")
	fmt.Fprintf(w, "  runs:           %d\n", summary.Runs)
	fmt.Fprintf(w, "  timesteps:      %d\n", summary.Timesteps)
	fmt.Fprintf(w, "  configurations: %d\n", summary.Configurations)
	fmt.Fprintf(w, "  variables:      %v\n", summary.Variables)
	fmt.Fprintf(w, "  blocks:         %v\n", summary.Blocks)
	return nil
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	if formatter.isJSON() {
		err := formatter.Response(CLIResponse{
			Status: "error",
			Data: ValidationResult{
				Valid:  false,
				Errors: errs,
			},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		})
		if err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}

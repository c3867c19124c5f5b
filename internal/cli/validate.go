package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/tessera/internal/compiler"
)

// ValidationError is one problem found by validate.
type ValidationError struct {
	Document string `json:"document"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	File     string `json:"file,omitempty"`
	Line     int    `json:"line,omitempty"`
	Column   int    `json:"column,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool              `json:"valid"`
	Documents int               `json:"documents"`
	Errors    []ValidationError `json:"errors,omitempty"`
	Warnings  []DiagnosticJSON  `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LowerOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <ast.yaml>...",
		Short: "Check AST documents without writing IR",
		Long: `Lower AST documents and report every failure without writing IR.

Unlike lower, a failing document does not stop the run: each remaining
document is still checked, and only documents that lowered cleanly are
visible to the ones after them. --db is read but never written.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.Context(), opts, args, cmd)
		},
	}

	addLowerFlags(cmd, opts)

	return cmd
}

func runValidate(ctx context.Context, opts *LowerOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	s, st, err := newSession(opts, formatter, false)
	if err != nil {
		code, msg := parseError(err)
		return formatter.fail(ExitCommandError, code, msg, nil)
	}
	if st != nil {
		defer st.Close()
	}

	result := ValidationResult{Documents: len(paths)}
	for _, path := range paths {
		formatter.VerboseLog("Validating %s", path)
		if _, err := s.lower(ctx, path); err != nil {
			result.Errors = append(result.Errors, validationError(s, path, err))
		}
	}
	for _, d := range diagnosticsJSON(s.collector.Diagnostics(), s.sources) {
		if d.Level == "warning" {
			result.Warnings = append(result.Warnings, d)
		}
	}

	if len(result.Errors) > 0 {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

// validationError converts a lowering failure, resolving the diagnostic's
// position when there is one.
func validationError(s *session, path string, err error) ValidationError {
	code, msg := parseError(err)
	verr := ValidationError{Document: path, Code: code, Message: msg}
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		verr.File = s.sources.Name(compileErr.Span.Source)
		verr.Line = compileErr.Span.StartLine
		verr.Column = compileErr.Span.StartCol
	}
	return verr
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	result.Valid = true
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	for _, w := range result.Warnings {
		fmt.Fprintf(formatter.Writer, "warning: %s:%d:%d: %s\n", w.File, w.Line, w.Column, w.Message)
	}
	fmt.Fprintf(formatter.Writer, "✓ %d document(s) valid\n", result.Documents)
	return nil
}

// outputValidationErrors outputs every collected failure.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	errs := result.Errors
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n", err.File, err.Line, err.Column)
		} else {
			fmt.Fprintf(formatter.Writer, "%s\n", err.Document)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Code, err.Message)
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}

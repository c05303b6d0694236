package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/edgewatch/internal/compiler"
)

// ValidationResult is the JSON payload of the validate command.
type ValidationResult struct {
	Valid   bool                       `json:"valid"`
	Files   int                        `json:"files"`
	Sources int                        `json:"sources"`
	Entries int                        `json:"entries"`
	Errors  []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <rules-dir>",
		Short: "Check rule files without running them",
		Long: `Compile the CUE rules in a directory and check that every condition
names a declared source and carries the params its kind needs.

Exit codes:
  0 - rules are valid
  1 - rules compiled but failed validation
  2 - rules could not be loaded`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	loaded, err := LoadRules(dir)
	if err != nil {
		code := loadErrorCode(err)
		_ = f.Error(code, err.Error(), nil)
		return WrapExitError(ExitCommandError, "loading rules", err)
	}
	f.VerboseLog("Found %d CUE file(s) in %s", loaded.FileCount, dir)

	result := ValidationResult{
		Files:   loaded.FileCount,
		Sources: len(loaded.Rules.Sources),
		Entries: len(loaded.Rules.Entries),
		Errors:  compiler.Validate(loaded.Rules),
	}
	result.Valid = len(result.Errors) == 0

	if f.JSON() {
		resp := CLIResponse{Status: "ok", Data: result}
		if !result.Valid {
			resp.Status = "error"
			resp.Error = &CLIError{Code: result.Errors[0].Code, Message: result.Errors[0].Message}
		}
		if err := f.Respond(resp); err != nil {
			return err
		}
	} else {
		writeValidationText(f, result)
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
	}
	return nil
}

func writeValidationText(f *OutputFormatter, result ValidationResult) {
	w := f.Writer
	if result.Valid {
		fmt.Fprintf(w, "✓ Rules valid: %d source(s), %d entr%s\n",
			result.Sources, result.Entries, plural(result.Entries, "y", "ies"))
		return
	}
	fmt.Fprintln(w, "✗ Validation failed")
	fmt.Fprintln(w)
	for _, e := range result.Errors {
		fmt.Fprintf(w, "  %s %s: %s\n", e.Code, e.Field, e.Message)
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

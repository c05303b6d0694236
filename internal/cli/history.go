package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/edgewatch/internal/ir"
	"github.com/roach88/edgewatch/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Entry    string
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded firings",
		Long: `List the rising edges recorded by run, oldest first.

Example:
  edgewatch history --db ./edgewatch.db
  edgewatch history --db ./edgewatch.db --entry porch --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Entry, "entry", "", "only firings of this entry")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	// store.Open creates missing databases; history never should.
	if _, err := os.Stat(opts.Database); errors.Is(err, fs.ErrNotExist) {
		_ = f.Error(ErrCodeNotFound, fmt.Sprintf("database not found: %s", opts.Database), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", opts.Database))
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		_ = f.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	firings, err := st.ReadFirings(cmd.Context(), ir.EntryID(opts.Entry))
	if err != nil {
		_ = f.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "reading firings", err)
	}

	if f.JSON() {
		return f.Success(firings)
	}

	if len(firings) == 0 {
		fmt.Fprintln(f.Writer, "No firings recorded.")
		return nil
	}
	fmt.Fprintf(f.Writer, "%-8s %-24s %s\n", "SEQ", "ENTRY", "FINGERPRINT")
	for _, fr := range firings {
		fmt.Fprintf(f.Writer, "%-8d %-24s %s\n", fr.Seq, fr.EntryID, shortFingerprint(fr.Fingerprint))
	}
	return nil
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/edgewatch/internal/compiler"
	"github.com/roach88/edgewatch/internal/store"
	"github.com/roach88/edgewatch/internal/watch"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Watch    bool
	Debounce time.Duration

	// IDGenerator overrides condition ID assignment (for testing).
	// If nil, conditions get UUIDv7 IDs.
	IDGenerator watch.IDGenerator
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <rules-dir>",
		Short: "Register rules and watch for rising edges",
		Long: `Load CUE rules, register every watch entry and process source
changes read from stdin, one command per line:

  set <source> <var> <json>   set a source variable
  unset <source> <var>        remove a source variable
  touch <source> <kind>       report a change to one kind on a source
  notify [source [kind]]      re-evaluate (no arguments: full pass)
  describe <entry>            print an entry's description
  status                      print entry values and subscriptions

Each rising edge prints "FIRED <entry>" and is recorded in the database.
Without --watch the command exits at end of input. With --watch it keeps
running until interrupted and re-applies the rules whenever a .cue file in
the directory changes.

Example:
  edgewatch run --db ./edgewatch.db ./rules
  edgewatch run --db ./edgewatch.db --watch ./rules`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatcher(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "reload rules when files change; keep running after end of input")
	cmd.Flags().DurationVar(&opts.Debounce, "debounce", DefaultDebounce, "quiet period before a rules reload")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runWatcher(opts *RunOptions, dir string, cmd *cobra.Command) error {
	configureLogging(opts.Verbose)
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	slog.Info("loading rules", "dir", dir)
	loaded, err := LoadRules(dir)
	if err != nil {
		_ = f.Error(loadErrorCode(err), err.Error(), nil)
		return WrapExitError(ExitCommandError, "loading rules", err)
	}
	for _, verr := range compiler.Validate(loaded.Rules) {
		slog.Warn("rule validation", "code", verr.Code, "field", verr.Field, "message", verr.Message)
	}

	slog.Info("opening database", "path", opts.Database)
	st, err := store.Open(opts.Database)
	if err != nil {
		_ = f.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	var regOpts []watch.RegistryOption
	if opts.IDGenerator != nil {
		regOpts = append(regOpts, watch.WithIDGenerator(opts.IDGenerator))
	}
	out := &lockedWriter{w: cmd.OutOrStdout()}
	host, err := NewHost(ctx, st, out, regOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "starting watcher", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// Other goroutines stop once the loop does.
		defer cancel()
		err := host.Loop().Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	report, err := host.Start(gctx, loaded.Rules)
	if err != nil {
		cancel()
		_ = g.Wait()
		_ = f.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "registering rules", err)
	}
	writeStartup(f, out, report)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	g.Go(func() error {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-gctx.Done():
		}
		return nil
	})

	if opts.Watch {
		w := NewRulesWatcher(dir, opts.Debounce, func(ctx context.Context) error {
			loaded, err := LoadRules(dir)
			if err != nil {
				return err
			}
			report, err := host.Reconcile(ctx, loaded.Rules)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "RELOADED +%d ~%d -%d\n", len(report.Added), len(report.Updated), len(report.Removed))
			return nil
		})
		g.Go(func() error { return w.Run(gctx) })
	}

	g.Go(func() error {
		return serve(gctx, host, cmd.InOrStdin(), out, opts.Watch)
	})

	if err := g.Wait(); err != nil {
		return WrapExitError(ExitFailure, "watcher error", err)
	}
	slog.Info("watcher stopped")
	return nil
}

// serve feeds input lines to host.Exec until ctx is done. At end of input
// it stops the loop, unless keepAlive is set.
func serve(ctx context.Context, host *Host, in io.Reader, out io.Writer, keepAlive bool) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := sc.Err(); err != nil {
			slog.Error("reading commands", "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				if keepAlive {
					<-ctx.Done()
					return nil
				}
				host.Loop().Stop()
				return nil
			}
			if err := host.Exec(ctx, line); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				fmt.Fprintf(out, "error: %v\n", err)
			}
		}
	}
}

func writeStartup(f *OutputFormatter, out io.Writer, report ReconcileReport) {
	if f.JSON() {
		_ = (&OutputFormatter{Format: "json", Writer: out}).Success(report)
		return
	}
	fmt.Fprintf(out, "Watching %d entr%s over %d source(s).\n",
		len(report.Added), plural(len(report.Added), "y", "ies"), len(report.Sources))
	for _, e := range report.Errors {
		fmt.Fprintf(out, "error: %s\n", e)
	}
}

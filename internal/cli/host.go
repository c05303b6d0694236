package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/edgewatch/internal/compiler"
	"github.com/roach88/edgewatch/internal/ir"
	"github.com/roach88/edgewatch/internal/source"
	"github.com/roach88/edgewatch/internal/store"
	"github.com/roach88/edgewatch/internal/watch"
)

// Host runs compiled rules: a source catalog feeding a watch loop, with
// entries and firings persisted to the store.
//
// Thread-safety: Exec and Reconcile may be called from any goroutine; the
// registry is only touched on the loop goroutine.
type Host struct {
	catalog  *source.Catalog
	registry *watch.Registry
	loop     *watch.Loop
	store    *store.Store
	out      io.Writer

	// Authored-spec fingerprints of registered entries. Loop goroutine only.
	fingerprints map[ir.EntryID]string
}

// ReconcileReport lists what a Reconcile changed.
type ReconcileReport struct {
	Added     []ir.EntryID  `json:"added,omitempty"`
	Updated   []ir.EntryID  `json:"updated,omitempty"`
	Removed   []ir.EntryID  `json:"removed,omitempty"`
	Unchanged []ir.EntryID  `json:"unchanged,omitempty"`
	Sources   []ir.SourceID `json:"sources,omitempty"`
	Errors    []string      `json:"errors,omitempty"`
}

// NewHost creates a host over st. The logical clock resumes after the
// highest seq already stored, so firing seqs never repeat across runs.
func NewHost(ctx context.Context, st *store.Store, out io.Writer, opts ...watch.RegistryOption) (*Host, error) {
	maxSeq, err := st.MaxSeq(ctx)
	if err != nil {
		return nil, fmt.Errorf("new host: %w", err)
	}

	h := &Host{
		catalog:      source.NewCatalog(nil),
		store:        st,
		out:          out,
		fingerprints: make(map[ir.EntryID]string),
	}

	base := []watch.RegistryOption{
		watch.WithClock(watch.NewClockAt(maxSeq)),
		watch.WithPassObserver(h.observe),
	}
	h.registry = watch.NewRegistry(watch.Collaborators{
		Resolver:      h.catalog,
		Subscriptions: h.catalog,
		Action:        watch.ActionFunc(h.fire),
		Log:           watch.SlogSink{},
	}, append(base, opts...)...)
	h.loop = watch.NewLoop(h.registry)
	h.catalog.SetNotifier(func(id ir.SourceID, kind ir.Kind) {
		if !h.loop.Notify(id, kind) {
			slog.Warn("notification dropped: loop stopped", "source_id", id, "kind", kind)
		}
	})

	return h, nil
}

// Loop returns the host's watch loop.
func (h *Host) Loop() *watch.Loop { return h.loop }

// Catalog returns the host's source catalog.
func (h *Host) Catalog() *source.Catalog { return h.catalog }

// Start prunes stored entries that are no longer in rules, then reconciles.
// The loop must be running.
func (h *Host) Start(ctx context.Context, rules *compiler.Rules) (ReconcileReport, error) {
	stored, err := h.store.LoadEntries(ctx)
	if err != nil {
		return ReconcileReport{}, err
	}

	wanted := make(map[ir.EntryID]string, len(rules.Entries))
	for _, spec := range rules.Entries {
		fp, err := ir.EntryFingerprint(spec)
		if err != nil {
			return ReconcileReport{}, fmt.Errorf("fingerprint %s: %w", spec.ID, err)
		}
		wanted[spec.ID] = fp
	}

	for _, se := range stored {
		fp, ok := wanted[se.Spec.ID]
		switch {
		case !ok:
			if _, err := h.store.DeleteEntry(ctx, se.Spec.ID); err != nil {
				return ReconcileReport{}, err
			}
			slog.Info("stored entry pruned", "entry_id", se.Spec.ID)
		case fp != se.Fingerprint:
			slog.Info("entry changed since last run", "entry_id", se.Spec.ID)
		}
	}

	return h.Reconcile(ctx, rules)
}

// Reconcile brings the registry in line with rules. New sources are added
// (existing ones keep their runtime variables). Entries missing from rules
// are deregistered; edited entries are deregistered and registered again
// with fresh caches; entries whose fingerprint is unchanged are left alone.
func (h *Host) Reconcile(ctx context.Context, rules *compiler.Rules) (ReconcileReport, error) {
	var report ReconcileReport

	for _, spec := range rules.Sources {
		if _, exists := h.catalog.Get(spec.ID); exists {
			continue
		}
		if _, err := h.catalog.Add(spec); err != nil {
			report.Errors = append(report.Errors, err.Error())
			continue
		}
		report.Sources = append(report.Sources, spec.ID)
	}

	err := h.loop.Do(ctx, func(r *watch.Registry) error {
		wanted := make(map[ir.EntryID]bool, len(rules.Entries))
		for _, spec := range rules.Entries {
			wanted[spec.ID] = true
		}

		for _, spec := range r.Entries() {
			if wanted[spec.ID] {
				continue
			}
			if err := r.Deregister(spec.ID); err != nil {
				report.Errors = append(report.Errors, err.Error())
				continue
			}
			delete(h.fingerprints, spec.ID)
			if _, err := h.store.DeleteEntry(ctx, spec.ID); err != nil {
				return err
			}
			report.Removed = append(report.Removed, spec.ID)
		}

		for _, spec := range rules.Entries {
			fp, err := ir.EntryFingerprint(spec)
			if err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("fingerprint %s: %v", spec.ID, err))
				continue
			}

			prev, known := h.fingerprints[spec.ID]
			if known && prev == fp {
				report.Unchanged = append(report.Unchanged, spec.ID)
				continue
			}
			if known {
				if err := r.Deregister(spec.ID); err != nil {
					report.Errors = append(report.Errors, err.Error())
					continue
				}
				delete(h.fingerprints, spec.ID)
			}

			// Set before Register: the initial pass may fire and the
			// observer records the fingerprint with the firing.
			h.fingerprints[spec.ID] = fp
			if err := r.Register(spec); err != nil {
				delete(h.fingerprints, spec.ID)
				report.Errors = append(report.Errors, err.Error())
				continue
			}
			if err := h.store.SaveEntry(ctx, spec, r.Clock().Current()); err != nil {
				return err
			}

			if known {
				report.Updated = append(report.Updated, spec.ID)
			} else {
				report.Added = append(report.Added, spec.ID)
			}
		}
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("reconcile: %w", err)
	}

	slog.Info("rules reconciled",
		"added", len(report.Added),
		"updated", len(report.Updated),
		"removed", len(report.Removed),
		"unchanged", len(report.Unchanged),
		"errors", len(report.Errors),
	)
	return report, nil
}

// fire is the action trigger. It runs on the loop goroutine.
func (h *Host) fire(id ir.EntryID) {
	fmt.Fprintf(h.out, "FIRED %s\n", id)
}

// observe records rising edges. Firings drained after shutdown still need
// writing, so the write does not use the run context.
func (h *Host) observe(p watch.Pass) {
	if !p.Rising {
		return
	}
	id, err := h.store.RecordFiring(context.Background(), p.EntryID, h.fingerprints[p.EntryID], p.Seq)
	if err != nil {
		slog.Error("record firing failed", "entry_id", p.EntryID, "seq", p.Seq, "error", err)
		return
	}
	slog.Debug("firing recorded", "entry_id", p.EntryID, "seq", p.Seq, "firing_id", id)
}

// Exec runs one command line:
//
//	set <source> <var> <json>
//	unset <source> <var>
//	touch <source> <kind>
//	notify [source [kind]]
//	describe <entry>
//	status
//
// Blank lines and lines starting with '#' are ignored.
func (h *Host) Exec(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}
	fields := strings.Fields(line)
	verb, args := fields[0], fields[1:]

	switch verb {
	case "set":
		if len(args) < 3 {
			return fmt.Errorf("usage: set <source> <var> <json>")
		}
		v, err := ir.ParseValue(restAfter(line, 3))
		if err != nil {
			return err
		}
		return h.catalog.Set(ir.SourceID(args[0]), args[1], v)

	case "unset":
		if len(args) != 2 {
			return fmt.Errorf("usage: unset <source> <var>")
		}
		return h.catalog.Unset(ir.SourceID(args[0]), args[1])

	case "touch":
		if len(args) != 2 {
			return fmt.Errorf("usage: touch <source> <kind>")
		}
		if _, ok := h.catalog.Get(ir.SourceID(args[0])); !ok {
			return fmt.Errorf("unknown source %q", args[0])
		}
		h.catalog.Touch(ir.SourceID(args[0]), ir.Kind(args[1]))
		return nil

	case "notify":
		if len(args) > 2 {
			return fmt.Errorf("usage: notify [source [kind]]")
		}
		var src ir.SourceID
		var kind ir.Kind
		if len(args) > 0 {
			src = ir.SourceID(args[0])
		}
		if len(args) > 1 {
			kind = ir.Kind(args[1])
		}
		if !h.loop.Notify(src, kind) {
			return watch.ErrLoopStopped
		}
		return nil

	case "describe":
		if len(args) != 1 {
			return fmt.Errorf("usage: describe <entry>")
		}
		return h.loop.Do(ctx, func(r *watch.Registry) error {
			desc, err := r.Describe(ir.EntryID(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintf(h.out, "%s: %s\n", args[0], desc)
			return nil
		})

	case "status":
		return h.loop.Do(ctx, func(r *watch.Registry) error {
			h.writeStatus(r)
			return nil
		})

	default:
		return fmt.Errorf("unknown command %q", verb)
	}
}

func (h *Host) writeStatus(r *watch.Registry) {
	for _, spec := range r.Entries() {
		state := "pending"
		if value, evaluated := r.Value(spec.ID); evaluated {
			state = fmt.Sprintf("%t", value)
		}
		fmt.Fprintf(h.out, "entry %s: %s (%d condition(s))\n", spec.ID, state, len(spec.Conditions))
	}
	for _, id := range h.catalog.Sources() {
		fmt.Fprintf(h.out, "source %s: %d subscriber(s)\n", id, h.catalog.Subscribers(id))
	}
}

// restAfter returns line with its first n whitespace-separated fields removed.
func restAfter(line string, n int) string {
	rest := strings.TrimSpace(line)
	for i := 0; i < n; i++ {
		idx := strings.IndexAny(rest, " \t")
		if idx < 0 {
			return ""
		}
		rest = strings.TrimSpace(rest[idx:])
	}
	return rest
}

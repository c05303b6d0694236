package watch

import (
	"log/slog"

	"github.com/roach88/edgewatch/internal/ir"
)

// Registry owns the watched entries and routes change notifications to the
// engine.
//
// CRITICAL: Registry is single-writer. All calls must come from one goroutine
// (or go through Loop). Evaluators must not call back into the registry.
//
// INVARIANTS:
//   - entries are kept in registration order
//   - entry IDs are unique; condition IDs are unique within an entry
//   - a deregistered entry is never evaluated again
type Registry struct {
	collab   Collaborators
	engine   *Engine
	clock    Sequencer
	ids      IDGenerator
	entries  []*Entry
	index    map[ir.EntryID]*Entry
	observer func(Pass)
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithIDGenerator sets the generator for conditions registered without an ID.
// Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) RegistryOption {
	return func(r *Registry) {
		r.ids = g
	}
}

// WithClock sets the logical clock used to stamp passes.
// Default: a fresh Clock starting at 0.
func WithClock(c Sequencer) RegistryOption {
	return func(r *Registry) {
		r.clock = c
	}
}

// WithPassObserver installs a callback invoked after every entry pass.
// Used by the conformance harness to record traces.
func WithPassObserver(fn func(Pass)) RegistryOption {
	return func(r *Registry) {
		r.observer = fn
	}
}

// NewRegistry creates an empty registry over the given collaborators.
func NewRegistry(c Collaborators, opts ...RegistryOption) *Registry {
	c = c.withDefaults()
	r := &Registry{
		collab: c,
		engine: NewEngine(NewConditionEvaluator(c.Resolver, c.Log), c.Action),
		clock:  NewClock(),
		ids:    UUIDv7Generator{},
		index:  make(map[ir.EntryID]*Entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register stores a new entry, subscribes each of its conditions, and runs
// one unconditional pass (which fires the action if the entry starts true).
//
// Conditions without an ID are assigned one. Returns an error, and changes
// nothing, if the entry ID is empty or taken or two conditions share an ID.
func (r *Registry) Register(spec ir.EntrySpec) error {
	if spec.ID == "" {
		return &WatchError{Code: ErrCodeInvalidEntry, Message: "entry ID is required"}
	}
	if _, exists := r.index[spec.ID]; exists {
		return &WatchError{Code: ErrCodeDuplicateEntry, Message: "entry already registered", EntryID: spec.ID}
	}

	spec = spec.Clone()
	seen := make(map[ir.ConditionID]bool, len(spec.Conditions))
	for i := range spec.Conditions {
		if spec.Conditions[i].ID == "" {
			spec.Conditions[i].ID = r.ids.Generate()
		}
		id := spec.Conditions[i].ID
		if seen[id] {
			return &WatchError{
				Code:        ErrCodeDuplicateCondition,
				Message:     "condition ID used twice in one entry",
				EntryID:     spec.ID,
				ConditionID: id,
			}
		}
		seen[id] = true
	}

	entry := NewEntry(spec)
	r.entries = append(r.entries, entry)
	r.index[spec.ID] = entry

	for _, cond := range spec.Conditions {
		r.collab.Subscriptions.Subscribe(cond)
	}

	slog.Info("entry registered",
		"entry_id", spec.ID,
		"conditions", len(spec.Conditions),
	)

	r.run(entry, Filter{})
	return nil
}

// Deregister unsubscribes an entry's conditions and removes it.
func (r *Registry) Deregister(id ir.EntryID) error {
	entry, ok := r.index[id]
	if !ok {
		return &WatchError{Code: ErrCodeUnknownEntry, Message: "entry not registered", EntryID: id}
	}

	for _, cond := range entry.spec.Conditions {
		r.collab.Subscriptions.Unsubscribe(cond)
	}

	delete(r.index, id)
	for i, e := range r.entries {
		if e == entry {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			break
		}
	}

	slog.Info("entry deregistered", "entry_id", id)
	return nil
}

// Notify handles a change notification: every registered entry is
// re-evaluated, in registration order, scoped to (sourceID, kind). Either
// may be empty. No entry is skipped because of another entry's outcome.
func (r *Registry) Notify(sourceID ir.SourceID, kind ir.Kind) []Pass {
	slog.Debug("change notification",
		"source_id", sourceID,
		"kind", kind,
		"entries", len(r.entries),
	)

	f := Filter{SourceID: sourceID, Kind: kind}
	entries := make([]*Entry, len(r.entries))
	copy(entries, r.entries)

	passes := make([]Pass, 0, len(entries))
	for _, e := range entries {
		passes = append(passes, r.run(e, f))
	}
	return passes
}

// Refresh runs an unconditional pass over every entry.
func (r *Registry) Refresh() []Pass {
	passes := make([]Pass, 0, len(r.entries))
	for _, e := range append([]*Entry(nil), r.entries...) {
		passes = append(passes, r.run(e, Filter{}))
	}
	return passes
}

func (r *Registry) run(e *Entry, f Filter) Pass {
	pass := r.engine.Reevaluate(e, f)
	pass.Seq = r.clock.Next()
	if r.observer != nil {
		r.observer(pass)
	}
	return pass
}

// Entry returns a registered entry.
func (r *Registry) Entry(id ir.EntryID) (*Entry, bool) {
	e, ok := r.index[id]
	return e, ok
}

// Entries returns registered entry specs in registration order.
func (r *Registry) Entries() []ir.EntrySpec {
	out := make([]ir.EntrySpec, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Spec()
	}
	return out
}

// Len returns the number of registered entries.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Value returns an entry's aggregate value and whether it has been evaluated.
// Unknown entries report (false, false).
func (r *Registry) Value(id ir.EntryID) (value bool, evaluated bool) {
	e, ok := r.index[id]
	if !ok {
		return false, false
	}
	return e.Value()
}

// Cached returns a condition's cached value within an entry.
func (r *Registry) Cached(id ir.EntryID, cond ir.ConditionID) (value bool, ok bool) {
	e, found := r.index[id]
	if !found {
		return false, false
	}
	return e.cache.Get(cond)
}

// Clock returns the registry's logical clock.
func (r *Registry) Clock() Sequencer {
	return r.clock
}

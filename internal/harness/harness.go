package harness

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/roach88/edgewatch/internal/ir"
	"github.com/roach88/edgewatch/internal/source"
	"github.com/roach88/edgewatch/internal/testutil"
	"github.com/roach88/edgewatch/internal/watch"
)

// Harness runs one scenario against a real Registry over a source.Catalog.
// Condition IDs and seq numbers come from deterministic generators so two
// runs of the same scenario produce identical traces.
type Harness struct {
	catalog  *source.Catalog
	registry *watch.Registry
	result   *Result
	step     int
	faults   map[faultKey]*watch.Definition
	logger   *slog.Logger
}

type faultKey struct {
	source ir.SourceID
	kind   ir.Kind
}

// discardSink drops evaluator diagnostics; faults show up in the trace.
type discardSink struct{}

func (discardSink) Log(string, slog.Level, string) {}

// Run executes a test scenario and returns the result.
//
// Execution flow:
//  1. Add sources to a fresh catalog
//  2. Register initial entries (each runs one full pass)
//  3. Execute steps in order
//  4. Evaluate assertions
//
// An error is returned only when the scenario cannot be executed (bad
// source, unexpected registration failure). Assertion failures are reported
// in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	h := &Harness{
		result: NewResult(),
		faults: make(map[faultKey]*watch.Definition),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	h.catalog = source.NewCatalog(nil)
	h.registry = watch.NewRegistry(watch.Collaborators{
		Resolver:      h.catalog,
		Subscriptions: h.catalog,
		Action:        watch.ActionFunc(h.fire),
		Log:           discardSink{},
	},
		watch.WithClock(testutil.NewDeterministicClock()),
		watch.WithIDGenerator(testutil.NewSequenceIDGenerator("gen")),
		watch.WithPassObserver(h.observe),
	)
	h.catalog.SetNotifier(func(id ir.SourceID, kind ir.Kind) {
		h.registry.Notify(id, kind)
	})

	for _, decl := range scenario.Sources {
		spec, err := decl.toSourceSpec()
		if err != nil {
			return nil, err
		}
		if _, err := h.catalog.Add(spec); err != nil {
			return nil, fmt.Errorf("add source %s: %w", decl.ID, err)
		}
	}

	for _, decl := range scenario.Entries {
		spec, err := decl.toEntrySpec()
		if err != nil {
			return nil, err
		}
		if err := h.registry.Register(spec); err != nil {
			return nil, fmt.Errorf("register entry %s: %w", decl.ID, err)
		}
	}

	for i, st := range scenario.Steps {
		h.step = i + 1
		err := h.execute(st)
		if err := h.checkStepError(st, err); err != nil {
			return nil, err
		}
	}

	for _, msg := range h.evaluateAssertions(scenario.Assertions) {
		h.result.AddError(msg)
	}

	return h.result, nil
}

func (h *Harness) observe(p watch.Pass) {
	h.result.Trace = append(h.result.Trace, newTraceEvent(h.step, p))
}

func (h *Harness) fire(id ir.EntryID) {
	h.result.Fired[id]++
	h.logger.Info("action fired", "entry_id", id, "step", h.step)
}

// checkStepError compares a step's error with its expect_error. A mismatch
// on a step that expected an error is an assertion failure; an unexpected
// error aborts the run.
func (h *Harness) checkStepError(st Step, err error) error {
	if st.ExpectError == "" {
		if err != nil {
			return fmt.Errorf("step %d: %w", h.step, err)
		}
		return nil
	}

	var we *watch.WatchError
	switch {
	case err == nil:
		h.result.AddError(fmt.Sprintf("step %d: expected error %s, got none", h.step, st.ExpectError))
	case !errors.As(err, &we):
		h.result.AddError(fmt.Sprintf("step %d: expected error %s, got %v", h.step, st.ExpectError, err))
	case string(we.Code) != st.ExpectError:
		h.result.AddError(fmt.Sprintf("step %d: expected error %s, got %s", h.step, st.ExpectError, we.Code))
	}
	return nil
}

// execute runs one step.
func (h *Harness) execute(st Step) error {
	switch {
	case st.Set != nil:
		v, err := ir.FromGo(st.Set.Value)
		if err != nil {
			return fmt.Errorf("set %s.%s: %w", st.Set.Source, st.Set.Var, err)
		}
		return h.catalog.Set(ir.SourceID(st.Set.Source), st.Set.Var, v)

	case st.Touch != nil:
		h.catalog.Touch(ir.SourceID(st.Touch.Source), ir.Kind(st.Touch.Kind))
		return nil

	case st.Notify != nil:
		h.registry.Notify(ir.SourceID(st.Notify.Source), ir.Kind(st.Notify.Kind))
		return nil

	case st.Register != nil:
		spec, err := st.Register.toEntrySpec()
		if err != nil {
			return err
		}
		return h.registry.Register(spec)

	case st.Deregister != "":
		return h.registry.Deregister(ir.EntryID(st.Deregister))

	case st.Fail != nil:
		h.injectFault(st.Fail)
		return nil

	case st.Recover != nil:
		h.recoverFault(ir.SourceID(st.Recover.Source), ir.Kind(st.Recover.Kind))
		return nil
	}
	return fmt.Errorf("empty step")
}

// injectFault replaces a (source, kind) definition with one whose check
// fails. The original definition is kept for recoverFault.
func (h *Harness) injectFault(f *FaultStep) {
	key := faultKey{ir.SourceID(f.Source), ir.Kind(f.Kind)}
	if _, broken := h.faults[key]; !broken {
		if def, ok := h.catalog.Definition(key.source, key.kind); ok {
			h.faults[key] = &def
		} else {
			h.faults[key] = nil
		}
	}

	msg := f.Message
	if msg == "" {
		msg = "injected fault"
	}
	label := "Injected fault"
	if orig := h.faults[key]; orig != nil {
		label = orig.Label
	}

	panics := f.Panic
	h.catalog.Define(key.source, watch.Definition{
		Kind:  key.kind,
		Label: label,
		Evaluator: func(ir.Condition) (any, error) {
			if panics {
				panic(msg)
			}
			return nil, errors.New(msg)
		},
	})
}

func (h *Harness) recoverFault(id ir.SourceID, kind ir.Kind) {
	key := faultKey{id, kind}
	orig, broken := h.faults[key]
	if !broken {
		return
	}
	delete(h.faults, key)
	if orig == nil {
		h.catalog.Undefine(id, kind)
		return
	}
	h.catalog.Define(id, *orig)
}

// evaluateAssertions returns one message per failed assertion.
func (h *Harness) evaluateAssertions(assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := h.evaluateAssertion(a); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d] %s: %v", i, a.Type, err))
		}
	}
	return errs
}

func (h *Harness) evaluateAssertion(a Assertion) error {
	entryID := ir.EntryID(a.Entry)
	condID := ir.ConditionID(a.Condition)

	switch a.Type {
	case AssertFiredCount:
		if got := h.result.Fired[entryID]; got != a.Count {
			return fmt.Errorf("entry %s fired %d times, expected %d", entryID, got, a.Count)
		}

	case AssertValue:
		value, evaluated := h.registry.Value(entryID)
		if !evaluated {
			return fmt.Errorf("entry %s has no value", entryID)
		}
		if value != *a.Expect {
			return fmt.Errorf("entry %s is %t, expected %t", entryID, value, *a.Expect)
		}

	case AssertEvalCount:
		e, ok := h.registry.Entry(entryID)
		if !ok {
			return fmt.Errorf("entry %s not registered", entryID)
		}
		if got := e.EvalCount(condID); got != a.Count {
			return fmt.Errorf("condition %s evaluated %d times, expected %d", condID, got, a.Count)
		}

	case AssertCached:
		if _, ok := h.registry.Entry(entryID); !ok {
			return fmt.Errorf("entry %s not registered", entryID)
		}
		value, ok := h.registry.Cached(entryID, condID)
		if a.Absent {
			if ok {
				return fmt.Errorf("condition %s cached as %t, expected absent", condID, value)
			}
			return nil
		}
		if !ok {
			return fmt.Errorf("condition %s has no cached value", condID)
		}
		if value != *a.Expect {
			return fmt.Errorf("condition %s cached as %t, expected %t", condID, value, *a.Expect)
		}

	case AssertSubscribers:
		if got := h.catalog.Subscribers(ir.SourceID(a.Source)); got != a.Count {
			return fmt.Errorf("source %s has %d subscribers, expected %d", a.Source, got, a.Count)
		}
	}
	return nil
}

// FiredEntries returns the IDs of entries that fired at least once, sorted.
func (r *Result) FiredEntries() []ir.EntryID {
	ids := make([]ir.EntryID, 0, len(r.Fired))
	for id, n := range r.Fired {
		if n > 0 {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

package watch

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/roach88/edgewatch/internal/ir"
	"github.com/roach88/edgewatch/internal/testutil"
)

// fakeInstance is a source with an optional generic evaluator.
type fakeInstance struct {
	label   string
	generic EvaluatorFunc
}

func (f *fakeInstance) Label() string                   { return f.label }
func (f *fakeInstance) GenericEvaluator() EvaluatorFunc { return f.generic }

type defKey struct {
	source ir.SourceID
	kind   ir.Kind
}

// fakeResolver serves definitions whose results are switched per test.
type fakeResolver struct {
	instances   map[ir.SourceID]*fakeInstance
	definitions map[defKey]Definition
	results     map[ir.ConditionID]any
	faults      map[ir.ConditionID]error
	panics      map[ir.ConditionID]bool
	calls       map[ir.ConditionID]int
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		instances:   make(map[ir.SourceID]*fakeInstance),
		definitions: make(map[defKey]Definition),
		results:     make(map[ir.ConditionID]any),
		faults:      make(map[ir.ConditionID]error),
		panics:      make(map[ir.ConditionID]bool),
		calls:       make(map[ir.ConditionID]int),
	}
}

// check is the evaluator installed on every definition added via define.
func (f *fakeResolver) check(cond ir.Condition) (any, error) {
	f.calls[cond.ID]++
	if f.panics[cond.ID] {
		panic("boom")
	}
	if err := f.faults[cond.ID]; err != nil {
		return nil, err
	}
	return f.results[cond.ID], nil
}

// define registers (source, kind) with the shared check evaluator.
func (f *fakeResolver) define(source ir.SourceID, kind ir.Kind, label string) {
	if _, ok := f.instances[source]; !ok {
		f.instances[source] = &fakeInstance{label: "Source " + string(source)}
	}
	f.definitions[defKey{source, kind}] = Definition{Kind: kind, Label: label, Evaluator: f.check}
}

func (f *fakeResolver) set(id ir.ConditionID, v any) {
	f.results[id] = v
}

func (f *fakeResolver) Instance(id ir.SourceID) (Instance, bool) {
	inst, ok := f.instances[id]
	if !ok {
		return nil, false
	}
	return inst, true
}

func (f *fakeResolver) Definition(id ir.SourceID, kind ir.Kind) (Definition, bool) {
	def, ok := f.definitions[defKey{id, kind}]
	return def, ok
}

// recordingAction records every triggered entry ID.
type recordingAction struct {
	fired []ir.EntryID
}

func (a *recordingAction) Trigger(id ir.EntryID) {
	a.fired = append(a.fired, id)
}

func (a *recordingAction) count(id ir.EntryID) int {
	n := 0
	for _, f := range a.fired {
		if f == id {
			n++
		}
	}
	return n
}

// recordingSubs records subscribe/unsubscribe calls.
type recordingSubs struct {
	subscribed   []ir.ConditionID
	unsubscribed []ir.ConditionID
}

func (s *recordingSubs) Subscribe(c ir.Condition)   { s.subscribed = append(s.subscribed, c.ID) }
func (s *recordingSubs) Unsubscribe(c ir.Condition) { s.unsubscribed = append(s.unsubscribed, c.ID) }

type logLine struct {
	label   string
	level   slog.Level
	message string
}

// recordingSink records diagnostics; safe for use from the loop goroutine.
type recordingSink struct {
	mu    sync.Mutex
	lines []logLine
}

func (s *recordingSink) Log(label string, level slog.Level, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, logLine{label, level, message})
}

func (s *recordingSink) byLevel(level slog.Level) []logLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []logLine
	for _, l := range s.lines {
		if l.level == level {
			out = append(out, l)
		}
	}
	return out
}

func cond(id string, source ir.SourceID, kind ir.Kind) ir.Condition {
	return ir.Condition{ID: ir.ConditionID(id), SourceID: source, Kind: kind, Label: id}
}

var errCheckFailed = errors.New("check failed")

type testRig struct {
	resolver *fakeResolver
	action   *recordingAction
	subs     *recordingSubs
	sink     *recordingSink
	registry *Registry
	passes   []Pass
}

func newTestRig(opts ...RegistryOption) *testRig {
	rig := &testRig{
		resolver: newFakeResolver(),
		action:   &recordingAction{},
		subs:     &recordingSubs{},
		sink:     &recordingSink{},
	}
	opts = append([]RegistryOption{
		WithIDGenerator(testutil.NewSequenceIDGenerator("gen")),
		WithPassObserver(func(p Pass) { rig.passes = append(rig.passes, p) }),
	}, opts...)
	rig.registry = NewRegistry(Collaborators{
		Resolver:      rig.resolver,
		Subscriptions: rig.subs,
		Action:        rig.action,
		Log:           rig.sink,
	}, opts...)
	return rig
}

func (r *testRig) lastPass() Pass {
	return r.passes[len(r.passes)-1]
}

package watch

import (
	"log/slog"

	"github.com/roach88/edgewatch/internal/ir"
)

// Filter scopes a re-evaluation to the conditions a change could affect.
// An empty field leaves that dimension unconstrained; the zero Filter forces
// a full pass.
type Filter struct {
	SourceID ir.SourceID
	Kind     ir.Kind
}

// IsZero reports whether the filter carries no scope (full pass).
func (f Filter) IsZero() bool {
	return f.SourceID == "" && f.Kind == ""
}

// Entry is a registered rule plus the state the engine owns for it.
//
// INVARIANTS:
//   - conditions never change after registration
//   - cache values are only set after evaluating that condition
//   - after a pass, value is the AND of the cached values up to the first false
type Entry struct {
	spec      ir.EntrySpec
	cache     *ConditionCache
	value     bool
	evaluated bool
	evals     map[ir.ConditionID]int
}

// NewEntry creates an entry with an empty cache and no aggregate value.
func NewEntry(spec ir.EntrySpec) *Entry {
	spec = spec.Clone()
	return &Entry{
		spec:  spec,
		cache: NewConditionCache(len(spec.Conditions)),
		evals: make(map[ir.ConditionID]int, len(spec.Conditions)),
	}
}

// ID returns the entry ID.
func (e *Entry) ID() ir.EntryID { return e.spec.ID }

// Spec returns a copy of the registered spec.
func (e *Entry) Spec() ir.EntrySpec { return e.spec.Clone() }

// Value returns the aggregate value and whether any pass has run yet.
func (e *Entry) Value() (value bool, evaluated bool) { return e.value, e.evaluated }

// Cache exposes the entry's condition cache (read access for introspection).
func (e *Entry) Cache() *ConditionCache { return e.cache }

// EvalCount returns how many times a condition's evaluator has been consulted.
func (e *Entry) EvalCount(id ir.ConditionID) int { return e.evals[id] }

// Pass reports what a single re-evaluation did.
type Pass struct {
	Seq       int64
	EntryID   ir.EntryID
	Filter    Filter
	Evaluated []ir.ConditionID
	Reused    []ir.ConditionID
	Outcomes  map[ir.ConditionID]Outcome
	Previous  bool
	Aggregate bool
	Changed   bool
	Rising    bool
}

// Engine performs entry passes. It holds no entry state of its own.
type Engine struct {
	evaluator *ConditionEvaluator
	action    ActionTrigger
}

// NewEngine creates an engine that evaluates through evaluator and fires action
// on rising edges.
func NewEngine(evaluator *ConditionEvaluator, action ActionTrigger) *Engine {
	if action == nil {
		action = noopAction{}
	}
	return &Engine{evaluator: evaluator, action: action}
}

// Reevaluate recomputes an entry's aggregate.
//
// Conditions are visited in registration order and folded with AND; the walk
// stops at the first false, leaving later cached values untouched. A condition
// with a cached value is reused without evaluation when the filter is
// non-zero and the condition lies outside it. A condition with no cached
// value is always evaluated.
//
// The action fires only when the aggregate changes to true. The previous
// value of a never-evaluated entry counts as false.
func (g *Engine) Reevaluate(e *Entry, f Filter) Pass {
	pass := Pass{
		EntryID:  e.spec.ID,
		Filter:   f,
		Previous: e.value,
	}

	aggregate := len(e.spec.Conditions) > 0
	for _, cond := range e.spec.Conditions {
		if !aggregate {
			break
		}

		if cached, ok := e.cache.Get(cond.ID); ok && !f.IsZero() && !cond.Matches(f.SourceID, f.Kind) {
			pass.Reused = append(pass.Reused, cond.ID)
			aggregate = aggregate && cached
			continue
		}

		outcome := g.evaluator.EvaluateOutcome(cond)
		e.evals[cond.ID]++
		e.cache.Set(cond.ID, outcome.Value)
		pass.Evaluated = append(pass.Evaluated, cond.ID)
		if pass.Outcomes == nil {
			pass.Outcomes = make(map[ir.ConditionID]Outcome)
		}
		pass.Outcomes[cond.ID] = outcome
		aggregate = aggregate && outcome.Value
	}

	pass.Aggregate = aggregate
	e.evaluated = true

	if aggregate != e.value {
		e.value = aggregate
		pass.Changed = true

		if aggregate {
			pass.Rising = true
			slog.Debug("entry rising edge",
				"entry_id", e.spec.ID,
				"source_id", f.SourceID,
				"kind", f.Kind,
			)
			g.action.Trigger(e.spec.ID)
		}
	}

	slog.Debug("entry pass",
		"entry_id", e.spec.ID,
		"evaluated", len(pass.Evaluated),
		"reused", len(pass.Reused),
		"aggregate", aggregate,
		"changed", pass.Changed,
	)

	return pass
}

package watch

import (
	"context"
	"log/slog"

	"github.com/roach88/edgewatch/internal/ir"
)

// EvaluatorFunc is a condition check. It should return a bool; any other
// result is treated as false. Returning an error, or panicking, marks the
// condition as faulted for this evaluation.
type EvaluatorFunc func(cond ir.Condition) (any, error)

// Definition describes a condition kind offered by a source. Evaluator may be
// nil, in which case the source's generic evaluator is used instead.
type Definition struct {
	Kind      ir.Kind
	Label     string
	Evaluator EvaluatorFunc
}

// Instance is a live source. GenericEvaluator returns the per-instance
// fallback check, or nil when the instance has none.
type Instance interface {
	Label() string
	GenericEvaluator() EvaluatorFunc
}

// Resolver looks up source instances and condition-kind definitions.
type Resolver interface {
	Instance(id ir.SourceID) (Instance, bool)
	Definition(id ir.SourceID, kind ir.Kind) (Definition, bool)
}

// Subscriptions is told when a condition starts or stops being watched, so the
// source knows whose changes to report.
type Subscriptions interface {
	Subscribe(cond ir.Condition)
	Unsubscribe(cond ir.Condition)
}

// ActionTrigger fires the downstream effect for an entry on its rising edge.
type ActionTrigger interface {
	Trigger(entryID ir.EntryID)
}

// ActionFunc adapts a function to ActionTrigger.
type ActionFunc func(entryID ir.EntryID)

// Trigger implements ActionTrigger.
func (f ActionFunc) Trigger(entryID ir.EntryID) { f(entryID) }

// LogSink receives diagnostics tagged with a human-readable label such as
// "feedback(lights on)".
type LogSink interface {
	Log(label string, level slog.Level, message string)
}

// SlogSink forwards diagnostics to the default slog logger.
type SlogSink struct{}

// Log implements LogSink.
func (SlogSink) Log(label string, level slog.Level, message string) {
	slog.Log(context.Background(), level, message, "label", label)
}

// Collaborators bundles the external operations the registry depends on.
// Nil fields degrade to no-ops (Resolver: every condition unresolved).
type Collaborators struct {
	Resolver      Resolver
	Subscriptions Subscriptions
	Action        ActionTrigger
	Log           LogSink
}

type noopSubscriptions struct{}

func (noopSubscriptions) Subscribe(ir.Condition)   {}
func (noopSubscriptions) Unsubscribe(ir.Condition) {}

type noopAction struct{}

func (noopAction) Trigger(ir.EntryID) {}

type emptyResolver struct{}

func (emptyResolver) Instance(ir.SourceID) (Instance, bool) { return nil, false }
func (emptyResolver) Definition(ir.SourceID, ir.Kind) (Definition, bool) {
	return Definition{}, false
}

func (c Collaborators) withDefaults() Collaborators {
	if c.Resolver == nil {
		c.Resolver = emptyResolver{}
	}
	if c.Subscriptions == nil {
		c.Subscriptions = noopSubscriptions{}
	}
	if c.Action == nil {
		c.Action = noopAction{}
	}
	if c.Log == nil {
		c.Log = SlogSink{}
	}
	return c
}

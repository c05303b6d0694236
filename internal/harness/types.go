package harness

import (
	"github.com/roach88/edgewatch/internal/ir"
	"github.com/roach88/edgewatch/internal/watch"
)

// TraceEvent records one entry pass.
type TraceEvent struct {
	// Step is the 1-based scenario step that caused the pass; 0 for the
	// passes run while registering the scenario's initial entries.
	Step      int              `json:"step"`
	Seq       int64            `json:"seq"`
	EntryID   ir.EntryID       `json:"entry_id"`
	Source    ir.SourceID      `json:"source,omitempty"`
	Kind      ir.Kind          `json:"kind,omitempty"`
	Evaluated []ir.ConditionID `json:"evaluated"`
	Reused    []ir.ConditionID `json:"reused"`
	Faults    []ir.ConditionID `json:"faults,omitempty"`
	Aggregate bool             `json:"aggregate"`
	Fired     bool             `json:"fired"`
}

// newTraceEvent builds a trace event from an engine pass.
func newTraceEvent(step int, p watch.Pass) TraceEvent {
	ev := TraceEvent{
		Step:      step,
		Seq:       p.Seq,
		EntryID:   p.EntryID,
		Source:    p.Filter.SourceID,
		Kind:      p.Filter.Kind,
		Evaluated: append([]ir.ConditionID{}, p.Evaluated...),
		Reused:    append([]ir.ConditionID{}, p.Reused...),
		Aggregate: p.Aggregate,
		Fired:     p.Rising,
	}
	for _, id := range p.Evaluated {
		if p.Outcomes[id].Status == watch.OutcomeFault {
			ev.Faults = append(ev.Faults, id)
		}
	}
	return ev
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass is true if every assertion and step expectation held.
	Pass bool `json:"pass"`

	// Trace contains every entry pass in seq order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Fired counts rising edges per entry.
	Fired map[ir.EntryID]int `json:"fired"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		Fired:  make(map[ir.EntryID]int),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

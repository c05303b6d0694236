package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/edgewatch/internal/ir"
)

// TraceSnapshot captures the complete trace for a scenario execution.
// All fields use canonical JSON serialization for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string
	Trace        []TraceEvent
	Fired        map[ir.EntryID]int
}

// toCanonicalMap converts a TraceSnapshot to a map[string]any for canonical
// JSON serialization (ir.MarshalCanonical only handles IR types and
// primitives).
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	trace := make([]any, len(s.Trace))
	for i, ev := range s.Trace {
		m := map[string]any{
			"step":      ev.Step,
			"seq":       ev.Seq,
			"entry_id":  string(ev.EntryID),
			"evaluated": idList(ev.Evaluated),
			"reused":    idList(ev.Reused),
			"aggregate": ev.Aggregate,
			"fired":     ev.Fired,
		}
		if ev.Source != "" {
			m["source"] = string(ev.Source)
		}
		if ev.Kind != "" {
			m["kind"] = string(ev.Kind)
		}
		if len(ev.Faults) > 0 {
			m["faults"] = idList(ev.Faults)
		}
		trace[i] = m
	}

	fired := make(map[string]any, len(s.Fired))
	for id, n := range s.Fired {
		fired[string(id)] = n
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         trace,
		"fired":         fired,
	}
}

func idList(ids []ir.ConditionID) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

// MarshalTrace renders a result's trace as canonical JSON.
func MarshalTrace(scenarioName string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		Trace:        result.Trace,
		Fired:        result.Fired,
	}
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares the trace against a golden
// file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails. Test failure (via goldie)
// occurs if the trace doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result's trace against a golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	traceJSON, err := MarshalTrace(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)

	return nil
}

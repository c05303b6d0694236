package watch

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/edgewatch/internal/ir"
)

func TestResolve_Precedence(t *testing.T) {
	r := newFakeResolver()
	generic := func(ir.Condition) (any, error) { return true, nil }
	r.instances["1"] = &fakeInstance{label: "One", generic: generic}
	r.instances["2"] = &fakeInstance{label: "Two"}
	r.define("1", "btn", "Button")
	r.definitions[defKey{"1", "bare"}] = Definition{Kind: "bare", Label: "No callback"}

	tests := []struct {
		name string
		cond ir.Condition
		want ResolutionKind
	}{
		{"definition wins", cond("c", "1", "btn"), ResolvedDefinition},
		{"definition without evaluator falls back", cond("c", "1", "bare"), ResolvedInstance},
		{"unknown kind falls back", cond("c", "1", "other"), ResolvedInstance},
		{"instance without evaluator", cond("c", "2", "btn"), Unresolved},
		{"unknown source", cond("c", "9", "btn"), Unresolved},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(r, tt.cond).Kind)
		})
	}
}

func TestConditionEvaluator_Outcomes(t *testing.T) {
	r := newFakeResolver()
	r.define("1", "btn", "Button")
	sink := &recordingSink{}
	ev := NewConditionEvaluator(r, sink)

	r.set("ok", true)
	out := ev.EvaluateOutcome(cond("ok", "1", "btn"))
	assert.Equal(t, Outcome{Value: true, Status: OutcomeOK, Via: ResolvedDefinition}, out)

	r.set("str", "yes")
	assert.False(t, ev.Evaluate(cond("str", "1", "btn")))

	r.faults["bad"] = errCheckFailed
	out = ev.EvaluateOutcome(cond("bad", "1", "btn"))
	assert.False(t, out.Value)
	assert.True(t, IsEvaluatorFault(out.Err))
	assert.ErrorIs(t, out.Err, errCheckFailed)

	out = ev.EvaluateOutcome(cond("lost", "9", "btn"))
	assert.True(t, IsUnresolved(out.Err))
}

func TestResolutionKind_String(t *testing.T) {
	assert.Equal(t, "definition", ResolvedDefinition.String())
	assert.Equal(t, "instance", ResolvedInstance.String())
	assert.Equal(t, "unresolved", Unresolved.String())
}

package watch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/edgewatch/internal/ir"
)

func TestRegister_SubscribesThenEvaluates(t *testing.T) {
	rig := newTestRig()
	rig.resolver.define("1", "btn", "Button")
	rig.resolver.set("c1", true)

	require.NoError(t, rig.registry.Register(ir.EntrySpec{ID: "e", Conditions: []ir.Condition{cond("c1", "1", "btn")}}))

	assert.Equal(t, []ir.ConditionID{"c1"}, rig.subs.subscribed)
	require.Len(t, rig.passes, 1)
	assert.True(t, rig.passes[0].Filter.IsZero(), "initial pass is unconditional")
	assert.Equal(t, int64(1), rig.passes[0].Seq)
}

func TestRegister_AssignsMissingConditionIDs(t *testing.T) {
	rig := newTestRig()
	rig.resolver.define("1", "btn", "Button")

	spec := ir.EntrySpec{ID: "e", Conditions: []ir.Condition{
		{SourceID: "1", Kind: "btn"},
		{ID: "named", SourceID: "1", Kind: "btn"},
		{SourceID: "1", Kind: "btn"},
	}}
	require.NoError(t, rig.registry.Register(spec))

	entries := rig.registry.Entries()
	require.Len(t, entries, 1)
	ids := []ir.ConditionID{}
	for _, c := range entries[0].Conditions {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []ir.ConditionID{"gen-1", "named", "gen-2"}, ids)
	assert.Empty(t, spec.Conditions[0].ID, "caller's spec is not mutated")
}

func TestRegister_Rejects(t *testing.T) {
	rig := newTestRig()
	require.NoError(t, rig.registry.Register(ir.EntrySpec{ID: "e"}))

	err := rig.registry.Register(ir.EntrySpec{ID: "e"})
	assert.True(t, IsDuplicate(err))

	err = rig.registry.Register(ir.EntrySpec{ID: "f", Conditions: []ir.Condition{
		cond("c1", "1", "btn"), cond("c1", "2", "btn"),
	}})
	assert.True(t, IsDuplicate(err))
	_, ok := rig.registry.Entry("f")
	assert.False(t, ok, "rejected entry is not stored")
	assert.Empty(t, rig.subs.subscribed)

	err = rig.registry.Register(ir.EntrySpec{})
	var we *WatchError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, ErrCodeInvalidEntry, we.Code)
}

func TestDeregister_UnsubscribesAndStopsEvaluation(t *testing.T) {
	rig := newTestRig()
	rig.resolver.define("1", "btn", "Button")
	rig.resolver.set("c1", false)
	require.NoError(t, rig.registry.Register(ir.EntrySpec{ID: "e", Conditions: []ir.Condition{
		cond("c1", "1", "btn"), cond("c2", "1", "btn"),
	}}))

	require.NoError(t, rig.registry.Deregister("e"))
	assert.Equal(t, []ir.ConditionID{"c1", "c2"}, rig.subs.unsubscribed)

	rig.resolver.set("c1", true)
	passes := rig.registry.Notify("1", "btn")
	assert.Empty(t, passes)
	assert.Equal(t, 1, rig.resolver.calls["c1"])
	assert.Empty(t, rig.action.fired)

	assert.True(t, IsUnknownEntry(rig.registry.Deregister("e")))
}

func TestNotify_RegistrationOrderAndIndependence(t *testing.T) {
	rig := newTestRig()
	rig.resolver.define("1", "btn", "Button")
	rig.resolver.set("a1", false)
	rig.resolver.set("b1", false)
	rig.resolver.set("c1", false)

	for _, id := range []string{"b", "a", "c"} {
		require.NoError(t, rig.registry.Register(ir.EntrySpec{
			ID:         ir.EntryID(id),
			Conditions: []ir.Condition{cond(id+"1", "1", "btn")},
		}))
	}

	rig.resolver.set("a1", true)
	rig.resolver.set("b1", true)
	rig.resolver.set("c1", true)
	rig.resolver.faults["a1"] = errCheckFailed

	passes := rig.registry.Notify("1", "btn")
	require.Len(t, passes, 3)
	assert.Equal(t, ir.EntryID("b"), passes[0].EntryID)
	assert.Equal(t, ir.EntryID("a"), passes[1].EntryID)
	assert.Equal(t, ir.EntryID("c"), passes[2].EntryID)
	assert.Equal(t, []ir.EntryID{"b", "c"}, rig.action.fired, "a's fault does not stop c")
}

func TestRegistry_UnresolvedConditionLogsDiagnostic(t *testing.T) {
	rig := newTestRig()
	require.NoError(t, rig.registry.Register(ir.EntrySpec{ID: "e", Conditions: []ir.Condition{cond("c1", "missing", "btn")}}))

	value, evaluated := rig.registry.Value("e")
	assert.True(t, evaluated)
	assert.False(t, value)
	assert.Equal(t, OutcomeUnresolved, rig.lastPass().Outcomes["c1"].Status)
	require.Len(t, rig.sink.lines, 1)
	assert.Equal(t, "feedback(c1)", rig.sink.lines[0].label)
}

func TestRegistry_ValueUnknownEntry(t *testing.T) {
	rig := newTestRig()
	value, evaluated := rig.registry.Value("nope")
	assert.False(t, value)
	assert.False(t, evaluated)
	_, ok := rig.registry.Cached("nope", "c1")
	assert.False(t, ok)
}

func TestNewRegistry_NilCollaborators(t *testing.T) {
	r := NewRegistry(Collaborators{})
	require.NoError(t, r.Register(ir.EntrySpec{ID: "e", Conditions: []ir.Condition{{SourceID: "1", Kind: "btn"}}}))
	assert.NotPanics(t, func() { r.Notify("1", "btn") })
	value, _ := r.Value("e")
	assert.False(t, value)
}

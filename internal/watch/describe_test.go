package watch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/edgewatch/internal/ir"
)

func TestDescribeEntry(t *testing.T) {
	r := newFakeResolver()
	r.define("1", "btn", "Button pressed")

	spec := ir.EntrySpec{ID: "e", Conditions: []ir.Condition{
		cond("c1", "1", "btn"),
		cond("c2", "7", "fader"),
	}}

	assert.Equal(t,
		"Runs on feedbacks Source 1: Button pressed AND 7: fader (undefined).",
		DescribeEntry(r, spec))
	assert.Equal(t, "Runs on feedbacks (none).", DescribeEntry(r, ir.EntrySpec{ID: "x"}))
}

func TestRegistry_Describe(t *testing.T) {
	rig := newTestRig()
	rig.resolver.define("1", "btn", "Button")
	require.NoError(t, rig.registry.Register(ir.EntrySpec{ID: "e", Conditions: []ir.Condition{cond("c1", "1", "btn")}}))

	desc, err := rig.registry.Describe("e")
	require.NoError(t, err)
	assert.Equal(t, "Runs on feedbacks Source 1: Button.", desc)

	_, err = rig.registry.Describe("nope")
	assert.True(t, IsUnknownEntry(err))
}

package compiler

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/edgewatch/internal/ir"
)

func compileWatch(t *testing.T, src, name string) (*ir.EntrySpec, error) {
	t.Helper()
	ctx := cuecontext.New()
	v := ctx.CompileString(src)
	require.NoError(t, v.Err())
	return CompileEntry(v.LookupPath(cue.ParsePath("watch." + name)))
}

func TestCompileEntryBasic(t *testing.T) {
	spec, err := compileWatch(t, `
		watch: porch: {
			conditions: [
				{ id: "c1", source: "lights", kind: "flag", label: "lights on", params: { var: "on" } },
				{ id: "c2", source: "door", kind: "equals", params: { var: "state", value: "open" } },
			]
		}
	`, "porch")
	require.NoError(t, err)

	assert.Equal(t, ir.EntryID("porch"), spec.ID)
	require.Len(t, spec.Conditions, 2)

	c1 := spec.Conditions[0]
	assert.Equal(t, ir.ConditionID("c1"), c1.ID)
	assert.Equal(t, ir.SourceID("lights"), c1.SourceID)
	assert.Equal(t, ir.Kind("flag"), c1.Kind)
	assert.Equal(t, "lights on", c1.Label)
	assert.Equal(t, ir.IRObject{"var": ir.IRString("on")}, c1.Params)

	c2 := spec.Conditions[1]
	assert.Equal(t, ir.ConditionID("c2"), c2.ID)
	assert.Equal(t, ir.IRString("open"), c2.Params["value"])
}

func TestCompileEntryPreservesOrder(t *testing.T) {
	spec, err := compileWatch(t, `
		watch: ordered: conditions: [
			{ id: "z", source: "s", kind: "k" },
			{ id: "a", source: "s", kind: "k" },
			{ id: "m", source: "s", kind: "k" },
		]
	`, "ordered")
	require.NoError(t, err)

	ids := make([]ir.ConditionID, len(spec.Conditions))
	for i, c := range spec.Conditions {
		ids[i] = c.ID
	}
	assert.Equal(t, []ir.ConditionID{"z", "a", "m"}, ids)
}

func TestCompileEntryIDOptional(t *testing.T) {
	spec, err := compileWatch(t, `
		watch: anon: conditions: [{ source: "s", kind: "k" }]
	`, "anon")
	require.NoError(t, err)
	assert.Empty(t, spec.Conditions[0].ID, "IDs are assigned at registration")
	assert.Nil(t, spec.Conditions[0].Params)
}

func TestCompileEntryParamValues(t *testing.T) {
	spec, err := compileWatch(t, `
		watch: p: conditions: [{
			source: "s"
			kind: "k"
			params: {
				n: 42
				ok: true
				list: ["a", 1]
				nested: { x: "y" }
			}
		}]
	`, "p")
	require.NoError(t, err)

	params := spec.Conditions[0].Params
	assert.Equal(t, ir.IRInt(42), params["n"])
	assert.Equal(t, ir.IRBool(true), params["ok"])
	assert.Equal(t, ir.IRArray{ir.IRString("a"), ir.IRInt(1)}, params["list"])
	assert.Equal(t, ir.IRObject{"x": ir.IRString("y")}, params["nested"])
}

func TestCompileEntryErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr string
	}{
		{
			name:    "missing conditions",
			src:     `watch: bad: { label: "x" }`,
			wantErr: "conditions is required",
		},
		{
			name:    "missing source",
			src:     `watch: bad: conditions: [{ kind: "flag" }]`,
			wantErr: "source is required",
		},
		{
			name:    "missing kind",
			src:     `watch: bad: conditions: [{ source: "s" }]`,
			wantErr: "kind is required",
		},
		{
			name:    "float param",
			src:     `watch: bad: conditions: [{ source: "s", kind: "k", params: { x: 1.5 } }]`,
			wantErr: "float values are forbidden",
		},
		{
			name:    "duplicate condition id",
			src:     `watch: bad: conditions: [{ id: "c", source: "s", kind: "k" }, { id: "c", source: "s", kind: "j" }]`,
			wantErr: "duplicate condition id",
		},
		{
			name:    "condition not a struct",
			src:     `watch: bad: conditions: ["nope"]`,
			wantErr: "condition must be a struct",
		},
		{
			name:    "params not a struct",
			src:     `watch: bad: conditions: [{ source: "s", kind: "k", params: "x" }]`,
			wantErr: "params must be a struct",
		},
		{
			name:    "non-string source",
			src:     `watch: bad: conditions: [{ source: 3, kind: "k" }]`,
			wantErr: "must be a string",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compileWatch(t, tt.src, "bad")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCompileErrorHasPosition(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`watch: bad: conditions: [{ source: "s" }]`, cue.Filename("rules.cue"))
	require.NoError(t, v.Err())

	_, err := CompileEntry(v.LookupPath(cue.ParsePath("watch.bad")))
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "conditions[0].kind", ce.Field)
	assert.Contains(t, err.Error(), "rules.cue:1:")
}

func TestCompileErrorWithoutPosition(t *testing.T) {
	err := &CompileError{Field: "watch", Message: "entry name is required"}
	assert.Equal(t, "watch: entry name is required", err.Error())
}

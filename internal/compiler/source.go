package compiler

import (
	"cuelang.org/go/cue"

	"github.com/roach88/edgewatch/internal/ir"
)

// CompileSource parses a CUE value into a SourceSpec.
//
//	source: lights: { label: "Lights", vars: { on: false } }
func CompileSource(v cue.Value) (*ir.SourceSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &ir.SourceSpec{ID: ir.SourceID(lastLabel(v))}
	if spec.ID == "" {
		return nil, &CompileError{Field: "source", Message: "source name is required", Pos: v.Pos()}
	}

	label, err := optionalString(v, "label")
	if err != nil {
		return nil, err
	}
	spec.Label = label

	if vars := v.LookupPath(cue.ParsePath("vars")); vars.Exists() {
		if vars.IncompleteKind() != cue.StructKind {
			return nil, &CompileError{Field: "vars", Message: "vars must be a struct", Pos: vars.Pos()}
		}
		obj, err := compileObject("vars", vars)
		if err != nil {
			return nil, err
		}
		spec.Vars = obj
	}

	return spec, nil
}

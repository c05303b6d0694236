package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/edgewatch/internal/ir"
)

// CompileEntry parses a CUE value into an EntrySpec.
//
// The CUE value should be the watch struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`watch: porch: { conditions: [...] }`)
//	spec, err := CompileEntry(v.LookupPath(cue.ParsePath("watch.porch")))
//
// Conditions keep their declaration order; it is the evaluation order.
func CompileEntry(v cue.Value) (*ir.EntrySpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &ir.EntrySpec{ID: ir.EntryID(lastLabel(v))}
	if spec.ID == "" {
		return nil, &CompileError{Field: "watch", Message: "entry name is required", Pos: v.Pos()}
	}

	condsVal := v.LookupPath(cue.ParsePath("conditions"))
	if !condsVal.Exists() {
		return nil, &CompileError{
			Field:   "conditions",
			Message: "conditions is required",
			Pos:     v.Pos(),
		}
	}

	iter, err := condsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	seen := make(map[ir.ConditionID]int)
	for i := 0; iter.Next(); i++ {
		cond, err := compileCondition(i, iter.Value())
		if err != nil {
			return nil, err
		}
		if cond.ID != "" {
			if prev, dup := seen[cond.ID]; dup {
				return nil, &CompileError{
					Field:   fmt.Sprintf("conditions[%d].id", i),
					Message: fmt.Sprintf("duplicate condition id %q (first used at conditions[%d])", cond.ID, prev),
					Pos:     iter.Value().Pos(),
				}
			}
			seen[cond.ID] = i
		}
		spec.Conditions = append(spec.Conditions, cond)
	}

	return spec, nil
}

// compileCondition parses one element of a conditions list.
func compileCondition(i int, v cue.Value) (ir.Condition, error) {
	field := fmt.Sprintf("conditions[%d]", i)
	var cond ir.Condition

	if v.IncompleteKind() != cue.StructKind {
		return cond, &CompileError{Field: field, Message: "condition must be a struct", Pos: v.Pos()}
	}

	id, err := optionalString(v, "id")
	if err != nil {
		return cond, err
	}
	source, err := optionalString(v, "source")
	if err != nil {
		return cond, err
	}
	if source == "" {
		return cond, &CompileError{Field: field + ".source", Message: "source is required", Pos: v.Pos()}
	}
	kind, err := optionalString(v, "kind")
	if err != nil {
		return cond, err
	}
	if kind == "" {
		return cond, &CompileError{Field: field + ".kind", Message: "kind is required", Pos: v.Pos()}
	}
	label, err := optionalString(v, "label")
	if err != nil {
		return cond, err
	}

	cond = ir.Condition{
		ID:       ir.ConditionID(id),
		SourceID: ir.SourceID(source),
		Kind:     ir.Kind(kind),
		Label:    label,
	}

	if params := v.LookupPath(cue.ParsePath("params")); params.Exists() {
		if params.IncompleteKind() != cue.StructKind {
			return cond, &CompileError{Field: field + ".params", Message: "params must be a struct", Pos: params.Pos()}
		}
		obj, err := compileObject(field+".params", params)
		if err != nil {
			return cond, err
		}
		if len(obj) > 0 {
			cond.Params = obj
		}
	}

	return cond, nil
}

package watch

import (
	"strings"

	"github.com/roach88/edgewatch/internal/ir"
)

// DescribeCondition renders one condition as "<source>: <kind label>".
// Kinds without a definition render as "<kind> (undefined)".
func DescribeCondition(r Resolver, cond ir.Condition) string {
	if r == nil {
		r = emptyResolver{}
	}
	source := string(cond.SourceID)
	if inst, ok := r.Instance(cond.SourceID); ok && inst != nil && inst.Label() != "" {
		source = inst.Label()
	}
	if def, ok := r.Definition(cond.SourceID, cond.Kind); ok && def.Label != "" {
		return source + ": " + def.Label
	}
	return source + ": " + string(cond.Kind) + " (undefined)"
}

// DescribeEntry renders an entry as "Runs on feedbacks A AND B.".
func DescribeEntry(r Resolver, spec ir.EntrySpec) string {
	if len(spec.Conditions) == 0 {
		return "Runs on feedbacks (none)."
	}
	parts := make([]string, len(spec.Conditions))
	for i, cond := range spec.Conditions {
		parts[i] = DescribeCondition(r, cond)
	}
	return "Runs on feedbacks " + strings.Join(parts, " AND ") + "."
}

// Describe renders a registered entry.
func (r *Registry) Describe(id ir.EntryID) (string, error) {
	e, ok := r.index[id]
	if !ok {
		return "", &WatchError{Code: ErrCodeUnknownEntry, Message: "entry not registered", EntryID: id}
	}
	return DescribeEntry(r.collab.Resolver, e.spec), nil
}

package compiler

import (
	"cuelang.org/go/cue"

	"github.com/roach88/edgewatch/internal/ir"
)

// Rules is the compiled content of a rules directory.
type Rules struct {
	Sources []ir.SourceSpec
	Entries []ir.EntrySpec
}

// CompileRules compiles every source.* and watch.* field of a unified CUE
// value, in declaration order.
func CompileRules(v cue.Value) (*Rules, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	rules := &Rules{}

	if sources := v.LookupPath(cue.ParsePath("source")); sources.Exists() {
		iter, err := sources.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			spec, err := CompileSource(iter.Value())
			if err != nil {
				return nil, err
			}
			rules.Sources = append(rules.Sources, *spec)
		}
	}

	if watches := v.LookupPath(cue.ParsePath("watch")); watches.Exists() {
		iter, err := watches.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			spec, err := CompileEntry(iter.Value())
			if err != nil {
				return nil, err
			}
			rules.Entries = append(rules.Entries, *spec)
		}
	}

	return rules, nil
}

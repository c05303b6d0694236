package source

import (
	"github.com/roach88/edgewatch/internal/ir"
	"github.com/roach88/edgewatch/internal/watch"
)

// Built-in condition kinds offered by every instance.
const (
	KindFlag    ir.Kind = "flag"
	KindEquals  ir.Kind = "equals"
	KindPresent ir.Kind = "present"
	KindVar     ir.Kind = "var"
)

func builtinDefinitions(inst *Instance) []watch.Definition {
	return []watch.Definition{
		{
			Kind:  KindFlag,
			Label: "Flag is on",
			Evaluator: func(cond ir.Condition) (any, error) {
				name, err := varParam(cond)
				if err != nil {
					return nil, err
				}
				v, _ := inst.Get(name)
				b, ok := v.(ir.IRBool)
				return ok && bool(b), nil
			},
		},
		{
			Kind:  KindEquals,
			Label: "Variable equals value",
			Evaluator: func(cond ir.Condition) (any, error) {
				name, err := varParam(cond)
				if err != nil {
					return nil, err
				}
				want, ok := cond.Params["value"]
				if !ok {
					return false, nil
				}
				got, ok := inst.Get(name)
				return ok && ir.Equal(got, want), nil
			},
		},
		{
			Kind:  KindPresent,
			Label: "Variable is set",
			Evaluator: func(cond ir.Condition) (any, error) {
				name, err := varParam(cond)
				if err != nil {
					return nil, err
				}
				_, ok := inst.Get(name)
				return ok, nil
			},
		},
		// "var" carries a label for descriptions only; evaluation falls
		// through to the instance's generic evaluator.
		{
			Kind:  KindVar,
			Label: "Variable is truthy",
		},
	}
}

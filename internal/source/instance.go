package source

import (
	"fmt"
	"sync"

	"github.com/roach88/edgewatch/internal/ir"
	"github.com/roach88/edgewatch/internal/watch"
)

// Instance is a live source holding named variables.
//
// Thread-safety: variable access is guarded by a mutex so that hosts may
// update sources from any goroutine while the watch loop reads them.
type Instance struct {
	id    ir.SourceID
	label string

	mu   sync.RWMutex
	vars ir.IRObject
}

// NewInstance creates an instance from a source spec. Vars are copied.
func NewInstance(spec ir.SourceSpec) *Instance {
	vars := make(ir.IRObject, len(spec.Vars))
	for k, v := range spec.Vars {
		vars[k] = v
	}
	label := spec.Label
	if label == "" {
		label = string(spec.ID)
	}
	return &Instance{id: spec.ID, label: label, vars: vars}
}

// ID returns the source ID.
func (i *Instance) ID() ir.SourceID { return i.id }

// Label implements watch.Instance.
func (i *Instance) Label() string { return i.label }

// Get returns a variable's value.
func (i *Instance) Get(name string) (ir.IRValue, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	v, ok := i.vars[name]
	return v, ok
}

// Set stores a variable. Returns true if the value changed.
func (i *Instance) Set(name string, v ir.IRValue) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if old, ok := i.vars[name]; ok && ir.Equal(old, v) {
		return false
	}
	i.vars[name] = v
	return true
}

// Unset removes a variable. Returns true if it existed.
func (i *Instance) Unset(name string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, ok := i.vars[name]; !ok {
		return false
	}
	delete(i.vars, name)
	return true
}

// Vars returns a copy of the current variables.
func (i *Instance) Vars() ir.IRObject {
	i.mu.RLock()
	defer i.mu.RUnlock()
	out := make(ir.IRObject, len(i.vars))
	for k, v := range i.vars {
		out[k] = v
	}
	return out
}

// GenericEvaluator implements watch.Instance: the condition is true when the
// variable named by params.var is truthy.
func (i *Instance) GenericEvaluator() watch.EvaluatorFunc {
	return func(cond ir.Condition) (any, error) {
		name, err := varParam(cond)
		if err != nil {
			return nil, err
		}
		v, ok := i.Get(name)
		return ok && ir.Truthy(v), nil
	}
}

func varParam(cond ir.Condition) (string, error) {
	name := cond.Params.String("var")
	if name == "" {
		return "", fmt.Errorf("condition %s: params.var is required", cond.ID)
	}
	return name, nil
}

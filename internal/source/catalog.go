package source

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/roach88/edgewatch/internal/ir"
	"github.com/roach88/edgewatch/internal/watch"
)

// NotifyFunc receives change notifications. An empty kind means any kind of
// the source may have changed.
type NotifyFunc func(sourceID ir.SourceID, kind ir.Kind)

type defKey struct {
	source ir.SourceID
	kind   ir.Kind
}

// Catalog is the set of known source instances and their definitions.
//
// Thread-safety: all methods are safe for concurrent use. The notifier is
// called without holding the catalog lock, so it may re-enter the catalog.
type Catalog struct {
	mu          sync.RWMutex
	instances   map[ir.SourceID]*Instance
	order       []ir.SourceID
	definitions map[defKey]watch.Definition
	subscribers map[ir.SourceID]int
	notify      NotifyFunc
}

// NewCatalog creates an empty catalog. notify may be nil and set later with
// SetNotifier.
func NewCatalog(notify NotifyFunc) *Catalog {
	return &Catalog{
		instances:   make(map[ir.SourceID]*Instance),
		definitions: make(map[defKey]watch.Definition),
		subscribers: make(map[ir.SourceID]int),
		notify:      notify,
	}
}

// SetNotifier replaces the change notifier.
func (c *Catalog) SetNotifier(fn NotifyFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notify = fn
}

// Add registers a source instance and the built-in kind definitions for it.
// Adding an ID that already exists replaces the instance.
func (c *Catalog) Add(spec ir.SourceSpec) (*Instance, error) {
	if spec.ID == "" {
		return nil, fmt.Errorf("source ID is required")
	}
	inst := NewInstance(spec)

	c.mu.Lock()
	if _, exists := c.instances[spec.ID]; !exists {
		c.order = append(c.order, spec.ID)
	}
	c.instances[spec.ID] = inst
	for _, def := range builtinDefinitions(inst) {
		c.definitions[defKey{spec.ID, def.Kind}] = def
	}
	c.mu.Unlock()

	slog.Debug("source added", "source_id", spec.ID, "vars", len(spec.Vars))
	return inst, nil
}

// Define registers (or replaces) a kind definition on a source.
func (c *Catalog) Define(sourceID ir.SourceID, def watch.Definition) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.definitions[defKey{sourceID, def.Kind}] = def
}

// Undefine removes a kind definition from a source.
func (c *Catalog) Undefine(sourceID ir.SourceID, kind ir.Kind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.definitions, defKey{sourceID, kind})
}

// Get returns a source instance.
func (c *Catalog) Get(id ir.SourceID) (*Instance, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	inst, ok := c.instances[id]
	return inst, ok
}

// Sources returns source IDs in the order they were added.
func (c *Catalog) Sources() []ir.SourceID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]ir.SourceID(nil), c.order...)
}

// Kinds returns the kinds defined for a source, sorted.
func (c *Catalog) Kinds(id ir.SourceID) []ir.Kind {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var kinds []ir.Kind
	for k := range c.definitions {
		if k.source == id {
			kinds = append(kinds, k.kind)
		}
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Instance implements watch.Resolver.
func (c *Catalog) Instance(id ir.SourceID) (watch.Instance, bool) {
	inst, ok := c.Get(id)
	if !ok {
		return nil, false
	}
	return inst, true
}

// Definition implements watch.Resolver.
func (c *Catalog) Definition(id ir.SourceID, kind ir.Kind) (watch.Definition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	def, ok := c.definitions[defKey{id, kind}]
	return def, ok
}

// Subscribe implements watch.Subscriptions.
func (c *Catalog) Subscribe(cond ir.Condition) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers[cond.SourceID]++
}

// Unsubscribe implements watch.Subscriptions.
func (c *Catalog) Unsubscribe(cond ir.Condition) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subscribers[cond.SourceID] <= 1 {
		delete(c.subscribers, cond.SourceID)
		return
	}
	c.subscribers[cond.SourceID]--
}

// Subscribers returns the number of watched conditions bound to a source.
func (c *Catalog) Subscribers(id ir.SourceID) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subscribers[id]
}

// Set stores a source variable and, if the value changed, notifies that any
// condition on the source may have changed.
func (c *Catalog) Set(id ir.SourceID, name string, v ir.IRValue) error {
	inst, ok := c.Get(id)
	if !ok {
		return fmt.Errorf("unknown source %q", id)
	}
	if !inst.Set(name, v) {
		return nil
	}
	c.emit(id, "")
	return nil
}

// Unset removes a source variable, notifying on change.
func (c *Catalog) Unset(id ir.SourceID, name string) error {
	inst, ok := c.Get(id)
	if !ok {
		return fmt.Errorf("unknown source %q", id)
	}
	if inst.Unset(name) {
		c.emit(id, "")
	}
	return nil
}

// Touch reports that conditions of one kind on a source may have changed,
// without touching any variable.
func (c *Catalog) Touch(id ir.SourceID, kind ir.Kind) {
	c.emit(id, kind)
}

func (c *Catalog) emit(id ir.SourceID, kind ir.Kind) {
	c.mu.RLock()
	fn := c.notify
	c.mu.RUnlock()
	if fn != nil {
		fn(id, kind)
	}
}

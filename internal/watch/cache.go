package watch

import "github.com/roach88/edgewatch/internal/ir"

// ConditionCache holds the last known value of each condition of one entry.
//
// There is no eviction: the cache lives exactly as long as its entry.
// A missing key is distinct from a cached false and always forces evaluation.
type ConditionCache struct {
	values map[ir.ConditionID]bool
}

// NewConditionCache creates an empty cache sized for n conditions.
func NewConditionCache(n int) *ConditionCache {
	return &ConditionCache{values: make(map[ir.ConditionID]bool, n)}
}

// Get returns the cached value and whether one exists.
func (c *ConditionCache) Get(id ir.ConditionID) (value bool, ok bool) {
	value, ok = c.values[id]
	return value, ok
}

// Set stores a freshly evaluated value.
func (c *ConditionCache) Set(id ir.ConditionID, value bool) {
	c.values[id] = value
}

// Len returns the number of conditions with a cached value.
func (c *ConditionCache) Len() int {
	return len(c.values)
}

// Snapshot returns a copy of the cached values.
func (c *ConditionCache) Snapshot() map[ir.ConditionID]bool {
	out := make(map[ir.ConditionID]bool, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

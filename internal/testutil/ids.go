package testutil

import (
	"fmt"
	"sync"

	"github.com/roach88/edgewatch/internal/ir"
)

// SequenceIDGenerator returns "<prefix>-1", "<prefix>-2", ... for conditions
// registered without an ID.
//
// This keeps generated condition IDs stable across runs so golden traces
// compare byte-for-byte. Satisfies watch.IDGenerator.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SequenceIDGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceIDGenerator creates a generator with the given prefix.
//
// If prefix is empty, IDs are "cond-1", "cond-2", ...
func NewSequenceIDGenerator(prefix string) *SequenceIDGenerator {
	if prefix == "" {
		prefix = "cond"
	}
	return &SequenceIDGenerator{prefix: prefix}
}

// Generate returns the next ID in sequence.
func (g *SequenceIDGenerator) Generate() ir.ConditionID {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return ir.ConditionID(fmt.Sprintf("%s-%d", g.prefix, g.n))
}

// Reset restarts the sequence at 1.
func (g *SequenceIDGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}

package watch

import (
	"github.com/google/uuid"
	"github.com/roach88/edgewatch/internal/ir"
)

// IDGenerator assigns condition IDs to conditions registered without one.
// Implemented by UUIDv7Generator (production) and testutil.SequenceIDGenerator (tests).
type IDGenerator interface {
	Generate() ir.ConditionID
}

// UUIDv7Generator generates time-sortable UUIDv7 condition IDs.
//
// Thread-safety: stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() ir.ConditionID {
	return ir.ConditionID(uuid.Must(uuid.NewV7()).String())
}

package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/edgewatch/internal/ir"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestEntry creates an entry whose conditions watch one flag each.
func createTestEntry(id string, sources ...string) ir.EntrySpec {
	spec := ir.EntrySpec{ID: ir.EntryID(id)}
	for i, src := range sources {
		spec.Conditions = append(spec.Conditions, ir.Condition{
			ID:       ir.ConditionID(id + "-" + string(rune('a'+i))),
			SourceID: ir.SourceID(src),
			Kind:     "flag",
			Params:   ir.IRObject{"var": ir.IRString("on")},
		})
	}
	return spec
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/roach88/edgewatch/internal/ir"
)

// StoredEntry is a persisted entry spec.
type StoredEntry struct {
	Spec        ir.EntrySpec
	Fingerprint string
	Seq         int64
}

// SaveEntry upserts an entry spec. The spec is stored as canonical JSON with
// its fingerprint. Re-saving an entry moves it to the given seq, so an edit
// (remove+add) lands at the end of LoadEntries order.
func (s *Store) SaveEntry(ctx context.Context, spec ir.EntrySpec, seq int64) error {
	data, err := ir.MarshalCanonical(ir.EntryObject(spec))
	if err != nil {
		return fmt.Errorf("save entry %s: %w", spec.ID, err)
	}
	fp, err := ir.EntryFingerprint(spec)
	if err != nil {
		return fmt.Errorf("save entry %s: %w", spec.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO entries (entry_id, fingerprint, spec, seq, watcher_version, ir_version)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(entry_id) DO UPDATE SET
			fingerprint = excluded.fingerprint,
			spec = excluded.spec,
			seq = excluded.seq,
			watcher_version = excluded.watcher_version,
			ir_version = excluded.ir_version
	`,
		string(spec.ID),
		fp,
		string(data),
		seq,
		ir.WatcherVersion,
		ir.SchemaVersion,
	)
	if err != nil {
		return fmt.Errorf("save entry %s: %w", spec.ID, err)
	}
	return nil
}

// DeleteEntry removes an entry. Reports whether a row existed. Firings for
// the entry are kept.
func (s *Store) DeleteEntry(ctx context.Context, id ir.EntryID) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE entry_id = ?`, string(id))
	if err != nil {
		return false, fmt.Errorf("delete entry %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete entry %s: %w", id, err)
	}
	return n > 0, nil
}

// LoadEntries returns every stored entry in registration order
// (ORDER BY seq ASC, entry_id COLLATE BINARY ASC).
//
// Returns an empty slice (not nil) for an empty store. A stored fingerprint
// that does not match the stored spec is an error.
func (s *Store) LoadEntries(ctx context.Context) ([]StoredEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT entry_id, fingerprint, spec, seq
		FROM entries
		ORDER BY seq ASC, entry_id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []StoredEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

func scanEntry(rows *sql.Rows) (StoredEntry, error) {
	var (
		id   string
		fp   string
		data string
		seq  int64
	)
	if err := rows.Scan(&id, &fp, &data, &seq); err != nil {
		return StoredEntry{}, fmt.Errorf("scan entry: %w", err)
	}

	var spec ir.EntrySpec
	if err := json.Unmarshal([]byte(data), &spec); err != nil {
		return StoredEntry{}, fmt.Errorf("decode entry %s: %w", id, err)
	}
	if string(spec.ID) != id {
		return StoredEntry{}, fmt.Errorf("entry %s: stored spec has id %q", id, spec.ID)
	}

	got, err := ir.EntryFingerprint(spec)
	if err != nil {
		return StoredEntry{}, fmt.Errorf("entry %s: %w", id, err)
	}
	if got != fp {
		return StoredEntry{}, fmt.Errorf("entry %s: fingerprint mismatch (stored %s, computed %s)", id, fp, got)
	}

	return StoredEntry{Spec: spec, Fingerprint: fp, Seq: seq}, nil
}

package store

import (
	"context"
	"fmt"

	"github.com/roach88/edgewatch/internal/ir"
)

// Firing is one recorded rising edge.
type Firing struct {
	ID          int64      `json:"id"`
	EntryID     ir.EntryID `json:"entry_id"`
	Fingerprint string     `json:"fingerprint"`
	Seq         int64      `json:"seq"`
}

// RecordFiring appends a firing. Uses ON CONFLICT DO NOTHING on
// (entry_id, seq) for idempotency; the assigned row ID is returned, or 0 if
// the firing was already recorded.
func (s *Store) RecordFiring(ctx context.Context, entryID ir.EntryID, fingerprint string, seq int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO firings (entry_id, fingerprint, seq)
		VALUES (?, ?, ?)
		ON CONFLICT(entry_id, seq) DO NOTHING
	`, string(entryID), fingerprint, seq)
	if err != nil {
		return 0, fmt.Errorf("record firing %s: %w", entryID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("record firing %s: %w", entryID, err)
	}
	if n == 0 {
		return 0, nil
	}
	return res.LastInsertId()
}

// ReadFirings returns recorded firings ordered by seq ASC, id ASC. An empty
// entryID returns firings for every entry.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) ReadFirings(ctx context.Context, entryID ir.EntryID) ([]Firing, error) {
	query := `
		SELECT id, entry_id, fingerprint, seq
		FROM firings
		ORDER BY seq ASC, id ASC
	`
	args := []any{}
	if entryID != "" {
		query = `
			SELECT id, entry_id, fingerprint, seq
			FROM firings
			WHERE entry_id = ?
			ORDER BY seq ASC, id ASC
		`
		args = append(args, string(entryID))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query firings: %w", err)
	}
	defer rows.Close()

	firings := []Firing{}
	for rows.Next() {
		var (
			f  Firing
			id string
		)
		if err := rows.Scan(&f.ID, &id, &f.Fingerprint, &f.Seq); err != nil {
			return nil, fmt.Errorf("scan firing: %w", err)
		}
		f.EntryID = ir.EntryID(id)
		firings = append(firings, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate firings: %w", err)
	}
	return firings, nil
}

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/edgewatch/internal/ir"
)

func TestRecordAndReadFirings(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	id1, err := s.RecordFiring(ctx, "porch", "fp1", 3)
	require.NoError(t, err)
	assert.NotZero(t, id1)

	_, err = s.RecordFiring(ctx, "alarm", "fp2", 5)
	require.NoError(t, err)
	_, err = s.RecordFiring(ctx, "porch", "fp1", 8)
	require.NoError(t, err)

	all, err := s.ReadFirings(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int64{3, 5, 8}, []int64{all[0].Seq, all[1].Seq, all[2].Seq})
	assert.Equal(t, ir.EntryID("alarm"), all[1].EntryID)
	assert.Equal(t, "fp2", all[1].Fingerprint)

	porch, err := s.ReadFirings(ctx, "porch")
	require.NoError(t, err)
	require.Len(t, porch, 2)
	assert.Equal(t, id1, porch[0].ID)
	assert.Equal(t, int64(8), porch[1].Seq)
}

func TestRecordFiring_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	first, err := s.RecordFiring(ctx, "porch", "fp", 3)
	require.NoError(t, err)
	assert.NotZero(t, first)

	again, err := s.RecordFiring(ctx, "porch", "fp", 3)
	require.NoError(t, err)
	assert.Zero(t, again, "duplicate firing should be ignored")

	firings, err := s.ReadFirings(ctx, "porch")
	require.NoError(t, err)
	assert.Len(t, firings, 1)
}

func TestReadFirings_Empty(t *testing.T) {
	s := createTestStore(t)

	firings, err := s.ReadFirings(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, firings)
	assert.Empty(t, firings)
}

func TestFirings_SurviveEntryDeletion(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	require.NoError(t, s.SaveEntry(ctx, createTestEntry("porch", "lights"), 1))
	_, err := s.RecordFiring(ctx, "porch", "fp", 2)
	require.NoError(t, err)

	_, err = s.DeleteEntry(ctx, "porch")
	require.NoError(t, err)

	firings, err := s.ReadFirings(ctx, "porch")
	require.NoError(t, err)
	assert.Len(t, firings, 1)
}

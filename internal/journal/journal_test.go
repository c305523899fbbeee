package journal

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s
}

func TestRecordAndRecent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, DirectionUpload, "a.txt", 100, StatusCompleted, ""))
	require.NoError(t, s.Record(ctx, DirectionDownload, "b.pdf", 2048, StatusCompleted, ""))
	require.NoError(t, s.Record(ctx, DirectionUpload, "c.bin", 50, StatusFailed, "Failed to upload chunk 2 of 3"))

	entries, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// Newest first.
	assert.Equal(t, "c.bin", entries[0].FileName)
	assert.Equal(t, StatusFailed, entries[0].Status)
	assert.Equal(t, "Failed to upload chunk 2 of 3", entries[0].Detail)
	assert.False(t, entries[0].CreatedAt.IsZero(), "timestamps parse")

	assert.Equal(t, "b.pdf", entries[1].FileName)
	assert.Equal(t, DirectionDownload, entries[1].Direction)
	assert.Equal(t, int64(2048), entries[1].Size)

	assert.Equal(t, "a.txt", entries[2].FileName)
}

func TestRecent_Limit(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Record(ctx, DirectionUpload, "f.txt", 1, StatusCompleted, ""))
	}

	entries, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestRecent_Empty(t *testing.T) {
	s := testStore(t)

	entries, err := s.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRecord_RejectsBadDirection(t *testing.T) {
	s := testStore(t)

	err := s.Record(context.Background(), "sideways", "f.txt", 1, StatusCompleted, "")
	assert.Error(t, err, "schema CHECK constraint rejects unknown directions")
}

func TestOpen_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	s, err := Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, s.Record(context.Background(), DirectionUpload, "a.txt", 1, StatusCompleted, ""))
	require.NoError(t, s.Close())

	// Reopen: migrations are idempotent and data survives.
	s, err = Open(path, nil)
	require.NoError(t, err)

	defer s.Close()

	entries, err := s.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

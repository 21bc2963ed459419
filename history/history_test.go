package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/feedprep/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_RecordAndRecent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, err := Open(ctx, filepath.Join(t.TempDir(), "db", "history.db"))
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, store.Close())
	}()

	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	results := []model.FolderResult{
		{
			RunID: "run-1", Folder: "/data/HR", App: "HR", Status: model.StatusProcessed,
			Uploaded: true, InputRows: 3, ProcessedRows: 3, OutputRows: 3,
			UploadPath: "/data/HR/Archive/hr_upload_file_2024_03_01_09.00.csv",
			StartedAt:  base, FinishedAt: base.Add(time.Second),
		},
		{
			RunID: "run-1", Folder: "/data/IT", App: "IT", Status: model.StatusSkipped,
			Err:       errors.New("no input file"),
			StartedAt: base.Add(2 * time.Second), FinishedAt: base.Add(3 * time.Second),
		},
	}
	for _, r := range results {
		id, err := store.Record(ctx, r)
		require.NoError(t, err)
		assert.NotEmpty(t, id)
	}

	entries, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "IT", entries[0].App)
	assert.Equal(t, model.StatusSkipped, entries[0].Status)
	assert.Equal(t, "no input file", entries[0].Error)
	assert.False(t, entries[0].Uploaded)

	assert.Equal(t, "HR", entries[1].App)
	assert.True(t, entries[1].Uploaded)
	assert.Equal(t, 3, entries[1].OutputRows)
	assert.True(t, base.Equal(entries[1].StartedAt))
	assert.Equal(t, time.Second, entries[1].FinishedAt.Sub(entries[1].StartedAt))
}

func TestStore_RecentLimit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, err := Open(ctx, ":memory:")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, store.Close())
	}()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, err := store.Record(ctx, model.FolderResult{
			RunID: "run", Folder: "f", App: "app", Status: model.StatusProcessed,
			InputRows: i, StartedAt: start.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	entries, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 4, entries[0].InputRows)
	assert.Equal(t, 3, entries[1].InputRows)

	entries, err = store.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 5)
}

func TestStore_Closed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, err := Open(ctx, ":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	_, err = store.Record(ctx, model.FolderResult{})
	assert.ErrorIs(t, err, ErrClosed)
	_, err = store.Recent(ctx, 1)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestStore_ReopenKeepsRows(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")

	store, err := Open(ctx, path)
	require.NoError(t, err)
	_, err = store.Record(ctx, model.FolderResult{RunID: "r", Folder: "f", App: "a", Status: model.StatusErrored})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = Open(ctx, path)
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, store.Close())
	}()
	entries, err := store.Recent(ctx, 5)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.StatusErrored, entries[0].Status)
}

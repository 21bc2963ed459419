package feedprep

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const archiveTS = "2024_05_10_15.30"

func decompressFile(t *testing.T, path string, compression CompressionType) string {
	t.Helper()
	f, err := os.Open(path) //nolint:gosec // Test file
	require.NoError(t, err)
	defer func() {
		_ = f.Close()
	}()
	reader, closeReader, err := newDecompressReader(f, compression)
	require.NoError(t, err)
	defer func() {
		_ = closeReader()
	}()
	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	return string(data)
}

func TestArchiveOriginal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		compression CompressionType
		wantName    string
	}{
		{name: "plain copy", compression: CompressionNone, wantName: "Original_2024_05_10_15.30.csv"},
		{name: "gzip", compression: CompressionGZ, wantName: "Original_2024_05_10_15.30.csv.gz"},
		{name: "xz", compression: CompressionXZ, wantName: "Original_2024_05_10_15.30.csv.xz"},
		{name: "zstd", compression: CompressionZSTD, wantName: "Original_2024_05_10_15.30.csv.zst"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			folder := t.TempDir()
			src := filepath.Join(folder, "Users.CSV")
			writeFile(t, src, "Name\nAnn\n")
			archiveDir := filepath.Join(folder, "Archive")

			got, err := ArchiveOriginal(src, archiveDir, archiveTS, tt.compression)
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(archiveDir, tt.wantName), got)
			assert.Equal(t, "Name\nAnn\n", decompressFile(t, got, tt.compression))
			assert.FileExists(t, src, "the original is copied, not moved")
		})
	}
}

func TestArchiveOriginal_NeverOverwrites(t *testing.T) {
	t.Parallel()

	folder := t.TempDir()
	src := filepath.Join(folder, "users.csv")
	archiveDir := filepath.Join(folder, "Archive")

	writeFile(t, src, "first")
	first, err := ArchiveOriginal(src, archiveDir, archiveTS, CompressionNone)
	require.NoError(t, err)
	writeFile(t, src, "second")
	second, err := ArchiveOriginal(src, archiveDir, archiveTS, CompressionNone)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, "first", readFile(t, first))
	assert.Equal(t, "second", readFile(t, second))
	assert.Equal(t, filepath.Join(archiveDir, "Original_2024_05_10_15.30_1.csv"), second)
}

func TestArchiveOriginal_CompressedInputKeepsFullExtension(t *testing.T) {
	t.Parallel()

	folder := t.TempDir()
	src := filepath.Join(folder, "users.csv.gz")
	writeFile(t, src, "compressed bytes")

	got, err := ArchiveOriginal(src, filepath.Join(folder, "Archive"), archiveTS, CompressionNone)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(folder, "Archive", "Original_2024_05_10_15.30.csv.gz"), got)
	assert.Equal(t, "compressed bytes", readFile(t, got))
}

func TestArchiveOriginal_MissingSource(t *testing.T) {
	t.Parallel()

	folder := t.TempDir()
	_, err := ArchiveOriginal(filepath.Join(folder, "gone.csv"), filepath.Join(folder, "Archive"), archiveTS, CompressionNone)
	assert.ErrorIs(t, err, ErrExport)
}

func TestMoveIntoArchive(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		compression CompressionType
		wantName    string
	}{
		{name: "rename", compression: CompressionNone, wantName: "Processed_2024_05_10_15.30.csv"},
		{name: "zstd", compression: CompressionZSTD, wantName: "Processed_2024_05_10_15.30.csv.zst"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			folder := t.TempDir()
			src := filepath.Join(folder, ProcessedName(archiveTS))
			writeFile(t, src, "Name\nAnn\n")
			archiveDir := filepath.Join(folder, "Archive")

			got, err := MoveIntoArchive(src, archiveDir, tt.compression)
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(archiveDir, tt.wantName), got)
			assert.NoFileExists(t, src)
			assert.Equal(t, "Name\nAnn\n", decompressFile(t, got, tt.compression))
		})
	}
}

func TestRetentionCutoff(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 10, 15, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC), RetentionCutoff(now, 0))
	assert.Equal(t, time.Date(2024, 5, 7, 0, 0, 0, 0, time.UTC), RetentionCutoff(now, 3))
	assert.Equal(t, time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC), RetentionCutoff(now, 10))
}

func TestSweep(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	now := time.Date(2024, 5, 10, 15, 30, 0, 0, time.Local)
	cutoff := RetentionCutoff(now, 3)

	files := map[string]time.Time{
		"old.csv":      cutoff.Add(-time.Minute),
		"ancient.csv":  cutoff.AddDate(-1, 0, 0),
		"boundary.csv": cutoff,
		"recent.csv":   now.Add(-time.Hour),
	}
	for name, mtime := range files {
		touch(t, filepath.Join(dir, name), mtime)
	}
	subdir := filepath.Join(dir, "nested")
	touch(t, filepath.Join(subdir, "old_inside.csv"), cutoff.AddDate(0, 0, -5))
	require.NoError(t, os.Chtimes(subdir, cutoff.AddDate(0, 0, -5), cutoff.AddDate(0, 0, -5)))

	logger, logs := observedLogger()
	result := Sweep(context.Background(), dir, 3, now, logger)

	deleted := append([]string(nil), result.Deleted...)
	sort.Strings(deleted)
	assert.Equal(t, []string{filepath.Join(dir, "ancient.csv"), filepath.Join(dir, "old.csv")}, deleted)
	assert.Equal(t, 2, result.Kept)
	assert.Zero(t, result.Failed())
	assert.Equal(t, cutoff, result.Cutoff)

	assert.FileExists(t, filepath.Join(dir, "boundary.csv"))
	assert.FileExists(t, filepath.Join(dir, "recent.csv"))
	assert.DirExists(t, subdir)
	assert.FileExists(t, filepath.Join(subdir, "old_inside.csv"))
	assert.DirExists(t, dir)
	assert.Len(t, logs.FilterMessage("deleted expired file").All(), 2)
}

func TestSweep_MissingDir(t *testing.T) {
	t.Parallel()

	result := Sweep(context.Background(), filepath.Join(t.TempDir(), "Archive"), 1, time.Now(), nil)
	assert.Empty(t, result.Deleted)
	assert.Empty(t, result.Errors)
}

func TestSweep_Cancelled(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	touch(t, filepath.Join(dir, "old.csv"), time.Now().AddDate(0, 0, -30))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := Sweep(ctx, dir, 1, time.Now(), nil)
	assert.Empty(t, result.Deleted)
	require.Len(t, result.Errors, 1)
	assert.ErrorIs(t, result.Errors[0], ErrRetention)
	assert.FileExists(t, filepath.Join(dir, "old.csv"))
}

package feedprep

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// archiveDirName is the per-folder archive directory
const archiveDirName = "Archive"

// folderArchiveDir returns <folder>/Archive.
func folderArchiveDir(folder string) string {
	return filepath.Join(folder, archiveDirName)
}

// ArchiveOriginal copies src into archiveDir as Original_<ts><ext>,
// compressed when compression is set, and returns the archived path.
// src itself is left in place.
func ArchiveOriginal(src, archiveDir, ts string, compression CompressionType) (string, error) {
	ec := NewErrorContext("archive original", src)
	if err := os.MkdirAll(archiveDir, 0o750); err != nil {
		return "", ec.Wrap(ErrExport, err)
	}
	dst := uniquePath(archiveDir, OriginalName(ts, inputExtension(src))+compression.Extension())
	if err := copyCompressed(src, dst, compression); err != nil {
		return "", ec.WithDetails("target: " + dst).Wrap(ErrExport, err)
	}
	return dst, nil
}

// MoveIntoArchive moves src into archiveDir keeping its name and returns
// the new path. With compression the file is written compressed and the
// source removed afterwards.
func MoveIntoArchive(src, archiveDir string, compression CompressionType) (string, error) {
	ec := NewErrorContext("move into archive", src)
	if err := os.MkdirAll(archiveDir, 0o750); err != nil {
		return "", ec.Wrap(ErrExport, err)
	}
	dst := uniquePath(archiveDir, filepath.Base(src)+compression.Extension())

	if compression == CompressionNone {
		if err := os.Rename(src, dst); err == nil {
			return dst, nil
		}
		// Rename fails across devices; fall back to copy and remove.
	}
	if err := copyCompressed(src, dst, compression); err != nil {
		return "", ec.WithDetails("target: " + dst).Wrap(ErrExport, err)
	}
	if err := os.Remove(src); err != nil {
		return "", ec.WithDetails("remove source").Wrap(ErrExport, err)
	}
	return dst, nil
}

// SweepResult reports what a retention sweep did
type SweepResult struct {
	Dir     string
	Cutoff  time.Time
	Deleted []string
	Kept    int
	Errors  []error
}

// Failed returns the number of files that could not be deleted.
func (r SweepResult) Failed() int {
	return len(r.Errors)
}

// RetentionCutoff returns local midnight of now minus days.
func RetentionCutoff(now time.Time, days int) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location()).AddDate(0, 0, -days)
}

// Sweep deletes the regular files directly inside dir whose modification
// time is strictly before RetentionCutoff(now, days). Subdirectories and
// the directory itself are never removed. A failed deletion is logged and
// recorded, and the sweep moves on to the next file. A missing dir is not
// an error.
func Sweep(ctx context.Context, dir string, days int, now time.Time, logger *zap.Logger) SweepResult {
	if logger == nil {
		logger = zap.NewNop()
	}
	result := SweepResult{Dir: dir, Cutoff: RetentionCutoff(now, days)}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			wrapped := NewErrorContext("sweep", dir).Wrap(ErrRetention, err)
			result.Errors = append(result.Errors, wrapped)
			logger.Error("failed to list directory for retention", zap.String("dir", dir), zap.Error(err))
		}
		return result
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, NewErrorContext("sweep", dir).Wrap(ErrRetention, ctx.Err()))
			break
		}
		if !entry.Type().IsRegular() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			continue // Removed while sweeping
		}
		if !info.ModTime().Before(result.Cutoff) {
			result.Kept++
			continue
		}
		if err := os.Remove(path); err != nil {
			wrapped := NewErrorContext("delete", path).
				WithDetails(fmt.Sprintf("modified %s", info.ModTime().Format(time.RFC3339))).
				Wrap(ErrRetention, err)
			result.Errors = append(result.Errors, wrapped)
			logger.Error("failed to delete expired file", zap.String("file", path), zap.Error(err))
			continue
		}
		result.Deleted = append(result.Deleted, path)
		logger.Info("deleted expired file", zap.String("file", path), zap.Time("modified", info.ModTime()))
	}

	logger.Info("retention sweep finished",
		zap.String("dir", dir),
		zap.Time("cutoff", result.Cutoff),
		zap.Int("deleted", len(result.Deleted)),
		zap.Int("kept", result.Kept),
		zap.Int("failed", result.Failed()))
	return result
}

package feedprep

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"sort"
	"strings"

	"github.com/nao1215/feedprep/domain/model"
	"go.uber.org/zap"
)

// errPanic marks a folder whose pipeline panicked
var errPanic = errors.New("pipeline panicked")

// FolderProcessor runs the pipeline for one application folder.
type FolderProcessor interface {
	ProcessFolder(ctx context.Context, folder string) model.FolderResult
}

// Runner walks the configured root folders and processes every
// application folder in isolation.
type Runner struct {
	Settings  *model.Settings
	Processor FolderProcessor
	Logger    *zap.Logger
}

// NewRunner creates a Runner.
func NewRunner(settings *model.Settings, processor FolderProcessor, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{Settings: settings, Processor: processor, Logger: logger}
}

// Run processes every folder that passes AppFilter, one after another,
// and returns the aggregated counts. A folder that fails, even by
// panicking, never stops the others. The summary is logged whatever
// happened.
func (r *Runner) Run(ctx context.Context) model.Summary {
	var summary model.Summary
	defer func() {
		r.Logger.Info("run finished",
			zap.Int("processed", summary.Processed),
			zap.Int("skipped", summary.Skipped),
			zap.Int("errored", summary.Errored),
			zap.Int("uploaded", summary.Uploaded),
			zap.Int("folders", summary.Total()))
	}()

	folders := r.AppFolders()
	r.Logger.Info("run started", zap.Int("folders", len(folders)), zap.String("app_filter", r.Settings.AppFilter))
	for _, folder := range folders {
		if err := ctx.Err(); err != nil {
			r.Logger.Warn("run cancelled", zap.Error(err))
			break
		}
		summary.Add(r.processIsolated(ctx, folder))
	}
	return summary
}

// AppFolders lists the application folders below every root folder,
// sorted by path and filtered by AppFilter. Hidden directories and the
// execution log directory are left out. Unreadable roots are logged and
// skipped.
func (r *Runner) AppFolders() []string {
	logDir := filepath.Clean(r.Settings.LogDir)
	var folders []string
	for _, root := range r.Settings.Folders() {
		entries, err := os.ReadDir(root)
		if err != nil {
			r.Logger.Error("failed to read root folder", zap.String("root", root), zap.Error(err))
			continue
		}
		for _, entry := range entries {
			if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
				continue
			}
			path := filepath.Join(root, entry.Name())
			if filepath.Clean(path) == logDir {
				continue
			}
			if !r.Settings.MatchesApp(entry.Name()) {
				r.Logger.Debug("folder filtered out", zap.String("folder", path))
				continue
			}
			folders = append(folders, path)
		}
	}
	sort.Strings(folders)
	return folders
}

// processIsolated turns a panic into an errored result.
func (r *Runner) processIsolated(ctx context.Context, folder string) (result model.FolderResult) {
	defer func() {
		if rec := recover(); rec != nil {
			r.Logger.Error("folder pipeline panicked",
				zap.String("folder", folder),
				zap.Any("panic", rec),
				zap.ByteString("stack", debug.Stack()))
			result = model.FolderResult{
				Folder: folder,
				App:    filepath.Base(folder),
				Status: model.StatusErrored,
				Err:    fmt.Errorf("%w: %v", errPanic, rec),
			}
		}
	}()
	return r.Processor.ProcessFolder(ctx, folder)
}

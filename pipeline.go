package feedprep

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nao1215/feedprep/domain/model"
	"go.uber.org/zap"
)

const (
	// configFileName is the per-folder configuration file
	configFileName = "config.json"
	// monarchDirName holds the input for folders with isMonarch set
	monarchDirName = "Monarch"
)

// HistoryRecorder persists folder outcomes.
type HistoryRecorder interface {
	Record(ctx context.Context, r model.FolderResult) (string, error)
}

// Pipeline processes one application folder at a time.
type Pipeline struct {
	Settings  *model.Settings
	Uploader  Uploader
	Converter XLSConverter
	// History is optional.
	History HistoryRecorder
	// Logger is the execution logger. Folder loggers forward warnings to it.
	Logger *zap.Logger
	// Now is the clock, time.Now by default.
	Now func() time.Time
	// RunID tags every FolderResult of one run.
	RunID string
	// Verbose enables debug records in log files.
	Verbose bool
}

// NewPipeline returns a Pipeline wired with the command collaborators
// named in settings.
func NewPipeline(settings *model.Settings, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		Settings:  settings,
		Uploader:  &CommandUploader{Path: settings.UploaderPath, Args: settings.UploaderArgs},
		Converter: &CommandConverter{Command: settings.XLSConverter},
		Logger:    logger,
		Now:       time.Now,
		RunID:     uuid.NewString(),
	}
}

// folderRun carries the per-folder state between stages.
type folderRun struct {
	result      model.FolderResult
	logger      *zap.Logger
	cfg         *model.AppConfig
	compression CompressionType
	audit       AuditFormat
	ts          string
}

// ProcessFolder runs every stage for folder and reports the outcome.
//
// Configuration, selection and import failures skip the folder without
// writing anything. Export failures abort the remaining stages and mark the
// folder as errored. Upload failures are logged and leave the folder
// processed with Uploaded false. The retention sweep and the history record
// run whatever the outcome.
func (p *Pipeline) ProcessFolder(ctx context.Context, folder string) model.FolderResult {
	now := p.now()
	app := filepath.Base(folder)
	run := &folderRun{
		result: model.FolderResult{
			RunID:      p.RunID,
			Folder:     folder,
			App:        app,
			ArchiveDir: folderArchiveDir(folder),
			StartedAt:  now,
		},
		ts: Timestamp(now),
	}

	logger, closeLog, err := NewFolderLogger(folder, app, now.Format(DateLayout), p.Verbose, p.Logger)
	if err != nil {
		p.logger().Warn("failed to open folder log, using execution log", zap.String("folder", folder), zap.Error(err))
		logger = p.logger().With(zap.String("app", app))
		closeLog = func() error { return nil }
	}
	run.logger = logger
	defer func() {
		_ = closeLog() // Nothing left to log to
	}()

	logger.Info("processing folder", zap.String("folder", folder), zap.String("run_id", p.RunID))
	if err := p.runStages(ctx, run); err != nil {
		run.result.Err = err
		run.result.Status = statusFor(err)
		if run.result.Status == model.StatusSkipped {
			logger.Warn("folder skipped", zap.Error(err))
		} else {
			logger.Error("folder errored", zap.Error(err))
		}
	} else {
		run.result.Status = model.StatusProcessed
	}

	p.sweep(ctx, run)
	run.result.FinishedAt = p.now()
	p.record(ctx, run)

	logger.Info("folder finished",
		zap.String("status", string(run.result.Status)),
		zap.Bool("uploaded", run.result.Uploaded),
		zap.Int("input_rows", run.result.InputRows),
		zap.Int("processed_rows", run.result.ProcessedRows),
		zap.Int("output_rows", run.result.OutputRows),
		zap.Duration("duration", run.result.Duration()))
	return run.result
}

// runStages returns the first error that ends the folder.
func (p *Pipeline) runStages(ctx context.Context, run *folderRun) error {
	folder := run.result.Folder
	if err := p.loadConfig(run); err != nil {
		return err
	}

	inputDir := folder
	if run.cfg.IsMonarch.Bool() {
		inputDir = filepath.Join(folder, monarchDirName)
	}
	path, err := SelectInputFile(ctx, inputDir, SupportedInputExtensions, p.Converter, run.logger)
	if err != nil {
		return err
	}
	run.result.OriginalPath = path

	rs, err := ImportFile(path, run.cfg)
	if err != nil {
		return err
	}
	run.result.InputRows = rs.Len()
	run.logger.Info("imported input", zap.String("file", path), zap.Int("rows", rs.Len()), zap.Int("columns", rs.Width()))

	archived, err := ArchiveOriginal(path, run.result.ArchiveDir, run.ts, run.compression)
	if err != nil {
		return err
	}
	run.result.ArchivedPath = archived
	run.logger.Info("archived original", zap.String("file", archived))

	shaped := Shape(rs, ShapeParamsFromConfig(run.cfg), run.logger)
	expandParams := ExpandParamsFromConfig(run.cfg)
	if run.cfg.BooleanMode() {
		if collapsed, ok := CollapseFlags(shaped, run.cfg.BooleanColumnList, run.cfg.BooleanColumnValue, run.logger); ok {
			shaped = collapsed
			expandParams.GroupTypes = []string{RoleColumn}
			expandParams.GroupDelimiter = flagGroupDelimiter
		}
	}
	run.result.ProcessedRows = shaped.Len()

	processedPath := uniquePath(folder, ProcessedName(run.ts))
	if err := WriteCSV(processedPath, shaped); err != nil {
		return err
	}
	run.result.ProcessedPath = processedPath

	out, err := Expand(shaped, expandParams, run.logger)
	if err != nil {
		return NewErrorContext("expand", processedPath).WithFolder(folder).Wrap(ErrExport, err)
	}
	run.result.OutputRows = out.Len()

	uploadPath := uniquePath(run.result.ArchiveDir, UploadName(p.sourceID(run), run.ts))
	if err := WriteCSV(uploadPath, out); err != nil {
		return err
	}
	run.result.UploadPath = uploadPath
	run.logger.Info("wrote upload snapshot", zap.String("file", uploadPath), zap.Int("rows", out.Len()))

	if run.audit != AuditNone {
		auditPath := uniquePath(run.result.ArchiveDir, strings.TrimSuffix(filepath.Base(uploadPath), extCSV)+run.audit.Extension())
		if err := WriteAudit(auditPath, out, run.audit); err != nil {
			run.logger.Warn("failed to write audit copy", zap.String("file", auditPath), zap.Error(err))
		}
	}

	moved, err := MoveIntoArchive(processedPath, run.result.ArchiveDir, run.compression)
	if err != nil {
		return err
	}
	run.result.ProcessedPath = moved

	p.upload(ctx, run)
	return nil
}

// loadConfig reads config.json and resolves the run-wide settings.
func (p *Pipeline) loadConfig(run *folderRun) error {
	path := filepath.Join(run.result.Folder, configFileName)
	ec := NewErrorContext("load config", path).WithFolder(run.result.Folder)

	cfg, err := model.LoadAppConfig(path)
	if err != nil {
		return ec.Wrap(ErrConfig, err)
	}
	compression, err := ParseCompressionType(p.Settings.ArchiveCompression)
	if err != nil {
		return ec.WithDetails("archiveCompression").Wrap(ErrConfig, err)
	}
	audit, err := ParseAuditFormat(p.Settings.AuditFormat)
	if err != nil {
		return ec.WithDetails("auditFormat").Wrap(ErrConfig, err)
	}
	run.cfg = cfg
	run.compression = compression
	run.audit = audit
	return nil
}

// upload hands the snapshot to the uploader when the folder asks for it.
func (p *Pipeline) upload(ctx context.Context, run *folderRun) {
	if !run.cfg.IsUpload.Bool() {
		return
	}
	if run.result.OutputRows == 0 {
		run.logger.Warn("upload snapshot is empty, skipping upload", zap.String("file", run.result.UploadPath))
		return
	}
	if p.Uploader == nil {
		run.logger.Error("no uploader configured", zap.String("file", run.result.UploadPath))
		return
	}
	req := UploadRequest{
		FilePath:     run.result.UploadPath,
		SourceID:     run.cfg.SourceID,
		BaseURL:      p.Settings.BaseURL(),
		ClientID:     p.Settings.ClientID,
		ClientSecret: p.Settings.ClientSecret,
	}
	if err := p.Uploader.Upload(ctx, req); err != nil {
		run.logger.Error("upload failed", zap.String("file", req.FilePath), zap.Error(err))
		return
	}
	run.result.Uploaded = true
	run.logger.Info("uploaded", zap.String("file", req.FilePath), zap.String("source", req.SourceID))
}

// sweep applies retention to the archive and the folder log directory.
func (p *Pipeline) sweep(ctx context.Context, run *folderRun) {
	if !p.Settings.EnableFileDeletion.Bool() {
		return
	}
	days := p.Settings.DaysToKeepFiles.Int()
	now := p.now()
	for _, dir := range []string{run.result.ArchiveDir, folderLogDir(run.result.Folder)} {
		Sweep(ctx, dir, days, now, run.logger)
	}
}

func (p *Pipeline) record(ctx context.Context, run *folderRun) {
	if p.History == nil {
		return
	}
	if _, err := p.History.Record(ctx, run.result); err != nil {
		run.logger.Warn("failed to record run history", zap.Error(err))
	}
}

func (p *Pipeline) sourceID(run *folderRun) string {
	if run.cfg.SourceID != "" {
		return run.cfg.SourceID
	}
	return run.result.App
}

func (p *Pipeline) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}

func (p *Pipeline) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}

// statusFor maps a stage error to the folder status.
func statusFor(err error) model.FolderStatus {
	switch {
	case err == nil:
		return model.StatusProcessed
	case errors.Is(err, ErrConfig), errors.Is(err, ErrNoInputFile), errors.Is(err, ErrImport):
		return model.StatusSkipped
	default:
		return model.StatusErrored
	}
}

package feedprep

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log level names written to log files.
const (
	levelInfo    = "INFO"
	levelWarning = "WARNING"
	levelError   = "ERROR"
	levelDebug   = "DEBUG"
)

// levelEncoder renders zap levels as INFO, WARNING and ERROR.
func levelEncoder(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	switch {
	case l >= zapcore.ErrorLevel:
		enc.AppendString(levelError)
	case l == zapcore.WarnLevel:
		enc.AppendString(levelWarning)
	case l == zapcore.InfoLevel:
		enc.AppendString(levelInfo)
	default:
		enc.AppendString(levelDebug)
	}
}

// logEncoderConfig emits one JSON object per line with time, level and message.
func logEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "time"
	cfg.LevelKey = "level"
	cfg.MessageKey = "message"
	cfg.CallerKey = zapcore.OmitKey
	cfg.StacktraceKey = zapcore.OmitKey
	cfg.NameKey = zapcore.OmitKey
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = levelEncoder
	return cfg
}

// zapLevel returns the minimum level written.
func zapLevel(verbose bool) zapcore.Level {
	if verbose {
		return zapcore.DebugLevel
	}
	return zapcore.InfoLevel
}

// openLogCore opens path in append mode and returns a JSON core writing to it.
func openLogCore(path string, level zapcore.LevelEnabler) (zapcore.Core, func() error, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640) //nolint:gosec // Log path is derived from configured folders
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(logEncoderConfig()), zapcore.AddSync(f), level)
	return core, f.Close, nil
}

// NewExecutionLogger creates the run-level logger. It appends to the
// execution log file under logDir and mirrors records to stderr.
func NewExecutionLogger(logDir, date string, verbose bool) (*zap.Logger, func() error, error) {
	level := zapLevel(verbose)
	fileCore, closer, err := openLogCore(filepath.Join(logDir, "Execution_"+date+".log"), level)
	if err != nil {
		return nil, nil, err
	}
	consoleEncoder := logEncoderConfig()
	consoleCore := zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEncoder), zapcore.Lock(os.Stderr), level)

	logger := zap.New(zapcore.NewTee(fileCore, consoleCore))
	return logger, func() error {
		_ = logger.Sync() // Sync on stderr fails on some terminals
		return closer()
	}, nil
}

// NewFolderLogger creates the per-folder logger writing to
// <folder>/Logs/<app>_<date>.log. Warnings and errors are also forwarded
// to parent so the execution log records them.
func NewFolderLogger(folder, app, date string, verbose bool, parent *zap.Logger) (*zap.Logger, func() error, error) {
	fileCore, closer, err := openLogCore(filepath.Join(folderLogDir(folder), app+"_"+date+".log"), zapLevel(verbose))
	if err != nil {
		return nil, nil, err
	}
	core := fileCore
	if parent != nil {
		if forwarded, err := zapcore.NewIncreaseLevelCore(parent.Core(), zapcore.WarnLevel); err == nil {
			core = zapcore.NewTee(fileCore, forwarded)
		}
	}
	logger := zap.New(core).With(zap.String("app", app))
	return logger, func() error {
		_ = logger.Sync()
		return closer()
	}, nil
}

// folderLogDir is the per-folder log directory.
func folderLogDir(folder string) string {
	return filepath.Join(folder, "Logs")
}

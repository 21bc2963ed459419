package feedprep

import (
	"errors"
	"fmt"
	"strings"
)

// Error taxonomy for folder pipelines. Stages wrap one of these with %w so
// callers can classify failures with errors.Is.
var (
	// ErrConfig indicates missing or invalid settings or config.json; the folder is skipped
	ErrConfig = errors.New("feedprep: configuration error")

	// ErrNoInputFile indicates that no supported input file was found; the folder is skipped
	ErrNoInputFile = errors.New("feedprep: no input file")

	// ErrImport indicates the input file could not be read; the folder is skipped
	ErrImport = errors.New("feedprep: import failed")

	// ErrExport indicates a snapshot could not be written; the folder aborts
	ErrExport = errors.New("feedprep: export failed")

	// ErrUpload indicates the upload collaborator failed or could not be invoked
	ErrUpload = errors.New("feedprep: upload failed")

	// ErrRetention indicates an archived file could not be deleted
	ErrRetention = errors.New("feedprep: retention failed")

	// ErrUnsupportedFormat indicates an input or audit format that cannot be handled
	ErrUnsupportedFormat = errors.New("feedprep: unsupported file format")
)

// ErrorContext provides context for where an error occurred
type ErrorContext struct {
	Operation string
	FilePath  string
	Folder    string
	Details   string
}

// NewErrorContext creates a new error context
func NewErrorContext(operation, filePath string) *ErrorContext {
	return &ErrorContext{
		Operation: operation,
		FilePath:  filePath,
	}
}

// WithFolder adds the application folder to the error
func (ec *ErrorContext) WithFolder(folder string) *ErrorContext {
	ec.Folder = folder
	return ec
}

// WithDetails adds details to the error context
func (ec *ErrorContext) WithDetails(details string) *ErrorContext {
	ec.Details = details
	return ec
}

// Wrap creates an error that matches kind with errors.Is and carries the
// context and the underlying cause.
func (ec *ErrorContext) Wrap(kind, cause error) error {
	var parts []string
	parts = append(parts, ec.Operation+" failed")

	if ec.Folder != "" {
		parts = append(parts, "folder: "+ec.Folder)
	}

	if ec.FilePath != "" {
		parts = append(parts, "file: "+ec.FilePath)
	}

	if ec.Details != "" {
		parts = append(parts, "details: "+ec.Details)
	}

	context := strings.Join(parts, ", ")
	if cause != nil {
		return fmt.Errorf("%w: %s: %w", kind, context, cause)
	}
	return fmt.Errorf("%w: %s", kind, context)
}

package model

import (
	"fmt"
	"time"
)

// FolderStatus is the outcome of one folder's pipeline.
type FolderStatus string

const (
	// StatusProcessed means the upload snapshot was produced
	StatusProcessed FolderStatus = "processed"
	// StatusSkipped means the folder had no usable config or input
	StatusSkipped FolderStatus = "skipped"
	// StatusErrored means a stage failed after processing had started
	StatusErrored FolderStatus = "errored"
)

// FolderResult is the per-folder execution context returned by the
// pipeline. It is created when a folder starts and aggregated by the caller.
type FolderResult struct {
	RunID  string
	Folder string
	App    string
	Status FolderStatus
	// Uploaded is true when the upload collaborator reported success.
	Uploaded bool

	InputRows     int
	ProcessedRows int
	OutputRows    int

	OriginalPath  string
	ArchivedPath  string
	ProcessedPath string
	UploadPath    string
	ArchiveDir    string

	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration returns the wall time spent on the folder.
func (r FolderResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// ErrorMessage returns the error text or "".
func (r FolderResult) ErrorMessage() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Summary counts folder outcomes for one run.
type Summary struct {
	Processed int
	Skipped   int
	Errored   int
	Uploaded  int
	Results   []FolderResult
}

// Add aggregates one folder result.
func (s *Summary) Add(r FolderResult) {
	switch r.Status {
	case StatusProcessed:
		s.Processed++
	case StatusSkipped:
		s.Skipped++
	default:
		s.Errored++
	}
	if r.Uploaded {
		s.Uploaded++
	}
	s.Results = append(s.Results, r)
}

// Total returns the number of folders seen.
func (s *Summary) Total() int {
	return len(s.Results)
}

// String renders the counts in one line.
func (s *Summary) String() string {
	return fmt.Sprintf("processed=%d skipped=%d errored=%d uploaded=%d", s.Processed, s.Skipped, s.Errored, s.Uploaded)
}

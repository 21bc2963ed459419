// Package history stores folder run outcomes in a SQLite database.
//
// Every folder processed by a run becomes one row of the folder_runs table,
// so operators can answer "when did this application last upload, and how
// many rows did it send" without digging through log files.
//
// Usage:
//
//	store, err := history.Open(ctx, "history.db")
//	if err != nil { ... }
//	defer store.Close()
//	err = store.Record(ctx, result)
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/nao1215/feedprep/domain/model"
	_ "modernc.org/sqlite" // Registers the "sqlite" database/sql driver
)

// DriverName is the database/sql driver used for the history file
const DriverName = "sqlite"

// DefaultLimit is used by Recent when limit is not positive
const DefaultLimit = 20

// timeLayout keeps lexicographic order equal to chronological order
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrClosed is returned by operations on a closed Store
var ErrClosed = errors.New("history: store is closed")

const createTableQuery = `CREATE TABLE IF NOT EXISTS folder_runs (
	id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	folder TEXT NOT NULL,
	app TEXT NOT NULL,
	status TEXT NOT NULL,
	uploaded INTEGER NOT NULL DEFAULT 0,
	input_rows INTEGER NOT NULL DEFAULT 0,
	processed_rows INTEGER NOT NULL DEFAULT 0,
	output_rows INTEGER NOT NULL DEFAULT 0,
	upload_path TEXT NOT NULL DEFAULT '',
	error TEXT NOT NULL DEFAULT '',
	started_at TEXT NOT NULL,
	finished_at TEXT NOT NULL
)`

const insertQuery = `INSERT INTO folder_runs (
	id, run_id, folder, app, status, uploaded, input_rows, processed_rows,
	output_rows, upload_path, error, started_at, finished_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const recentQuery = `SELECT id, run_id, folder, app, status, uploaded, input_rows,
	processed_rows, output_rows, upload_path, error, started_at, finished_at
FROM folder_runs ORDER BY started_at DESC, rowid DESC LIMIT ?`

// Entry is one stored folder outcome
type Entry struct {
	ID            string
	RunID         string
	Folder        string
	App           string
	Status        model.FolderStatus
	Uploaded      bool
	InputRows     int
	ProcessedRows int
	OutputRows    int
	UploadPath    string
	Error         string
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Store is a SQLite backed run history.
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at path and makes sure the
// folder_runs table exists. Use ":memory:" for a throwaway store.
func Open(ctx context.Context, path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}
	db, err := sql.Open(DriverName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// A single connection keeps ":memory:" databases alive and serialises writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, createTableQuery); err != nil {
		_ = db.Close() // Ignore close error since we're already returning an error
		return nil, fmt.Errorf("failed to create folder_runs table: %w", err)
	}
	return &Store{db: db}, nil
}

// Record stores r under a new id and returns the id.
func (s *Store) Record(ctx context.Context, r model.FolderResult) (string, error) {
	if s.db == nil {
		return "", ErrClosed
	}
	id := uuid.NewString()
	uploaded := 0
	if r.Uploaded {
		uploaded = 1
	}
	_, err := s.db.ExecContext(ctx, insertQuery,
		id, r.RunID, r.Folder, r.App, string(r.Status), uploaded,
		r.InputRows, r.ProcessedRows, r.OutputRows, r.UploadPath, r.ErrorMessage(),
		formatTime(r.StartedAt), formatTime(r.FinishedAt))
	if err != nil {
		return "", fmt.Errorf("failed to record folder run %s: %w", r.Folder, err)
	}
	return id, nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := s.db.QueryContext(ctx, recentQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query folder runs: %w", err)
	}
	defer func() {
		_ = rows.Close() // Read-only cursor
	}()

	var entries []Entry
	for rows.Next() {
		var (
			e                 Entry
			status            string
			uploaded          int
			started, finished string
		)
		if err := rows.Scan(&e.ID, &e.RunID, &e.Folder, &e.App, &status, &uploaded,
			&e.InputRows, &e.ProcessedRows, &e.OutputRows, &e.UploadPath, &e.Error,
			&started, &finished); err != nil {
			return nil, fmt.Errorf("failed to scan folder run: %w", err)
		}
		e.Status = model.FolderStatus(status)
		e.Uploaded = uploaded != 0
		e.StartedAt = parseTime(started)
		e.FinishedAt = parseTime(finished)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read folder runs: %w", err)
	}
	return entries, nil
}

// Close closes the database. Calling Close twice is a no-op.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

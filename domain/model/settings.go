package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultBaseURLTemplate builds the upload base URL from the tenant
	DefaultBaseURLTemplate = "https://%s.api.identitynow.com"
	// DefaultXLSConverter is the command used to turn .xls into .xlsx
	DefaultXLSConverter = "soffice"
)

// Settings is the global settings.json (or settings.yaml) file.
type Settings struct {
	Tenant             string     `json:"tenant" yaml:"tenant"`
	ClientID           string     `json:"clientId" yaml:"clientId"`
	ClientSecret       string     `json:"clientSecret" yaml:"clientSecret"`
	RootFolders        StringList `json:"rootFolders" yaml:"rootFolders"`
	RootFolder         string     `json:"rootFolder" yaml:"rootFolder"`
	EnableFileDeletion FlexBool   `json:"enableFileDeletion" yaml:"enableFileDeletion"`
	DaysToKeepFiles    FlexInt    `json:"DaysToKeepFiles" yaml:"DaysToKeepFiles"`
	AppFilter          string     `json:"AppFilter" yaml:"AppFilter"`

	// UploaderPath is the upload utility executable.
	UploaderPath string `json:"uploaderPath" yaml:"uploaderPath"`
	// UploaderArgs overrides the argument templates passed to the uploader.
	UploaderArgs []string `json:"uploaderArgs" yaml:"uploaderArgs"`
	// BaseURLTemplate is a fmt template receiving the tenant.
	BaseURLTemplate string `json:"baseURLTemplate" yaml:"baseURLTemplate"`
	// LogDir holds the execution logs. Defaults to <first root>/Logs.
	LogDir string `json:"logDir" yaml:"logDir"`
	// HistoryDB is the SQLite run history file. Empty disables history.
	HistoryDB string `json:"historyDB" yaml:"historyDB"`
	// ArchiveCompression is "", "gz", "xz" or "zst".
	ArchiveCompression string `json:"archiveCompression" yaml:"archiveCompression"`
	// AuditFormat is "", "parquet" or "xlsx".
	AuditFormat string `json:"auditFormat" yaml:"auditFormat"`
	// XLSConverter is the spreadsheet conversion command.
	XLSConverter string `json:"xlsConverter" yaml:"xlsConverter"`
}

// LoadSettings reads a settings file. Files ending in .yaml or .yml are
// decoded as YAML, anything else as JSON. Relative paths inside the file
// are resolved against the directory holding it.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Settings path is provided by the operator
	if err != nil {
		return nil, err
	}

	var s Settings
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &s)
	default:
		err = json.Unmarshal(data, &s)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
	}

	s.resolvePaths(filepath.Dir(path))
	s.applyDefaults()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Settings) resolvePaths(base string) {
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	for i, folder := range s.RootFolders {
		s.RootFolders[i] = resolve(folder)
	}
	s.RootFolder = resolve(s.RootFolder)
	s.LogDir = resolve(s.LogDir)
	s.HistoryDB = resolve(s.HistoryDB)
}

func (s *Settings) applyDefaults() {
	if s.BaseURLTemplate == "" {
		s.BaseURLTemplate = DefaultBaseURLTemplate
	}
	if s.XLSConverter == "" {
		s.XLSConverter = DefaultXLSConverter
	}
	if s.LogDir == "" {
		if folders := s.Folders(); len(folders) > 0 {
			s.LogDir = filepath.Join(folders[0], "Logs")
		}
	}
	s.ArchiveCompression = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s.ArchiveCompression), "."))
	s.AuditFormat = strings.ToLower(strings.TrimSpace(s.AuditFormat))
}

// Validate checks the settings needed before any folder runs.
func (s *Settings) Validate() error {
	if len(s.Folders()) == 0 {
		return fmt.Errorf("%w: rootFolders is empty", ErrInvalidConfig)
	}
	if s.DaysToKeepFiles < 0 {
		return fmt.Errorf("%w: DaysToKeepFiles must not be negative, got %d", ErrInvalidConfig, s.DaysToKeepFiles)
	}
	switch s.ArchiveCompression {
	case "", "gz", "xz", "zst", "zstd":
	default:
		return fmt.Errorf("%w: unsupported archiveCompression %q", ErrInvalidConfig, s.ArchiveCompression)
	}
	switch s.AuditFormat {
	case "", "parquet", "xlsx":
	default:
		return fmt.Errorf("%w: unsupported auditFormat %q", ErrInvalidConfig, s.AuditFormat)
	}
	if strings.Count(s.BaseURLTemplate, "%s") != 1 {
		return fmt.Errorf("%w: baseURLTemplate must contain exactly one %%s", ErrInvalidConfig)
	}
	return nil
}

// Folders returns rootFolders followed by rootFolder, without duplicates.
func (s *Settings) Folders() []string {
	seen := make(map[string]bool)
	var out []string
	for _, f := range append(append([]string{}, s.RootFolders...), s.RootFolder) {
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

// BaseURL builds the upload base URL for the tenant.
func (s *Settings) BaseURL() string {
	return fmt.Sprintf(s.BaseURLTemplate, s.Tenant)
}

// MatchesApp reports whether folder name passes AppFilter.
// The match is a case-insensitive substring test; an empty filter matches all.
func (s *Settings) MatchesApp(name string) bool {
	filter := strings.TrimSpace(s.AppFilter)
	if filter == "" {
		return true
	}
	return strings.Contains(strings.ToLower(name), strings.ToLower(filter))
}

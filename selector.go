package feedprep

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Input file extensions
const (
	// extCSV is the CSV file extension
	extCSV = ".csv"
	// extTXT is the delimited text file extension
	extTXT = ".txt"
	// extXLS is the legacy Excel extension, converted before import
	extXLS = ".xls"
	// extXLSX is the Excel XLSX file extension
	extXLSX = ".xlsx"
)

// SupportedInputExtensions lists the extensions SelectInputFile accepts.
var SupportedInputExtensions = []string{extCSV, extTXT, extXLS, extXLSX}

// XLSConverter turns a legacy .xls workbook into .xlsx and returns the new path.
type XLSConverter interface {
	ConvertToXLSX(ctx context.Context, xlsPath string) (string, error)
}

// candidate is a file eligible for selection
type candidate struct {
	path    string
	name    string
	modTime time.Time
}

// SelectInputFile returns the file in dir to process.
//
// Only top-level regular files whose extension (case-insensitive) is in
// exts, optionally followed by .gz, .xz or .zst, are considered; lock files, hidden files and leftover Processed
// snapshots are ignored. The file with the latest modification time wins;
// equal times are broken by the lexicographically smallest file name.
//
// When exactly one candidate is an .xls file it is converted to .xlsx,
// the .xls is removed, and the converted file is returned.
func SelectInputFile(ctx context.Context, dir string, exts []string, converter XLSConverter, logger *zap.Logger) (string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	candidates, err := listCandidates(dir, exts)
	if err != nil {
		return "", NewErrorContext("select input", dir).Wrap(ErrNoInputFile, err)
	}
	if len(candidates) == 0 {
		return "", NewErrorContext("select input", dir).
			WithDetails("accepted extensions: " + strings.Join(exts, ", ")).
			Wrap(ErrNoInputFile, nil)
	}

	var xls []candidate
	for _, c := range candidates {
		if strings.EqualFold(filepath.Ext(c.name), extXLS) {
			xls = append(xls, c)
		}
	}
	switch {
	case len(xls) == 1 && converter != nil:
		return convertXLS(ctx, xls[0].path, converter, logger)
	case len(xls) == 1:
		logger.Warn("no xls converter configured, leaving file as is", zap.String("file", xls[0].path))
	case len(xls) > 1:
		logger.Warn("more than one xls file found, skipping conversion", zap.Int("files", len(xls)))
	}

	chosen := newestCandidate(candidates)
	logger.Info("selected input file", zap.String("file", chosen.path), zap.Time("modified", chosen.modTime))
	return chosen.path, nil
}

func listCandidates(dir string, exts []string) ([]candidate, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	accepted := make(map[string]bool, len(exts))
	for _, ext := range exts {
		accepted["."+strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}

	var candidates []candidate
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() || isIgnoredInput(name) {
			continue
		}
		base, _ := compressionFromName(name)
		if !accepted[strings.ToLower(filepath.Ext(base))] {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue // Removed between ReadDir and Info
		}
		candidates = append(candidates, candidate{
			path:    filepath.Join(dir, name),
			name:    name,
			modTime: info.ModTime(),
		})
	}
	return candidates, nil
}

// isIgnoredInput filters editor lock files, hidden files and our own snapshots.
func isIgnoredInput(name string) bool {
	return strings.HasPrefix(name, ".") ||
		strings.HasPrefix(name, "~$") ||
		strings.HasPrefix(name, processedPrefix)
}

// newestCandidate orders by modification time, newest first, then by name.
func newestCandidate(candidates []candidate) candidate {
	sorted := make([]candidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].modTime.Equal(sorted[j].modTime) {
			return sorted[i].modTime.After(sorted[j].modTime)
		}
		return sorted[i].name < sorted[j].name
	})
	return sorted[0]
}

func convertXLS(ctx context.Context, path string, converter XLSConverter, logger *zap.Logger) (string, error) {
	converted, err := converter.ConvertToXLSX(ctx, path)
	if err != nil {
		return "", NewErrorContext("convert xls", path).Wrap(ErrImport, err)
	}
	if err := os.Remove(path); err != nil {
		logger.Warn("failed to remove converted xls file", zap.String("file", path), zap.Error(err))
	}
	logger.Info("converted xls input", zap.String("from", path), zap.String("to", converted))
	return converted, nil
}

// CommandConverter converts workbooks with an office suite in headless mode.
type CommandConverter struct {
	// Command is the executable, soffice by default.
	Command string
}

// ConvertToXLSX runs "<command> --headless --convert-to xlsx --outdir <dir> <file>".
func (c *CommandConverter) ConvertToXLSX(ctx context.Context, xlsPath string) (string, error) {
	dir := filepath.Dir(xlsPath)
	cmd := commandContext(ctx, c.Command, "--headless", "--convert-to", "xlsx", "--outdir", dir, xlsPath)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("%s: %w: %s", c.Command, err, strings.TrimSpace(string(out)))
	}
	target := strings.TrimSuffix(xlsPath, filepath.Ext(xlsPath)) + extXLSX
	if _, err := os.Stat(target); err != nil {
		return "", fmt.Errorf("converted file not found: %w", err)
	}
	return target, nil
}

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestVersionCmd(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "feedprep dev\n", out)
}

func TestRunAndHistoryCmd(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "feeds", "HR", "config.json"), `{"dropColumns": "Email", "disableField": "Status", "disableValue": "Inactive"}`)
	writeTestFile(t, filepath.Join(dir, "feeds", "HR", "users.csv"), "FirstName,Email,Status\nAnn,ann@example.com,Active\nBob,bob@example.com,Inactive\n")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "feeds", "CRM"), 0o750))
	settingsPath := filepath.Join(dir, "settings.yaml")
	writeTestFile(t, settingsPath, "tenant: acme\nrootFolders:\n  - feeds\nhistoryDB: state/history.db\nlogDir: logs\n")

	out, err := execute(t, "run", "--settings", settingsPath)
	require.NoError(t, err)
	assert.Equal(t, "processed=1 skipped=1 errored=0 uploaded=0\n", out)

	logs, err := filepath.Glob(filepath.Join(dir, "logs", "Execution_*.log"))
	require.NoError(t, err)
	assert.Len(t, logs, 1)
	uploads, err := filepath.Glob(filepath.Join(dir, "feeds", "HR", "Archive", "HR_upload_file_*.csv"))
	require.NoError(t, err)
	assert.Len(t, uploads, 1)

	out, err = execute(t, "history", "--settings", settingsPath, "--limit", "5")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "STARTED"))
	assert.Contains(t, out, "processed")
	assert.Contains(t, out, "skipped")
}

func TestRunCmd_AppFilter(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "feeds", "HR", "config.json"), `{}`)
	writeTestFile(t, filepath.Join(dir, "feeds", "HR", "users.csv"), "Name\nAnn\n")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "feeds", "CRM"), 0o750))
	settingsPath := filepath.Join(dir, "settings.json")
	writeTestFile(t, settingsPath, `{"tenant": "acme", "rootFolder": "feeds"}`)

	out, err := execute(t, "run", "--settings", settingsPath, "--app", "hr")
	require.NoError(t, err)
	assert.Equal(t, "processed=1 skipped=0 errored=0 uploaded=0\n", out)
}

func TestRunCmd_InvalidSettings(t *testing.T) {
	t.Parallel()

	settingsPath := filepath.Join(t.TempDir(), "settings.json")
	writeTestFile(t, settingsPath, `{"tenant": "acme"}`)

	_, err := execute(t, "run", "--settings", settingsPath)
	assert.Error(t, err)
}

func TestHistoryCmd_Disabled(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "feeds"), 0o750))
	settingsPath := filepath.Join(dir, "settings.json")
	writeTestFile(t, settingsPath, `{"rootFolders": ["feeds"]}`)

	_, err := execute(t, "history", "--settings", settingsPath)
	assert.ErrorContains(t, err, "historyDB is not set")
}

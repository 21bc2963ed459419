package feedprep

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nao1215/feedprep/domain/model"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// mustRowSet builds a RowSet from a header and string rows.
func mustRowSet(t *testing.T, header []string, rows ...[]string) *model.RowSet {
	t.Helper()
	rs, err := model.NewRowSetFromStrings(header, rows)
	require.NoError(t, err)
	return rs
}

// observedLogger records every entry at debug level and above.
func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

// warnings returns the messages logged at warn level.
func warnings(logs *observer.ObservedLogs) []string {
	var messages []string
	for _, entry := range logs.FilterLevelExact(zapcore.WarnLevel).All() {
		messages = append(messages, entry.Message)
	}
	return messages
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path) //nolint:gosec // Test file
	require.NoError(t, err)
	return string(data)
}

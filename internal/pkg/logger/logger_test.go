package logger

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), "level %q", tt.in)
	}
}

func TestNew_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	l := New(Writer(Options{File: path, MaxSizeMB: 1}), "warn")

	assert.False(t, l.Enabled(context.Background(), slog.LevelInfo))
	l.Info("dropped")
	l.Warn("summary excluded records", "excluded", 2)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(data, &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "summary excluded records", entry["msg"])
	assert.Equal(t, float64(2), entry["excluded"])
}

func TestWriter_SharedByLoggers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	w := Writer(Options{File: path, MaxSizeMB: 1})

	New(w, "info").Info("from process")
	slog.New(slog.NewJSONHandler(w, nil)).Info("from request log")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "from process")
	assert.Contains(t, lines[1], "from request log")
}

func TestWriter_StdoutWithoutFile(t *testing.T) {
	assert.Equal(t, os.Stdout, Writer(Options{}))
}

package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		" WARN ":  zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"info":    zapcore.InfoLevel,
		"bogus":   zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestNewWritesJSONToFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "ytw.log")
	logger, err := New(Options{Level: "debug", File: path})
	require.NoError(t, err)

	logger.Debug("hello", zap.String(FieldDownloadID, "abc"))
	_ = logger.Sync()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	line := strings.TrimSpace(string(raw))
	assert.Contains(t, line, `"msg":"hello"`)
	assert.Contains(t, line, `"download_id":"abc"`)
}

func TestNewRespectsLevel(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ytw.log")
	logger, err := New(Options{Level: "warn", File: path})
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("kept")
	_ = logger.Sync()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "dropped")
	assert.Contains(t, string(raw), "kept")
}

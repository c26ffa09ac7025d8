package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureOutput redirects logger output to a buffer and restores the
// defaults when the test finishes.
func captureOutput(t *testing.T, level, format string) *bytes.Buffer {
	t.Helper()
	buf := new(bytes.Buffer)
	InitWithWriter(buf, level, format)
	t.Cleanup(func() {
		InitWithWriter(os.Stderr, "INFO", "text")
	})
	return buf
}

func TestLevelFiltering(t *testing.T) {
	t.Run("DebugShowsAll", func(t *testing.T) {
		buf := captureOutput(t, "DEBUG", "text")
		Debug("debug message")
		Info("info message")
		out := buf.String()
		assert.Contains(t, out, "debug message")
		assert.Contains(t, out, "info message")
	})

	t.Run("WarnHidesInfo", func(t *testing.T) {
		buf := captureOutput(t, "WARN", "text")
		Debug("debug message")
		Info("info message")
		Warn("warn message")
		Error("error message")
		out := buf.String()
		assert.NotContains(t, out, "debug message")
		assert.NotContains(t, out, "info message")
		assert.Contains(t, out, "warn message")
		assert.Contains(t, out, "error message")
	})

	t.Run("InvalidLevelIgnored", func(t *testing.T) {
		captureOutput(t, "INFO", "text")
		SetLevel("chatty")
		assert.True(t, Enabled(LevelInfo))
		assert.False(t, Enabled(LevelDebug))
	})
}

func TestJSONFormat(t *testing.T) {
	buf := captureOutput(t, "INFO", "json")
	Info("prefetch done", "pixels", 65536)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "prefetch done", entry["msg"])
	assert.Equal(t, float64(65536), entry["pixels"])
}

func TestInitFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	require.NoError(t, Init(Config{Level: "info", Format: "text", Output: path}))
	t.Cleanup(func() {
		require.NoError(t, Init(Config{Output: "stderr"}))
	})

	Info("to file")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "to file"))
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "UNKNOWN", Level(42).String())
}

package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/kyleking/primitive-db/internal/config"
)

func jsonLogger(buf *bytes.Buffer, level string) *Logger {
	return NewWriterLogger(config.LoggingConfig{Level: level, Format: "json"}, buf)
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()

	var entries []map[string]interface{}

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}

		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		entries = append(entries, entry)
	}

	return entries
}

func useGlobal(t *testing.T, logger *Logger) {
	t.Helper()

	globalMu.Lock()
	previous := globalLogger
	globalLogger = logger
	globalMu.Unlock()

	t.Cleanup(func() {
		globalMu.Lock()
		globalLogger = previous
		globalMu.Unlock()
	})
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"DEBUG", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"ERROR", zapcore.ErrorLevel},
		{"invalid", zapcore.InfoLevel}, // default
		{"", zapcore.InfoLevel},        // default
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLogLevel(tt.input))
		})
	}
}

func TestNewLoggerOutputs(t *testing.T) {
	for _, output := range []string{"stdout", "stderr", ""} {
		logger, err := NewLogger(config.LoggingConfig{Level: "info", Format: "text", Output: output})
		require.NoError(t, err)
		assert.Nil(t, logger.file)
		assert.Equal(t, "info", logger.Level())
	}
}

func TestNewLoggerFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "test.log")

	logger, err := NewLogger(config.LoggingConfig{
		Level:  "warn",
		Format: "json",
		Output: "file",
		File:   logFile,
	})
	require.NoError(t, err)
	require.NotNil(t, logger.file)

	logger.Info("dropped")
	logger.Warn("kept")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), "kept")
}

func TestNewLoggerFileInvalidPath(t *testing.T) {
	logger, err := NewLogger(config.LoggingConfig{Level: "info", Output: "file"})
	assert.Error(t, err)
	assert.Nil(t, logger)
	assert.Contains(t, err.Error(), "log file path is required")
}

func TestNewLoggerInvalidOutput(t *testing.T) {
	logger, err := NewLogger(config.LoggingConfig{Level: "info", Output: "invalid"})
	assert.Error(t, err)
	assert.Nil(t, logger)
	assert.Contains(t, err.Error(), "invalid log output")
}

func TestLoggerWithField(t *testing.T) {
	var buf bytes.Buffer

	jsonLogger(&buf, "info").WithField("key", "value").Info("test message")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "test message", entries[0]["message"])
	assert.Equal(t, "INFO", entries[0]["level"])
	assert.Equal(t, "value", entries[0]["key"])
}

func TestLoggerWithFields(t *testing.T) {
	var buf bytes.Buffer

	jsonLogger(&buf, "info").WithFields(map[string]interface{}{
		"key1": "value1",
		"key2": 42,
		"key3": true,
	}).Info("test message")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "value1", entries[0]["key1"])
	assert.Equal(t, float64(42), entries[0]["key2"]) // JSON unmarshals numbers as float64
	assert.Equal(t, true, entries[0]["key3"])
}

func TestLoggerWithFieldDoesNotLeak(t *testing.T) {
	var buf bytes.Buffer

	base := jsonLogger(&buf, "info")
	_ = base.WithField("child", 1)
	base.Info("parent")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0], "child")
}

func TestLoggerWithError(t *testing.T) {
	var buf bytes.Buffer

	logger := jsonLogger(&buf, "info")
	assert.Same(t, logger, logger.WithError(nil))

	logger.WithError(assert.AnError).Warn("failed")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, assert.AnError.Error(), entries[0]["error"])
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer

	logger := jsonLogger(&buf, "warn")
	logger.Debug("debug")
	logger.Info("info")
	logger.Warn("warn")
	logger.Error("error")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "WARN", entries[0]["level"])
	assert.Equal(t, "ERROR", entries[1]["level"])

	buf.Reset()
	logger.SetLevel("debug")
	logger.Debugf("now %s", "visible")

	entries = decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "now visible", entries[0]["message"])
}

func TestLoggerFormattedMessages(t *testing.T) {
	var buf bytes.Buffer

	logger := jsonLogger(&buf, "debug")
	logger.Infof("rows=%d", 3)
	logger.Warnf("table %q", "users")
	logger.Errorf("code %d", 7)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 3)
	assert.Equal(t, "rows=3", entries[0]["message"])
	assert.Equal(t, `table "users"`, entries[1]["message"])
	assert.Equal(t, "code 7", entries[2]["message"])
}

func TestLoggerErrorWithErr(t *testing.T) {
	var buf bytes.Buffer

	jsonLogger(&buf, "info").ErrorWithErr("save failed", assert.AnError)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "save failed", entries[0]["message"])
	assert.Equal(t, assert.AnError.Error(), entries[0]["error"])
}

func TestLoggerTextFormat(t *testing.T) {
	var buf bytes.Buffer

	logger := NewWriterLogger(config.LoggingConfig{Level: "info", Format: "text"}, &buf)
	logger.WithField("table", "users").Info("loaded")

	output := buf.String()
	assert.Contains(t, output, "INFO")
	assert.Contains(t, output, "loaded")
	assert.Contains(t, output, "users")
	assert.False(t, strings.HasPrefix(output, "{"), "text format should not be JSON")
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	logger.WithField("a", 1).Error("ignored")
	assert.NoError(t, logger.Close())
}

func TestGlobalLoggingFunctions(t *testing.T) {
	var buf bytes.Buffer

	useGlobal(t, jsonLogger(&buf, "debug"))

	Debug("d")
	Infof("i %d", 1)
	WithField("k", "v").Warn("w")
	WithFields(map[string]interface{}{"n": 2}).Error("e")
	ErrorWithErr("x", assert.AnError)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 5)
	assert.Equal(t, "v", entries[2]["k"])
}

func TestGlobalFunctionsWithoutLogger(t *testing.T) {
	useGlobal(t, nil)

	assert.NotPanics(t, func() {
		Info("nothing installed")
		WithField("k", "v").Debug("still fine")
		WithError(assert.AnError).Error("fine")
	})
}

func TestInitializeLogger(t *testing.T) {
	useGlobal(t, nil)

	require.NoError(t, InitializeLogger(config.LoggingConfig{Level: "error", Format: "text", Output: "stderr"}))
	assert.Equal(t, "error", GetLogger().Level())

	assert.Error(t, InitializeLogger(config.LoggingConfig{Level: "info", Output: "nowhere"}))
	assert.Equal(t, "error", GetLogger().Level(), "failed initialization keeps the previous logger")
}

func TestLoggerMiddleware(t *testing.T) {
	var buf bytes.Buffer

	useGlobal(t, jsonLogger(&buf, "debug"))

	err := LoggerMiddleware("test_operation", func() error {
		time.Sleep(1 * time.Millisecond)
		return nil
	})
	assert.NoError(t, err)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2) // Start and completion messages
	assert.Equal(t, "DEBUG", entries[0]["level"])
	assert.Equal(t, "Starting operation", entries[0]["message"])
	assert.Equal(t, "test_operation", entries[0]["operation"])
	assert.Equal(t, "Operation completed successfully", entries[1]["message"])
	assert.NotNil(t, entries[1]["duration"])
}

func TestLoggerMiddlewareWithError(t *testing.T) {
	var buf bytes.Buffer

	useGlobal(t, jsonLogger(&buf, "debug"))

	err := LoggerMiddleware("test_operation", func() error {
		return assert.AnError
	})
	assert.Equal(t, assert.AnError, err)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2) // Start and error messages
	assert.Equal(t, "ERROR", entries[1]["level"])
	assert.Equal(t, "Operation failed", entries[1]["message"])
	assert.Equal(t, assert.AnError.Error(), entries[1]["error"])
}

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(jsonFormat bool) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := New()
	logger.SetOutput(&buf)
	logger.SetLevel(LevelDebug)
	logger.SetJSON(jsonFormat)
	return logger, &buf
}

func decodeEntry(t *testing.T, buf *bytes.Buffer) Entry {
	t.Helper()
	var entry Entry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "output: %s", buf.String())
	return entry
}

func TestLogLevels(t *testing.T) {
	tests := []struct {
		name      string
		setLevel  Level
		logLevel  Level
		shouldLog bool
	}{
		{"Debug at Debug level", LevelDebug, LevelDebug, true},
		{"Info at Debug level", LevelDebug, LevelInfo, true},
		{"Debug at Info level", LevelInfo, LevelDebug, false},
		{"Warn at Info level", LevelInfo, LevelWarn, true},
		{"Info at Warn level", LevelWarn, LevelInfo, false},
		{"Warn at Error level", LevelError, LevelWarn, false},
		{"Error at Error level", LevelError, LevelError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, buf := newTestLogger(false)
			logger.SetLevel(tt.setLevel)

			switch tt.logLevel {
			case LevelDebug:
				logger.Debug("test message")
			case LevelInfo:
				logger.Info("test message")
			case LevelWarn:
				logger.Warn("test message")
			case LevelError:
				logger.Error("test message")
			}

			assert.Equal(t, tt.shouldLog, buf.Len() > 0, "output=%q", buf.String())
		})
	}
}

func TestJSONFormat(t *testing.T) {
	logger, buf := newTestLogger(true)

	logger.Info("seeded %d scripts", 42)

	entry := decodeEntry(t, buf)
	assert.Equal(t, "INFO", entry.Level)
	assert.Equal(t, "seeded 42 scripts", entry.Message)
	assert.NotEmpty(t, entry.Timestamp)
}

func TestHumanReadableFormat(t *testing.T) {
	logger, buf := newTestLogger(false)

	logger.Warn("manifest invalid")

	output := buf.String()
	assert.Contains(t, output, "[WARN]")
	assert.Contains(t, output, "manifest invalid")
}

func TestCorrelationID(t *testing.T) {
	logger, buf := newTestLogger(true)

	ctx := WithCorrelationID(context.Background(), "req-7c1f2a9e-1111")
	logger.InfoContext(ctx, "request")

	assert.Equal(t, "req-7c1f2a9e-1111", decodeEntry(t, buf).CorrelationID)
}

func TestShortCorrelationIDHumanFormat(t *testing.T) {
	logger, buf := newTestLogger(false)

	logger.InfoContext(WithCorrelationID(context.Background(), "abc"), "short id")
	assert.Contains(t, buf.String(), "[abc]")

	buf.Reset()
	logger.InfoContext(WithCorrelationID(context.Background(), "0123456789abcdef"), "long id")
	assert.Contains(t, buf.String(), "[01234567]")
	assert.NotContains(t, buf.String(), "89abcdef")
}

func TestWithFields(t *testing.T) {
	logger, buf := newTestLogger(true)

	logger.WithFields(map[string]interface{}{
		"script_id": 12,
		"state":     "published",
	}).Info("transitioned")

	entry := decodeEntry(t, buf)
	require.NotNil(t, entry.Fields)
	assert.Equal(t, float64(12), entry.Fields["script_id"])
	assert.Equal(t, "published", entry.Fields["state"])
}

func TestHumanFieldsAreSorted(t *testing.T) {
	logger, buf := newTestLogger(false)

	logger.WithFields(map[string]interface{}{"zeta": 1, "alpha": 2, "mid": 3}).Info("fields")

	assert.Contains(t, buf.String(), "{alpha=2, mid=3, zeta=1}")
}

func TestContextFields(t *testing.T) {
	logger, buf := newTestLogger(true)

	ctx := WithLogFields(context.Background(), map[string]interface{}{"path": "/api/stats"})
	ctx = WithLogFields(ctx, map[string]interface{}{"method": "GET"})
	logger.InfoContext(ctx, "request")

	entry := decodeEntry(t, buf)
	assert.Equal(t, "/api/stats", entry.Fields["path"])
	assert.Equal(t, "GET", entry.Fields["method"])
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"DEBUG", LevelDebug},
		{"debug", LevelDebug},
		{" info ", LevelInfo},
		{"WARNING", LevelWarn},
		{"error", LevelError},
		{"invalid", LevelInfo},
		{"", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.input))
		})
	}
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "UNKNOWN", Level(99).String())
}

func TestConfigureDefaultLogger(t *testing.T) {
	original := Default()
	t.Cleanup(func() { SetDefault(original) })

	var buf bytes.Buffer
	logger := New()
	logger.SetOutput(&buf)
	SetDefault(logger)

	Configure("warn", "json")
	Info("dropped")
	assert.Zero(t, buf.Len())

	Warn("kept %s", "entry")
	entry := decodeEntry(t, &buf)
	assert.Equal(t, "WARN", entry.Level)
	assert.Equal(t, "kept entry", entry.Message)
}

func TestPackageLevelPrintf(t *testing.T) {
	original := Default()
	t.Cleanup(func() { SetDefault(original) })

	logger, buf := newTestLogger(false)
	SetDefault(logger)

	Printf("formatted %s %d", "message", 42)

	assert.True(t, strings.Contains(buf.String(), "formatted message 42"))
}

func TestLoggerDoesNotMutateOriginal(t *testing.T) {
	logger, buf := newTestLogger(true)
	derived := logger.WithField("derived", true)

	logger.Info("original")
	entry := decodeEntry(t, buf)
	assert.Nil(t, entry.Fields["derived"])

	buf.Reset()
	derived.Info("derived")
	entry = decodeEntry(t, buf)
	assert.Equal(t, true, entry.Fields["derived"])
}

func TestWithScript(t *testing.T) {
	logger, buf := newTestLogger(true)

	ctx := WithCorrelationID(context.Background(), "req-1")
	logger.InfoContext(WithScript(ctx, 7, "Set-GlobalAdmin"), "viewed")

	entry := decodeEntry(t, buf)
	assert.Equal(t, "req-1", entry.CorrelationID)
	assert.Equal(t, float64(7), entry.Fields["script_id"])
	assert.Equal(t, "Set-GlobalAdmin", entry.Fields["script"])

	buf.Reset()
	logger.InfoContext(WithScript(context.Background(), 8, ""), "unnamed")
	entry = decodeEntry(t, buf)
	assert.NotContains(t, entry.Fields, "script")
}

func TestDerivedLoggerSharesSettings(t *testing.T) {
	logger, buf := newTestLogger(true)
	derived := logger.WithField("component", "watch")

	logger.SetLevel(LevelError)
	derived.Info("suppressed")
	assert.Zero(t, buf.Len())
}

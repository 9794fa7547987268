package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(level zerolog.Level) (*bytes.Buffer, Logger) {
	buf := &bytes.Buffer{}
	return buf, newZerologLogger(buf, level)
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	return entry
}

func TestNewLogger(t *testing.T) {
	logger := NewLogger()
	assert.NotNil(t, logger)
	assert.IsType(t, &zerologLogger{}, logger)
}

func TestNewLoggerWithLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{" error ", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLevel(tt.input))
			l := NewLoggerWithLevel(tt.input).(*zerologLogger)
			assert.Equal(t, tt.expected, l.logger.GetLevel())
		})
	}
}

func TestLevels(t *testing.T) {
	buf, logger := newBufferLogger(zerolog.InfoLevel)

	logger.Debug("hidden")
	assert.Empty(t, buf.String())

	logger.Info("info message")
	entry := decodeLine(t, buf)
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "info message", entry["message"])

	buf.Reset()
	logger.Error("error message")
	entry = decodeLine(t, buf)
	assert.Equal(t, "error", entry["level"])
}

func TestWithField(t *testing.T) {
	buf, logger := newBufferLogger(zerolog.DebugLevel)

	logger.WithField("broadcast_id", "b1").Warn("with field")
	entry := decodeLine(t, buf)
	assert.Equal(t, "b1", entry["broadcast_id"])
	assert.Equal(t, "warn", entry["level"])
}

func TestWithFieldsDoesNotMutateParent(t *testing.T) {
	buf, logger := newBufferLogger(zerolog.DebugLevel)

	child := logger.WithFields(map[string]interface{}{
		"tenant_id": "t1",
		"count":     3,
	})
	child.Info("child")
	entry := decodeLine(t, buf)
	assert.Equal(t, "t1", entry["tenant_id"])
	assert.Equal(t, float64(3), entry["count"])

	buf.Reset()
	logger.Info("parent")
	entry = decodeLine(t, buf)
	_, hasTenant := entry["tenant_id"]
	assert.False(t, hasTenant)
}

func TestTestLoggerFields(t *testing.T) {
	l := NewTestLogger(t).WithField("a", 1).WithFields(map[string]interface{}{"b": "two"})
	tl, ok := l.(*TestLogger)
	require.True(t, ok)
	assert.Equal(t, " a=1 b=two", tl.formatFields())
	tl.Info("message")
}

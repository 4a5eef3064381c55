package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/berth/internal/ports"
)

func TestNopLogger_Methods(t *testing.T) {
	logger := NewNopLogger()
	ctx := context.Background()

	logger.Debug(ctx, "debug message")
	logger.Info(ctx, "info message")
	logger.Warn(ctx, "warn message")
	logger.Error(ctx, "error message")

	assert.Same(t, logger, logger.With(ports.F("key", "value")))

	assert.Equal(t, ports.LevelInfo, logger.Level())
	logger.SetLevel(ports.LevelDebug)
	assert.Equal(t, ports.LevelDebug, logger.Level())
}

func TestOrNop(t *testing.T) {
	assert.IsType(t, &NopLogger{}, OrNop(nil))

	console := NewConsoleLogger()
	assert.Same(t, console, OrNop(console))
}

func newTestLogger(buf *bytes.Buffer, opts ...ConsoleLoggerOption) *ConsoleLogger {
	base := []ConsoleLoggerOption{
		WithOutput(buf),
		WithLevel(ports.LevelDebug),
		WithTimestamp(false),
	}
	return NewConsoleLogger(append(base, opts...)...)
}

func TestConsoleLogger_TextOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	logger.Info(context.Background(), "plugin registered",
		ports.F("plugin", "mailpit"),
		ports.F("source", "bundled"),
		ports.F("reason", "missing marker"),
	)

	assert.Equal(t, "[INFO] plugin registered plugin=mailpit source=bundled reason=\"missing marker\"\n", buf.String())
}

func TestConsoleLogger_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf, WithJSONFormat(true))

	logger.Warn(context.Background(), "hook failed",
		ports.F("event", "before:start"),
		ports.F("error", errors.New("boom")),
	)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "hook failed", entry["msg"])
	assert.Equal(t, "before:start", entry["event"])
	assert.Equal(t, "boom", entry["error"])
	assert.NotContains(t, entry, "time")
}

func TestConsoleLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf, WithLevel(ports.LevelWarn))
	ctx := context.Background()

	logger.Debug(ctx, "debug message")
	logger.Info(ctx, "info message")
	assert.Empty(t, buf.String())

	logger.Warn(ctx, "warn message")
	assert.Contains(t, buf.String(), "warn message")

	buf.Reset()
	logger.Error(ctx, "error message")
	assert.Contains(t, buf.String(), "error message")
}

func TestConsoleLogger_With(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf, WithLevelLabel(false))

	derived := logger.With(ports.F("component", "discovery"))
	derived.Info(context.Background(), "message", ports.F("extra", "field"))
	logger.Info(context.Background(), "original")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Equal(t, "message component=discovery extra=field", string(lines[0]))
	assert.Equal(t, "original", string(lines[1]))
}

func TestConsoleLogger_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf, WithLevel(ports.LevelError))
	ctx := context.Background()

	logger.Info(ctx, "info message")
	assert.Empty(t, buf.String())

	logger.SetLevel(ports.LevelDebug)
	logger.Info(ctx, "info message")
	assert.Contains(t, buf.String(), "info message")
}

func TestFromEnv(t *testing.T) {
	tests := []struct {
		name      string
		env       map[string]string
		verbose   bool
		wantLevel ports.Level
		wantJSON  bool
	}{
		{name: "defaults", env: map[string]string{}, wantLevel: ports.LevelWarn},
		{name: "verbose flag", env: map[string]string{}, verbose: true, wantLevel: ports.LevelDebug},
		{name: "debug env", env: map[string]string{"BERTH_DEBUG": "1"}, wantLevel: ports.LevelDebug},
		{name: "explicit level", env: map[string]string{"BERTH_LOG_LEVEL": "info"}, wantLevel: ports.LevelInfo},
		{name: "unknown level ignored", env: map[string]string{"BERTH_LOG_LEVEL": "loud"}, wantLevel: ports.LevelWarn},
		{name: "json format", env: map[string]string{"BERTH_LOG_FORMAT": "JSON"}, wantLevel: ports.LevelWarn, wantJSON: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			getenv := func(key string) string { return tt.env[key] }
			logger := FromEnv(getenv, tt.verbose)
			assert.Equal(t, tt.wantLevel, logger.Level())
			assert.Equal(t, tt.wantJSON, logger.jsonFormat)
		})
	}
}

package logger

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imgharvest/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{"info level", &config.LoggingConfig{Level: "info"}, false},
		{"debug level", &config.LoggingConfig{Level: "debug"}, false},
		{"invalid level", &config.LoggingConfig{Level: "invalid"}, true},
		{"file output", &config.LoggingConfig{Level: "info", File: filepath.Join(t.TempDir(), "logs", "app.log")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"INFO", zerolog.InfoLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			level, err := parseLogLevel(tt.level)
			assert.Equal(t, tt.wantErr, err != nil)
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, zerolog.DebugLevel)

	l.WithField("task", "seq-1").
		WithError(errors.New("connection reset")).
		InfoWithFields("download finished", map[string]interface{}{"size": 2048})

	out := buf.String()
	assert.Contains(t, out, `"message":"download finished"`)
	assert.Contains(t, out, `"task":"seq-1"`)
	assert.Contains(t, out, `"error":"connection reset"`)
	assert.Contains(t, out, `"size":2048`)
	assert.Contains(t, out, `"app":"imgharvest"`)
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, zerolog.WarnLevel)

	l.Debug("hidden")
	l.Info("hidden too")
	l.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestTestLoggerSharesBuffer(t *testing.T) {
	l := NewTestLogger()
	child := l.WithField("component", "downloader")

	child.Warn("slow response")
	l.Error("failed")

	assert.Len(t, l.GetMessages(), 2)
	warns := l.GetMessagesByLevel("WARN")
	require.Len(t, warns, 1)
	assert.Equal(t, "downloader", warns[0].Fields["component"])
	assert.True(t, l.HasMessage("failed"))
}

func TestLogRequestLevels(t *testing.T) {
	l := NewTestLogger()

	LogRequest(l, "GET", "http://x.test/a", 200, 12)
	LogRequest(l, "GET", "http://x.test/b", 404, 3)
	LogRequest(l, "GET", "http://x.test/c", 503, 40)

	assert.Len(t, l.GetMessagesByLevel("DEBUG"), 1)
	assert.Len(t, l.GetMessagesByLevel("WARN"), 1)
	assert.Len(t, l.GetMessagesByLevel("ERROR"), 1)
}

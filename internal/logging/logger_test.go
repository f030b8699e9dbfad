package logging

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"warning", LevelWarn},
		{" error ", LevelError},
		{"", LevelInfo},
		{"verbose", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestLogLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "UNKNOWN", LogLevel(42).String())
}

func TestServerLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelInfo, Format: "text", Output: &buf})

	logger.WithComponent("taxonomy").With("path", "/data/src.yaml").
		Error(context.Background(), errors.New("permission denied"), "cannot read source", "attempt", 2)

	out := buf.String()
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "component=taxonomy")
	assert.Contains(t, out, "path=/data/src.yaml")
	assert.Contains(t, out, "attempt=2")
	assert.Contains(t, out, `error="permission denied"`)
}

func TestServerLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelWarn, Format: "json", Output: &buf})

	logger.Debug(context.Background(), "hidden")
	logger.Info(context.Background(), "hidden too")
	assert.Empty(t, buf.String())

	logger.Warn(context.Background(), nil, "shown")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() {
		Nop().Error(context.Background(), errors.New("x"), "discarded")
	})
}

package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewWithWriter(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		logFunc func(l Logger)
		want    []string
		notWant []string
	}{
		{
			name:    "info level default",
			cfg:     Config{},
			logFunc: func(l Logger) { l.Info("hello", "key", "value") },
			want:    []string{"hello", "key=value"},
		},
		{
			name:    "debug suppressed at info level",
			cfg:     Config{},
			logFunc: func(l Logger) { l.Debug("hidden") },
			notWant: []string{"hidden"},
		},
		{
			name:    "debug visible at debug level",
			cfg:     Config{Level: slog.LevelDebug},
			logFunc: func(l Logger) { l.Debug("visible") },
			want:    []string{"visible"},
		},
		{
			name:    "json format",
			cfg:     Config{JSON: true},
			logFunc: func(l Logger) { l.Info("hello") },
			want:    []string{`"msg":"hello"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewWithWriter(&buf, tt.cfg)
			tt.logFunc(logger)

			out := buf.String()
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
			for _, nw := range tt.notWant {
				assert.NotContains(t, out, nw)
			}
		})
	}
}

func TestNewNopDiscardsOutput(t *testing.T) {
	logger := NewNop()
	// Must not panic and must not write anywhere observable.
	logger.Info("discarded")
	logger.Error("discarded too")
}

func TestWithAddsContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, Config{})

	logger.With("component", "registry").Info("ready")

	assert.True(t, strings.Contains(buf.String(), "component=registry"))
}

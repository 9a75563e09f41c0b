package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesAboveMinimumLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("catalog", &buf)

	l.Debug("hidden %d", 1)
	l.Info("registered store %s", "orders")
	l.Warn("slow")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "registered store orders")
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "catalog")
}

func TestLoggerSubscribersReceiveQuietEntries(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("rest", &buf)
	l.DisableConsoleOutput()
	ch := l.Subscribe()

	l.WithFields(map[string]string{"db": "sys_meta"}).Error("boom %s", "x")

	require.Len(t, ch, 1)
	entry := <-ch
	assert.Equal(t, LevelError, entry.Level)
	assert.Equal(t, "boom x", entry.Message)
	assert.Equal(t, "sys_meta", entry.Fields["db"])
	assert.Empty(t, buf.String())
}

func TestNilLoggerIsNoop(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() {
		l.Info("x")
		l.Named("sub").Error("y")
		l.SetLevel(LevelDebug)
		l.WithFields(nil).Warn("z")
	})
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   LevelDebug,
		"WARNING": LevelWarn,
		" error ": LevelError,
		"":        LevelInfo,
		"bogus":   LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(level slog.Level) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	h := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: level})
	return New(slog.New(h)), &buf
}

func TestHCLogAdapterNamedWith(t *testing.T) {
	l, buf := newBufferLogger(slog.LevelDebug)
	adapter := NewHCLogAdapterFor(l).Named("payload_logging").With("pid", 42)

	adapter.Info("plugin started", "path", "/usr/lib/payloadlog/payload_logging")

	out := buf.String()
	require.Contains(t, out, "msg=\"plugin started\"")
	require.Contains(t, out, "@module=plugin.payload_logging")
	require.Contains(t, out, "pid=42")
	require.Contains(t, out, "path=/usr/lib/payloadlog/payload_logging")
}

func TestHCLogAdapterLevels(t *testing.T) {
	l, buf := newBufferLogger(slog.LevelWarn)
	adapter := NewHCLogAdapterFor(l)

	require.False(t, adapter.IsDebug())
	require.False(t, adapter.IsInfo())
	require.True(t, adapter.IsWarn())
	require.Equal(t, hclog.Warn, adapter.GetLevel())

	adapter.Log(hclog.Info, "dropped")
	adapter.Log(hclog.Error, "kept")
	require.NotContains(t, buf.String(), "dropped")
	require.Contains(t, buf.String(), "kept")
}

func TestTailLoggerMethodsDoNotExit(t *testing.T) {
	l, buf := newBufferLogger(slog.LevelDebug)

	l.Fatalf("cannot open %s", "capture.ndjson")
	l.Panicln("reopen", "failed")
	l.Print("file", "capture.ndjson")

	out := buf.String()
	require.Contains(t, out, "cannot open capture.ndjson")
	require.Contains(t, out, "reopenfailed")
	require.Contains(t, out, "file=capture.ndjson")
}

package main

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"

	"payloadlog.szuro.net/internal/payloadlog"
	"payloadlog.szuro.net/pkg/filter"
	pluginPkg "payloadlog.szuro.net/pkg/plugin"
)

func newTestPlugin(t *testing.T, options map[string]string) (*PayloadLoggingPlugin, string) {
	t.Helper()
	root := filepath.Join(t.TempDir(), "payloadLogs")
	if options == nil {
		options = map[string]string{}
	}
	options[OptRoot] = root

	p := NewPayloadLoggingPlugin(hclog.NewNullLogger())
	require.NoError(t, p.Initialize(context.Background(), &pluginPkg.InitializeRequest{
		Name:    t.Name(),
		Options: options,
	}))
	return p, root
}

func TestPayloadLoggingPluginWritesCSV(t *testing.T) {
	p, root := newTestPlugin(t, nil)
	ctx := context.Background()

	for _, payload := range []string{"hello", "world"} {
		status := p.OnMessage(ctx, &pluginPkg.MessageEvent{
			ClientID: "abc123",
			Topic:    "sensors/temp",
			Payload:  []byte(payload),
		})
		require.Equal(t, pluginPkg.StatusSuccess, status)
	}

	data, err := os.ReadFile(filepath.Join(root, "abc123", payloadlog.FileName))
	require.NoError(t, err)
	require.Regexp(t, `^Payload,Date,time\nhello,\d{4}-\d{2}-\d{2},\d{2}:\d{2}:\d{2}\nworld,\d{4}-\d{2}-\d{2},\d{2}:\d{2}:\d{2}\n$`, string(data))
}

func TestPayloadLoggingPluginSkipsFilteredTopics(t *testing.T) {
	p, root := newTestPlugin(t, map[string]string{filter.OptRejectedTopics: "$SYS/**"})

	status := p.OnMessage(context.Background(), &pluginPkg.MessageEvent{
		ClientID: "abc123",
		Topic:    "$SYS/broker/uptime",
		Payload:  []byte("42"),
	})
	require.Equal(t, pluginPkg.StatusSuccess, status)
	require.NoDirExists(t, filepath.Join(root, "abc123"))
}

func TestPayloadLoggingPluginReportsFailure(t *testing.T) {
	p, _ := newTestPlugin(t, nil)

	status := p.OnMessage(context.Background(), &pluginPkg.MessageEvent{ClientID: "..", Payload: []byte("x")})
	require.Equal(t, pluginPkg.StatusUnknown, status)
}

func TestPayloadLoggingPluginAfterCleanup(t *testing.T) {
	p, _ := newTestPlugin(t, nil)
	require.NoError(t, p.Cleanup(context.Background()))

	status := p.OnMessage(context.Background(), &pluginPkg.MessageEvent{ClientID: "abc123", Payload: []byte("x")})
	require.Equal(t, pluginPkg.StatusUnknown, status)
}

func TestPayloadLoggingPluginDefaultRoot(t *testing.T) {
	p := NewPayloadLoggingPlugin(hclog.NewNullLogger())
	require.NoError(t, p.Initialize(context.Background(), &pluginPkg.InitializeRequest{Name: "csv"}))
	require.Equal(t, payloadlog.DefaultRoot, p.log.Load().Root())
}

func TestPayloadLoggingPluginCleanupWhileLogging(t *testing.T) {
	p, _ := newTestPlugin(t, nil)
	ctx := context.Background()

	const n = 8
	statuses := make(chan pluginPkg.Status, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			statuses <- p.OnMessage(ctx, &pluginPkg.MessageEvent{ClientID: "abc123", Payload: []byte("hello")})
		}()
	}
	require.NoError(t, p.Cleanup(ctx))
	wg.Wait()
	close(statuses)

	for status := range statuses {
		require.Contains(t, []pluginPkg.Status{pluginPkg.StatusSuccess, pluginPkg.StatusUnknown}, status)
	}

	require.Nil(t, p.log.Load())
}

package main

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"

	"payloadlog.szuro.net/pkg/filter"
	pluginPkg "payloadlog.szuro.net/pkg/plugin"
)

func TestPrintPlugin(t *testing.T) {
	p := NewPrintPlugin(hclog.NewNullLogger())
	require.NoError(t, p.Initialize(context.Background(), &pluginPkg.InitializeRequest{
		Name:    "print",
		Options: map[string]string{filter.OptAcceptedClients: "abc*"},
	}))

	var buf bytes.Buffer
	p.out = &buf

	ctx := context.Background()
	require.Equal(t, pluginPkg.StatusSuccess, p.OnMessage(ctx, &pluginPkg.MessageEvent{
		ClientID: "abc123", Topic: "sensors/temp", QoS: 1, Payload: []byte("hello"),
	}))
	require.Equal(t, pluginPkg.StatusSuccess, p.OnMessage(ctx, &pluginPkg.MessageEvent{
		ClientID: "other", Topic: "sensors/temp", Payload: []byte("world"),
	}))

	require.Equal(t, "Client: abc123; Topic: sensors/temp; QoS: 1; Payload: \"hello\"\n", buf.String())
}

func TestPrintPluginBeforeInitialize(t *testing.T) {
	p := NewPrintPlugin(hclog.NewNullLogger())
	require.Equal(t, os.Stdout, p.out)

	var buf bytes.Buffer
	p.out = &buf
	status := p.OnMessage(context.Background(), &pluginPkg.MessageEvent{ClientID: "abc123", Topic: "a/b", Payload: []byte("x")})
	require.Equal(t, pluginPkg.StatusSuccess, status)
	require.Contains(t, buf.String(), "Client: abc123")
}

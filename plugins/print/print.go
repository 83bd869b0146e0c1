package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"

	pluginPkg "payloadlog.szuro.net/pkg/plugin"
)

const (
	STDOUT      = "stdout"
	STDERR      = "stderr"
	PLUGIN_NAME = "print"
)

// PrintPlugin writes one line per message to stdout or stderr.
type PrintPlugin struct {
	pluginPkg.BaseHookGRPC
	out io.Writer
}

// NewPrintPlugin creates a new plugin instance
func NewPrintPlugin(logger hclog.Logger) *PrintPlugin {
	p := &PrintPlugin{
		BaseHookGRPC: *pluginPkg.NewBaseHookGRPC(PLUGIN_NAME),
		out:          os.Stdout,
	}
	p.Logger = logger
	return p
}

// Initialize configures the plugin with settings from main application
func (p *PrintPlugin) Initialize(ctx context.Context, req *pluginPkg.InitializeRequest) error {
	if err := p.BaseHookGRPC.Initialize(ctx, req); err != nil {
		return err
	}

	// Configure output destination
	switch req.Options["output"] {
	case STDERR:
		p.out = os.Stderr
	default:
		p.out = os.Stdout
	}

	p.Logger.Info("Print plugin initialized",
		"output", req.Options["output"],
		"name", req.Name)
	return nil
}

// OnMessage prints the message
func (p *PrintPlugin) OnMessage(ctx context.Context, ev *pluginPkg.MessageEvent) pluginPkg.Status {
	if !p.Accept(ev) {
		return pluginPkg.StatusSuccess
	}

	status := pluginPkg.StatusSuccess
	_, err := fmt.Fprintf(p.out, "Client: %s; Topic: %s; QoS: %d; Payload: %q\n",
		ev.ClientID, ev.Topic, ev.QoS, ev.Payload)
	if err != nil {
		status = pluginPkg.StatusUnknown
	}
	p.Record(status)
	return status
}

// main is the entry point for the plugin binary
func main() {
	impl := NewPrintPlugin(pluginPkg.NewPluginLogger(os.Stderr, hclog.Info))

	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: pluginPkg.Handshake,
		Plugins: map[string]plugin.Plugin{
			pluginPkg.HookPluginName: &pluginPkg.HookPlugin{Impl: impl},
		},
		GRPCServer: plugin.DefaultGRPCServer,
	})

	impl.Logger.Info("Plugin exited")
}

package main

import (
	"context"
	"os"
	"sync/atomic"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"

	"payloadlog.szuro.net/internal/payloadlog"
	pluginPkg "payloadlog.szuro.net/pkg/plugin"
)

const (
	PLUGIN_NAME = "payload_logging"

	// OptRoot overrides the directory client logs are written under.
	OptRoot = "root"
)

// PayloadLoggingPlugin appends every accepted message payload to
// <root>/<client id>/payload.csv.
type PayloadLoggingPlugin struct {
	pluginPkg.BaseHookGRPC

	// log is nil before Initialize and after Cleanup.
	log atomic.Pointer[payloadlog.Logger]
}

// NewPayloadLoggingPlugin creates a new plugin instance
func NewPayloadLoggingPlugin(logger hclog.Logger) *PayloadLoggingPlugin {
	p := &PayloadLoggingPlugin{
		BaseHookGRPC: *pluginPkg.NewBaseHookGRPC(PLUGIN_NAME),
	}
	p.Logger = logger
	return p
}

// Initialize configures the plugin with settings from main application
func (p *PayloadLoggingPlugin) Initialize(ctx context.Context, req *pluginPkg.InitializeRequest) error {
	if err := p.BaseHookGRPC.Initialize(ctx, req); err != nil {
		return err
	}

	log := payloadlog.New(req.Options[OptRoot], payloadlog.WithLogger(p.Logger))
	p.log.Store(log)

	p.Logger.Info("Payload logging plugin initialized",
		"name", req.Name,
		"root", log.Root())
	return nil
}

// OnMessage logs the payload of one message event.
func (p *PayloadLoggingPlugin) OnMessage(ctx context.Context, ev *pluginPkg.MessageEvent) pluginPkg.Status {
	log := p.log.Load()
	if log == nil {
		return pluginPkg.StatusUnknown
	}
	if !p.Accept(ev) {
		return pluginPkg.StatusSuccess
	}

	status := log.OnMessage(ctx, ev)
	p.Record(status)
	return status
}

// Cleanup releases any resources held by the plugin
func (p *PayloadLoggingPlugin) Cleanup(ctx context.Context) error {
	p.Logger.Info("Cleaning up payload logging plugin")
	p.log.Store(nil)
	return nil
}

// main is the entry point for the plugin binary
func main() {
	impl := NewPayloadLoggingPlugin(pluginPkg.NewPluginLogger(os.Stderr, hclog.Debug))

	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: pluginPkg.Handshake,
		Plugins: map[string]plugin.Plugin{
			pluginPkg.HookPluginName: &pluginPkg.HookPlugin{Impl: impl},
		},
		GRPCServer: plugin.DefaultGRPCServer,
	})

	impl.Logger.Info("Plugin exited")
}

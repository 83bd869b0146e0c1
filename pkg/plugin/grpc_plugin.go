// Package plugin provides the gRPC-based plugin interface for payloadlog hooks.
//
// This file defines the go-plugin wrapper for the gRPC hook service.
// Plugins run as separate processes and communicate via gRPC.
package plugin

import (
	"context"

	"github.com/hashicorp/go-plugin"
	"google.golang.org/grpc"
)

// HookPluginName is the key hooks are served and dispensed under.
const HookPluginName = "hook"

// Handshake is the shared configuration between the host and plugins.
// This must match exactly between the host and all plugins
// to ensure compatibility.
var Handshake = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "PAYLOADLOG_PLUGIN",
	MagicCookieValue: "broker_payload_logging",
}

// HookPlugin is the implementation of the plugin.Plugin interface
// for HashiCorp go-plugin. This handles the gRPC server/client setup.
type HookPlugin struct {
	plugin.Plugin
	// Impl is the concrete implementation of the hook
	Impl Hook
}

// GRPCServer registers the hook implementation with the gRPC server.
// This is called by go-plugin when starting the plugin process.
func (p *HookPlugin) GRPCServer(broker *plugin.GRPCBroker, s *grpc.Server) error {
	s.RegisterService(&hookServiceDesc, &hookGRPCServer{impl: p.Impl})
	return nil
}

// GRPCClient creates a client that communicates with the plugin.
// This is called by the host when connecting to a plugin.
func (p *HookPlugin) GRPCClient(ctx context.Context, broker *plugin.GRPCBroker, c *grpc.ClientConn) (interface{}, error) {
	return NewHookClient(c), nil
}

var _ plugin.GRPCPlugin = (*HookPlugin)(nil)

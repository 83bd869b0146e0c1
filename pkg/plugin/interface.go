// Package plugin provides interfaces and types for creating payloadlog broker hooks.
//
// This package defines the plugin ABI between a message broker host and its
// hooks. The host delivers events (currently only EventMessage) and every
// hook answers each event with a Status. Hooks run as separate processes
// managed by HashiCorp go-plugin and talk to the host over gRPC; the same
// Hook interface is used for in-process hooks, so hosts and tests can mix
// both.
//
// Creating a Plugin:
//
// 1. Implement the Hook interface
// 2. Embed BaseHookGRPC for filtering, metrics and logging
// 3. Serve it from main with go-plugin using Handshake and HookPlugin
//
// Example plugin structure:
//
//	package main
//
//	import (
//	    "github.com/hashicorp/go-plugin"
//	    pluginPkg "payloadlog.szuro.net/pkg/plugin"
//	)
//
//	type MyHook struct {
//	    pluginPkg.BaseHookGRPC
//	}
//
//	func (h *MyHook) OnMessage(ctx context.Context, ev *pluginPkg.MessageEvent) pluginPkg.Status {
//	    if !h.Accept(ev) {
//	        return pluginPkg.StatusSuccess
//	    }
//	    // Process the message
//	    return pluginPkg.StatusSuccess
//	}
//
//	func main() {
//	    plugin.Serve(&plugin.ServeConfig{
//	        HandshakeConfig: pluginPkg.Handshake,
//	        Plugins: map[string]plugin.Plugin{
//	            pluginPkg.HookPluginName: &pluginPkg.HookPlugin{Impl: &MyHook{}},
//	        },
//	        GRPCServer: plugin.DefaultGRPCServer,
//	    })
//	}
package plugin

import "context"

// PluginInfo contains metadata about a plugin.
type PluginInfo struct {
	// Name is the human-readable name of the plugin.
	Name string

	// Version is the semantic version of the plugin (e.g., "1.0.0").
	Version string

	// Path is the location of the plugin executable.
	Path string
}

// InitializeRequest carries the configuration the host hands to a hook
// when it is registered.
type InitializeRequest struct {
	// Name is the configured name of this hook instance.
	Name string

	// Options are free-form plugin options from the host configuration.
	Options map[string]string
}

// Hook is implemented by every payloadlog plugin, local or remote.
type Hook interface {
	// Initialize is called once before the hook is registered for events.
	// A returned error aborts registration.
	Initialize(ctx context.Context, req *InitializeRequest) error

	// OnMessage is called for every message received by the broker.
	// Anything other than StatusSuccess fails the message for this event.
	OnMessage(ctx context.Context, ev *MessageEvent) Status

	// Cleanup is called when the hook is unregistered.
	Cleanup(ctx context.Context) error
}

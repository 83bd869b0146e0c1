package host

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hashicorp/go-plugin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"payloadlog.szuro.net/internal/logger"
	pluginPkg "payloadlog.szuro.net/pkg/plugin"
)

var (
	hooksActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "payloadlog_hooks_active",
		Help: "Number of hooks currently registered for message events",
	})

	pluginInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "payloadlog_plugin_info",
		Help: "Information about loaded plugins",
	}, []string{"plugin_name"})
)

// LoadedPlugin is a plugin executable discovered on disk.
type LoadedPlugin struct {
	Name string
	Path string
}

// ActiveHook is a hook instance registered with the registry. Remote hooks
// keep the go-plugin client of their own plugin process.
type ActiveHook struct {
	Name         string
	PluginName   string
	Hook         pluginPkg.Hook
	Registration *Registration

	client *plugin.Client
}

// Loader manages plugin executables and the hooks started from them.
type Loader struct {
	registry *Registry
	plugins  map[string]*LoadedPlugin
	hooks    []*ActiveHook
	mutex    sync.RWMutex
}

func NewLoader(registry *Registry) *Loader {
	return &Loader{
		registry: registry,
		plugins:  make(map[string]*LoadedPlugin),
	}
}

// LoadPlugin records a plugin executable. The plugin name is the file
// name without extension.
func (l *Loader) LoadPlugin(pluginPath string) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	pluginName := filepath.Base(pluginPath)
	pluginName = strings.TrimSuffix(pluginName, filepath.Ext(pluginName))

	if _, exists := l.plugins[pluginName]; exists {
		logger.Info("Plugin already loaded", slog.String("name", pluginName))
		return nil
	}

	l.plugins[pluginName] = &LoadedPlugin{
		Name: pluginName,
		Path: pluginPath,
	}

	logger.Info("Successfully loaded plugin",
		slog.String("name", pluginName),
		slog.String("path", pluginPath))

	pluginInfo.WithLabelValues(pluginName).Set(1)

	return nil
}

// LoadPluginsFromDir loads all plugin executables from the specified directory.
func (l *Loader) LoadPluginsFromDir(pluginDir string) error {
	logger.Info("Loading plugins from directory", slog.String("dir", pluginDir))

	matches, err := filepath.Glob(filepath.Join(pluginDir, "*"))
	if err != nil {
		return fmt.Errorf("failed to list plugin files in %s: %w", pluginDir, err)
	}

	loadedCount := 0
	for _, pluginPath := range matches {
		if _, err := exec.LookPath(pluginPath); err != nil {
			// Not an executable, skip it
			continue
		}
		if err := l.LoadPlugin(pluginPath); err != nil {
			logger.Error("Failed to load plugin", slog.String("path", pluginPath), slog.Any("error", err))
			continue
		}
		loadedCount++
	}

	logger.Info("Loaded plugins from directory", slog.Int("count", loadedCount))
	return nil
}

// GetPlugin returns a loaded plugin by name.
func (l *Loader) GetPlugin(name string) (*LoadedPlugin, bool) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	p, exists := l.plugins[name]
	return p, exists
}

// ListPlugins returns information about all loaded plugins.
func (l *Loader) ListPlugins() []pluginPkg.PluginInfo {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	infos := make([]pluginPkg.PluginInfo, 0, len(l.plugins))
	for _, p := range l.plugins {
		infos = append(infos, pluginPkg.PluginInfo{
			Name:    p.Name,
			Version: "unknown",
			Path:    p.Path,
		})
	}
	return infos
}

// StartHook launches a process of the named plugin, initializes the hook
// with options and registers it for message events.
func (l *Loader) StartHook(ctx context.Context, name, pluginName string, options map[string]string) (*ActiveHook, error) {
	p, exists := l.GetPlugin(pluginName)
	if !exists {
		return nil, fmt.Errorf("plugin %s not found", pluginName)
	}

	client := plugin.NewClient(&plugin.ClientConfig{
		HandshakeConfig: pluginPkg.Handshake,
		Plugins: map[string]plugin.Plugin{
			pluginPkg.HookPluginName: &pluginPkg.HookPlugin{},
		},
		Cmd:              exec.Command(p.Path),
		AllowedProtocols: []plugin.Protocol{plugin.ProtocolGRPC},
		Logger:           logger.NewHCLogAdapter().Named(name),
	})

	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("failed to connect to plugin %s: %w", pluginName, err)
	}

	raw, err := rpcClient.Dispense(pluginPkg.HookPluginName)
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("failed to dispense hook from plugin %s: %w", pluginName, err)
	}

	hook, ok := raw.(pluginPkg.Hook)
	if !ok {
		client.Kill()
		return nil, fmt.Errorf("plugin %s did not return a valid hook", pluginName)
	}

	active, err := l.attach(ctx, name, pluginName, hook, options)
	if err != nil {
		client.Kill()
		return nil, err
	}
	active.client = client
	return active, nil
}

// AddHook initializes and registers an in-process hook.
func (l *Loader) AddHook(ctx context.Context, name string, hook pluginPkg.Hook, options map[string]string) (*ActiveHook, error) {
	return l.attach(ctx, name, "local", hook, options)
}

func (l *Loader) attach(ctx context.Context, name, pluginName string, hook pluginPkg.Hook, options map[string]string) (*ActiveHook, error) {
	err := hook.Initialize(ctx, &pluginPkg.InitializeRequest{Name: name, Options: options})
	if err != nil {
		hook.Cleanup(ctx)
		return nil, fmt.Errorf("failed to initialize hook %s: %w", name, err)
	}

	reg, err := l.registry.Register(name, pluginPkg.EventMessage, hook.OnMessage)
	if err != nil {
		hook.Cleanup(ctx)
		return nil, err
	}

	active := &ActiveHook{
		Name:         name,
		PluginName:   pluginName,
		Hook:         hook,
		Registration: reg,
	}

	l.mutex.Lock()
	l.hooks = append(l.hooks, active)
	l.mutex.Unlock()
	hooksActive.Inc()

	logger.Info("Hook registered",
		slog.String("name", name),
		slog.String("plugin", pluginName))
	return active, nil
}

// Hooks returns the currently active hooks.
func (l *Loader) Hooks() []*ActiveHook {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	return append([]*ActiveHook(nil), l.hooks...)
}

// CleanupAll unregisters every hook, lets it clean up and stops plugin
// processes.
func (l *Loader) CleanupAll(ctx context.Context) {
	l.mutex.Lock()
	hooks := l.hooks
	l.hooks = nil
	l.mutex.Unlock()

	logger.Info("Cleaning up all hooks")

	for _, h := range hooks {
		if err := l.registry.Unregister(h.Registration); err != nil {
			logger.Error("Failed to unregister hook", slog.String("name", h.Name), slog.Any("error", err))
		}
		if err := h.Hook.Cleanup(ctx); err != nil {
			logger.Error("Hook cleanup failed", slog.String("name", h.Name), slog.Any("error", err))
		}
		if h.client != nil {
			logger.Info("Killing plugin", slog.String("name", h.Name))
			h.client.Kill()
		}
		hooksActive.Dec()
	}
}

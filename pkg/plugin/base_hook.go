package plugin

import (
	"context"
	"errors"

	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"
	"payloadlog.szuro.net/pkg/filter"
)

// BaseHookGRPC provides core functionality for gRPC-based hook plugins.
// Plugins should embed this struct to get access to filtering, metrics, and logging.
//
// Plugins still implement OnMessage themselves; Initialize and Cleanup can be
// used as is or called from the plugin's own implementation.
type BaseHookGRPC struct {
	// Name is the configured name of this hook instance
	Name string

	// PluginName is the plugin type identifier
	PluginName string

	// Filter decides which messages this hook handles
	Filter filter.Filter

	// Logger provides structured logging
	Logger hclog.Logger

	// Monitor provides access to Prometheus metrics
	Monitor hookMetrics
}

// hookMetrics holds the Prometheus metrics for a hook.
type hookMetrics struct {
	// MessagesHandled counts messages the hook accepted and handled successfully
	MessagesHandled prometheus.Counter

	// MessagesFailed counts messages the hook reported a failure for
	MessagesFailed prometheus.Counter

	// MessagesSkipped counts messages rejected by the filter
	MessagesSkipped prometheus.Counter
}

// NewBaseHookGRPC creates a new BaseHookGRPC instance.
// Plugins should call this in their constructor.
func NewBaseHookGRPC(pluginName string) *BaseHookGRPC {
	return &BaseHookGRPC{
		PluginName: pluginName,
		Filter:     filter.NewEmptyFilter(),
		Logger:     hclog.Default(),
	}
}

// Initialize handles common initialization tasks for all plugins.
// Plugins should call this method in their Initialize implementation
// before doing plugin-specific initialization.
//
// This method:
// - Stores the hook name
// - Sets up filtering based on the filter options
// - Initializes Prometheus metrics
func (b *BaseHookGRPC) Initialize(ctx context.Context, req *InitializeRequest) error {
	b.Name = req.Name
	if b.Logger == nil {
		b.Logger = hclog.Default()
	}

	f, err := filter.New(filter.FilterConfigFromOptions(req.Options))
	if err != nil {
		return err
	}
	b.Filter = f

	b.initMetrics()
	return nil
}

// Cleanup is a no-op for hooks that hold no resources.
func (b *BaseHookGRPC) Cleanup(ctx context.Context) error {
	return nil
}

// Accept applies the configured filter to a message.
func (b *BaseHookGRPC) Accept(ev *MessageEvent) bool {
	if b.Filter == nil || b.Filter.Accept(ev.Topic, ev.ClientID) {
		return true
	}
	if b.Monitor.MessagesSkipped != nil {
		b.Monitor.MessagesSkipped.Inc()
	}
	return false
}

// Record updates the handled/failed counters for a status.
func (b *BaseHookGRPC) Record(status Status) {
	if b.Monitor.MessagesHandled == nil {
		return
	}
	if status == StatusSuccess {
		b.Monitor.MessagesHandled.Inc()
	} else {
		b.Monitor.MessagesFailed.Inc()
	}
}

// initMetrics initializes Prometheus metrics for this hook.
func (b *BaseHookGRPC) initMetrics() {
	labels := prometheus.Labels{"hook_name": b.Name, "plugin_name": b.PluginName}

	b.Monitor.MessagesHandled = registerCounter(prometheus.CounterOpts{
		Name:        "payloadlog_messages_total",
		Help:        "Total number of messages handled by a hook",
		ConstLabels: labels,
	})
	b.Monitor.MessagesFailed = registerCounter(prometheus.CounterOpts{
		Name:        "payloadlog_errors_total",
		Help:        "Total number of messages a hook failed to handle",
		ConstLabels: labels,
	})
	b.Monitor.MessagesSkipped = registerCounter(prometheus.CounterOpts{
		Name:        "payloadlog_skipped_total",
		Help:        "Total number of messages rejected by a hook filter",
		ConstLabels: labels,
	})
}

// registerCounter registers a counter with the default registry, reusing
// the existing one when a hook with the same labels is initialized again.
func registerCounter(opts prometheus.CounterOpts) prometheus.Counter {
	c := prometheus.NewCounter(opts)
	if err := prometheus.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing
			}
		}
	}
	return c
}

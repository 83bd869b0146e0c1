// Package host is the broker side of the plugin ABI: it keeps the callbacks
// registered per event, dispatches events to them and manages plugin
// processes.
package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/exp/slices"
	"payloadlog.szuro.net/internal/logger"
	pluginPkg "payloadlog.szuro.net/pkg/plugin"
)

var ErrNotRegistered = errors.New("callback not registered")

var dispatchTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "payloadlog_host_dispatch_total",
		Help: "Total number of events dispatched to hooks by outcome",
	},
	[]string{"event", "status"},
)

// Callback handles a message event and reports the outcome.
type Callback func(ctx context.Context, ev *pluginPkg.MessageEvent) pluginPkg.Status

// Registration is the handle returned by Register. It identifies one
// callback and is needed to unregister it.
type Registration struct {
	ID    uuid.UUID
	Name  string
	Event pluginPkg.Event

	callback Callback
}

// Registry holds the callbacks registered per event.
type Registry struct {
	callbacks map[pluginPkg.Event][]*Registration
	mutex     sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		callbacks: make(map[pluginPkg.Event][]*Registration),
	}
}

// Register adds cb for event. Callbacks run in registration order.
func (r *Registry) Register(name string, event pluginPkg.Event, cb Callback) (*Registration, error) {
	if event != pluginPkg.EventMessage {
		return nil, fmt.Errorf("cannot register %s for %s: event not supported", name, event)
	}
	if cb == nil {
		return nil, fmt.Errorf("cannot register %s: nil callback", name)
	}

	reg := &Registration{
		ID:       uuid.New(),
		Name:     name,
		Event:    event,
		callback: cb,
	}

	r.mutex.Lock()
	r.callbacks[event] = append(r.callbacks[event], reg)
	r.mutex.Unlock()

	logger.Debug("Registered callback",
		slog.String("name", name),
		slog.String("event", event.String()),
		slog.String("id", reg.ID.String()))
	return reg, nil
}

// Unregister removes a callback added by Register.
func (r *Registry) Unregister(reg *Registration) error {
	if reg == nil {
		return ErrNotRegistered
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	regs := r.callbacks[reg.Event]
	i := slices.IndexFunc(regs, func(c *Registration) bool { return c.ID == reg.ID })
	if i < 0 {
		return ErrNotRegistered
	}
	r.callbacks[reg.Event] = slices.Delete(regs, i, i+1)
	return nil
}

// Len returns the number of callbacks registered for event.
func (r *Registry) Len(event pluginPkg.Event) int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.callbacks[event])
}

// Dispatch runs every message callback on the calling goroutine and stops
// at the first one that does not report success.
func (r *Registry) Dispatch(ctx context.Context, ev *pluginPkg.MessageEvent) pluginPkg.Status {
	r.mutex.RLock()
	regs := slices.Clone(r.callbacks[pluginPkg.EventMessage])
	r.mutex.RUnlock()

	for _, reg := range regs {
		status := reg.callback(ctx, ev)
		if status != pluginPkg.StatusSuccess {
			logger.Warn("Hook failed message",
				slog.String("hook", reg.Name),
				slog.String("client_id", ev.ClientID),
				slog.String("status", status.String()))
			dispatchTotal.WithLabelValues(pluginPkg.EventMessage.String(), status.String()).Inc()
			return status
		}
	}

	dispatchTotal.WithLabelValues(pluginPkg.EventMessage.String(), pluginPkg.StatusSuccess.String()).Inc()
	return pluginPkg.StatusSuccess
}

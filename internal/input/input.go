package input

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"payloadlog.szuro.net/internal/config"
	"payloadlog.szuro.net/internal/logger"
	pluginPkg "payloadlog.szuro.net/pkg/plugin"
)

var (
	ndjsonLinesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payloadlog_ndjson_lines_total",
			Help: "Total number of NDJSON message lines received per input",
		},
		[]string{"input"},
	)

	ndjsonParseErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payloadlog_ndjson_parse_errors_total",
			Help: "Total number of NDJSON parse errors per input",
		},
		[]string{"input"},
	)

	dispatchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payloadlog_ndjson_dispatch_failures_total",
			Help: "Total number of parsed messages a hook did not handle successfully per input",
		},
		[]string{"input"},
	)
)

// Dispatcher delivers a message event to the registered hooks.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev *pluginPkg.MessageEvent) pluginPkg.Status
}

// Inputer feeds captured broker messages to a Dispatcher.
type Inputer interface {
	IsReady() bool
	Prepare() error
	Start()
	Stop() error
}

type baseInput struct {
	name       string
	config     config.PayloadLogConf
	dispatcher Dispatcher
}

// handleLine parses one NDJSON line and dispatches it, returning the hook
// status. Empty and unparsable lines are skipped and report StatusSuccess;
// they are counted in ndjsonParseErrors instead.
func (bi *baseInput) handleLine(ctx context.Context, line []byte) pluginPkg.Status {
	if len(line) == 0 {
		return pluginPkg.StatusSuccess
	}

	ev, err := parseEvent(line)
	if err != nil {
		logger.Error("Failed to parse message line", slog.String("input", bi.name), slog.Any("error", err))
		ndjsonParseErrors.WithLabelValues(bi.name).Inc()
		return pluginPkg.StatusSuccess
	}
	ndjsonLinesReceived.WithLabelValues(bi.name).Inc()

	status := bi.dispatcher.Dispatch(ctx, ev)
	if status != pluginPkg.StatusSuccess {
		dispatchFailures.WithLabelValues(bi.name).Inc()
	}
	return status
}

func parseEvent(line []byte) (*pluginPkg.MessageEvent, error) {
	var ev pluginPkg.MessageEvent
	if err := json.Unmarshal(line, &ev); err != nil {
		return nil, err
	}
	if ev.ClientID == "" {
		return nil, fmt.Errorf("message without client_id")
	}
	return &ev, nil
}

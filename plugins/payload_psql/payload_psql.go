package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"
	"github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"payloadlog.szuro.net/internal/payloadlog"
	pluginPkg "payloadlog.szuro.net/pkg/plugin"
)

const (
	PLUGIN_NAME = "payload_psql"

	DefaultTable = "payload_log"

	flushBatch = 100
)

var connectionStats = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "payloadlog_psql_connection_stats",
	Help: "Connection stats related to PostgreSQL database",
}, []string{"hook_name", "conn"})

// PSQLPlugin stores message payloads in a PostgreSQL table with the same
// payload, date and time columns as the CSV log plus client id and topic.
type PSQLPlugin struct {
	pluginPkg.BaseHookGRPC

	// mu guards dbConn and buffer against Cleanup while messages are in flight.
	mu     sync.RWMutex
	dbConn *sql.DB
	insert string
	buffer *pluginPkg.MessageBuffer

	// flushMu lets a single OnMessage drain the buffer at a time.
	flushMu sync.Mutex
	exec    func(ctx context.Context, ev *pluginPkg.MessageEvent, receivedAt time.Time) error
	now     func() time.Time
}

// NewPSQLPlugin creates a new plugin instance
func NewPSQLPlugin(logger hclog.Logger) *PSQLPlugin {
	p := &PSQLPlugin{
		BaseHookGRPC: *pluginPkg.NewBaseHookGRPC(PLUGIN_NAME),
		now:          time.Now,
	}
	p.exec = p.insertRecord
	p.Logger = logger
	return p
}

// Initialize configures the plugin with settings from main application
func (p *PSQLPlugin) Initialize(ctx context.Context, req *pluginPkg.InitializeRequest) error {
	if err := p.BaseHookGRPC.Initialize(ctx, req); err != nil {
		return err
	}

	connection := req.Options["connection"]
	if connection == "" {
		return errors.New("missing connection option")
	}

	db, err := sql.Open("postgres", connection)
	if err != nil {
		p.Logger.Error("Failed to open connection", "error", err)
		return fmt.Errorf("failed to open connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		p.Logger.Error("Failed to ping database", "error", err)
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if err := applyPoolOptions(db, req.Options); err != nil {
		db.Close()
		return err
	}

	buffer, err := openBuffer(req.Options, p.Logger)
	if err != nil {
		db.Close()
		return err
	}

	p.mu.Lock()
	p.dbConn = db
	p.buffer = buffer
	p.insert = insertStatement(req.Options["table"])
	p.updateStats()
	p.mu.Unlock()

	p.Logger.Info("PostgreSQL plugin initialized", "name", req.Name)
	return nil
}

// OnMessage inserts one row per accepted message. With an offline buffer
// configured, rows that cannot be inserted are kept and retried after the
// next successful insert.
func (p *PSQLPlugin) OnMessage(ctx context.Context, ev *pluginPkg.MessageEvent) pluginPkg.Status {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.dbConn == nil {
		return pluginPkg.StatusUnknown
	}
	if !p.Accept(ev) {
		return pluginPkg.StatusSuccess
	}

	receivedAt := p.now()
	err := p.exec(ctx, ev, receivedAt)
	if err != nil {
		p.Logger.Error("Failed to insert payload", "client_id", ev.ClientID, "error", err)
		if p.buffer != nil {
			err = p.buffer.Add(ev, receivedAt)
		}
	} else if p.buffer != nil {
		p.flushBuffer(ctx)
	}

	status := payloadlog.StatusFromError(err)
	p.Record(status)
	return status
}

func (p *PSQLPlugin) insertRecord(ctx context.Context, ev *pluginPkg.MessageEvent, receivedAt time.Time) error {
	record := payloadlog.NewRecord(ev.Payload, receivedAt)
	_, err := p.dbConn.ExecContext(ctx, p.insert, ev.ClientID, ev.Topic, record.Payload, record.Date, record.Time)
	p.updateStats()
	return err
}

// flushBuffer retries one batch of buffered messages, keeping whatever
// still fails. If another message is already flushing, it returns at once.
func (p *PSQLPlugin) flushBuffer(ctx context.Context) {
	if !p.flushMu.TryLock() {
		return
	}
	defer p.flushMu.Unlock()

	buffered, err := p.buffer.Fetch(flushBatch)
	if err != nil {
		p.Logger.Error("Failed to read buffer", "error", err)
		return
	}

	delivered := make([]pluginPkg.BufferedMessage, 0, len(buffered))
	for _, msg := range buffered {
		if err := p.exec(ctx, &msg.Event, msg.ReceivedAt); err != nil {
			break
		}
		delivered = append(delivered, msg)
	}
	if len(delivered) == 0 {
		return
	}
	if err := p.buffer.Delete(delivered); err != nil {
		p.Logger.Error("Failed to delete from buffer", "error", err)
	}
	p.Logger.Debug("Flushed buffered payloads", "count", len(delivered))
}

// openBuffer opens the offline buffer when buffer_path and buffer_ttl
// (hours) are set.
func openBuffer(options map[string]string, logger hclog.Logger) (*pluginPkg.MessageBuffer, error) {
	dir, ttl := options["buffer_path"], options["buffer_ttl"]
	if dir == "" || ttl == "" {
		return nil, nil
	}
	hours, err := strconv.Atoi(ttl)
	if err != nil {
		return nil, fmt.Errorf("invalid buffer_ttl: %w", err)
	}
	return pluginPkg.OpenMessageBuffer(dir, time.Duration(hours)*time.Hour, logger)
}

// Cleanup releases any resources held by the plugin
func (p *PSQLPlugin) Cleanup(ctx context.Context) error {
	p.Logger.Info("Cleaning up PostgreSQL plugin")
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	if p.buffer != nil {
		errs = append(errs, p.buffer.Close())
		p.buffer = nil
	}
	if p.dbConn != nil {
		errs = append(errs, p.dbConn.Close())
		p.dbConn = nil
	}
	return errors.Join(errs...)
}

// insertStatement builds the insert for table, which defaults to DefaultTable.
// The name may be schema qualified.
func insertStatement(table string) string {
	if table == "" {
		table = DefaultTable
	}
	return fmt.Sprintf("INSERT INTO %s (client_id, topic, payload, date, time) VALUES ($1, $2, $3, $4, $5)", quoteTable(table))
}

func quoteTable(table string) string {
	for i := 0; i < len(table); i++ {
		if table[i] == '.' {
			return pq.QuoteIdentifier(table[:i]) + "." + pq.QuoteIdentifier(table[i+1:])
		}
	}
	return pq.QuoteIdentifier(table)
}

// applyPoolOptions sets connection pool limits from plugin options.
func applyPoolOptions(db *sql.DB, options map[string]string) error {
	for opt, val := range options {
		switch opt {
		case "max_conn", "max_idle":
			n, err := strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", opt, err)
			}
			if opt == "max_conn" {
				db.SetMaxOpenConns(n)
			} else {
				db.SetMaxIdleConns(n)
			}
		case "max_conn_time", "max_idle_time":
			dur, err := time.ParseDuration(val)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", opt, err)
			}
			if opt == "max_conn_time" {
				db.SetConnMaxLifetime(dur)
			} else {
				db.SetConnMaxIdleTime(dur)
			}
		}
	}
	return nil
}

// updateStats updates connection pool statistics
func (p *PSQLPlugin) updateStats() {
	stats := p.dbConn.Stats()
	connectionStats.WithLabelValues(p.Name, "idle").Set(float64(stats.Idle))
	connectionStats.WithLabelValues(p.Name, "used").Set(float64(stats.InUse))
	connectionStats.WithLabelValues(p.Name, "max").Set(float64(stats.MaxOpenConnections))
}

// main is the entry point for the plugin binary
func main() {
	impl := NewPSQLPlugin(pluginPkg.NewPluginLogger(os.Stderr, hclog.Debug))

	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: pluginPkg.Handshake,
		Plugins: map[string]plugin.Plugin{
			pluginPkg.HookPluginName: &pluginPkg.HookPlugin{Impl: impl},
		},
		GRPCServer: plugin.DefaultGRPCServer,
	})

	impl.Logger.Info("Plugin exited")
}

// Package payloadlog appends message payloads to per-client CSV files.
//
// Every client gets <root>/<client id>/payload.csv. The file is created with
// the Header line on the first message and only ever appended to afterwards.
// There is no locking around a client's file; concurrent appends rely on
// O_APPEND semantics of the operating system.
package payloadlog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	pluginPkg "payloadlog.szuro.net/pkg/plugin"
)

const (
	// DefaultRoot is where payload logs go unless the host overrides it.
	DefaultRoot = "/var/log/mosquitto/payloadLogs"

	// FileName is the per-client log file name.
	FileName = "payload.csv"

	DirMode  fs.FileMode = 0755
	FileMode fs.FileMode = 0644
)

// Clock returns the current wall clock time.
type Clock func() (time.Time, error)

func systemClock() (time.Time, error) {
	return time.Now(), nil
}

// ErrorLogger receives failed appends. Both *slog.Logger and hclog.Logger
// satisfy it.
type ErrorLogger interface {
	Error(msg string, args ...any)
}

type Logger struct {
	root   string
	now    Clock
	logger ErrorLogger
}

type Option func(*Logger)

// WithClock replaces the wall clock, mostly for tests.
func WithClock(c Clock) Option {
	return func(l *Logger) {
		l.now = c
	}
}

// WithLogger sets where failed appends are reported.
func WithLogger(logger ErrorLogger) Option {
	return func(l *Logger) {
		l.logger = logger
	}
}

// New creates a Logger writing under root. An empty root means DefaultRoot.
func New(root string, opts ...Option) *Logger {
	if root == "" {
		root = DefaultRoot
	}
	l := &Logger{
		root:   root,
		now:    systemClock,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Logger) Root() string {
	return l.root
}

// ResolvePath returns root/clientID/payload.csv.
func (l *Logger) ResolvePath(clientID string) string {
	return filepath.Join(l.root, clientID, FileName)
}

// OnMessage is the message event callback. It appends the payload and
// reports the outcome as a host status.
func (l *Logger) OnMessage(ctx context.Context, ev *pluginPkg.MessageEvent) pluginPkg.Status {
	err := l.Append(ev.ClientID, ev.Payload)
	if err != nil {
		l.logger.Error("Failed to log payload",
			"client_id", ev.ClientID,
			"error", err)
	}
	return StatusFromError(err)
}

// Append writes one record for clientID, creating the root directory,
// the client directory and the header-initialized file as needed.
// Nothing is retried.
func (l *Logger) Append(clientID string, payload []byte) error {
	now, err := l.now()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrClock, err)
	}
	record := NewRecord(payload, now)

	if err := validateClientID(clientID); err != nil {
		return err
	}

	if err := ensureDir(l.root); err != nil {
		return err
	}
	if err := ensureDir(filepath.Join(l.root, clientID)); err != nil {
		return err
	}

	path := l.ResolvePath(clientID)
	if err := ensureHeader(path); err != nil {
		return err
	}

	return appendRecord(path, record)
}

// validateClientID rejects identifiers that would escape the client's
// own directory under root.
func validateClientID(clientID string) error {
	if clientID == "" || clientID == "." || clientID == ".." ||
		strings.ContainsAny(clientID, `/\`) || strings.ContainsRune(clientID, 0) {
		return fmt.Errorf("%w: %q", ErrClientID, clientID)
	}
	return nil
}

// ensureDir creates a single directory level with DirMode if it is missing.
// The parent must already exist.
func ensureDir(dir string) error {
	if _, err := os.Stat(dir); err == nil {
		return nil
	}

	if err := os.Mkdir(dir, DirMode); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil
		}
		return fmt.Errorf("%w %s: %v", ErrMkdir, dir, err)
	}
	// Mkdir is subject to umask; the log layout promises DirMode.
	if err := os.Chmod(dir, DirMode); err != nil {
		return fmt.Errorf("%w %s: %v", ErrMkdir, dir, err)
	}
	return nil
}

// ensureHeader creates path with the header line if it does not exist.
// The header is written to a temporary file first and linked into place,
// so payload.csv never exists without a complete header.
func ensureHeader(path string) error {
	if _, err := os.Lstat(path); err == nil {
		return nil
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+FileName+"-*")
	if err != nil {
		return fmt.Errorf("%w %s: %v", ErrOpen, path, err)
	}
	defer os.Remove(tmp.Name())

	_, werr := io.WriteString(tmp, Header)
	cerr := tmp.Close()
	if werr != nil {
		return fmt.Errorf("%w %s: %v", ErrWrite, path, werr)
	}
	if cerr != nil {
		return fmt.Errorf("%w %s: %v", ErrWrite, path, cerr)
	}
	if err := os.Chmod(tmp.Name(), FileMode); err != nil {
		return fmt.Errorf("%w %s: %v", ErrOpen, path, err)
	}

	if err := os.Link(tmp.Name(), path); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil
		}
		return fmt.Errorf("%w %s: %v", ErrOpen, path, err)
	}
	return nil
}

// appendRecord writes the record with a single write in append mode.
func appendRecord(path string, record Record) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return fmt.Errorf("%w %s: %v", ErrOpen, path, err)
	}

	line := record.Bytes()
	n, werr := f.Write(line)
	if werr == nil && n < len(line) {
		werr = io.ErrShortWrite
	}
	cerr := f.Close()
	if werr != nil {
		return fmt.Errorf("%w %s: %v", ErrWrite, path, werr)
	}
	if cerr != nil {
		return fmt.Errorf("%w %s: %v", ErrWrite, path, cerr)
	}
	return nil
}

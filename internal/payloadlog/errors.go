package payloadlog

import (
	"errors"

	pluginPkg "payloadlog.szuro.net/pkg/plugin"
)

var (
	ErrClock    = errors.New("cannot read clock")
	ErrClientID = errors.New("invalid client id")
	ErrMkdir    = errors.New("cannot create log directory")
	ErrOpen     = errors.New("cannot open log file")
	ErrWrite    = errors.New("cannot write log file")

	// ErrNoMem is never returned by Append; allocation failures abort the
	// process. It exists so sinks that can run out of a bounded resource
	// report StatusNoMem to the host.
	ErrNoMem = errors.New("out of memory")
)

// StatusFromError maps an Append error to the status reported to the host.
func StatusFromError(err error) pluginPkg.Status {
	switch {
	case err == nil:
		return pluginPkg.StatusSuccess
	case errors.Is(err, ErrNoMem):
		return pluginPkg.StatusNoMem
	default:
		return pluginPkg.StatusUnknown
	}
}

package plugin

import (
	"io"

	"github.com/hashicorp/go-hclog"
)

// NewPluginLogger returns a logger for use inside a plugin process.
// It writes hclog JSON, which the host's go-plugin client parses and
// re-emits at the right level under the hook name.
func NewPluginLogger(w io.Writer, level hclog.Level) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Output:     w,
		Level:      level,
		JSONFormat: true,
	})
}

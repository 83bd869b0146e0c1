package config

import (
	"maps"

	"payloadlog.szuro.net/pkg/filter"
)

// Hook configures one hook instance backed by a plugin executable.
type Hook struct {
	Name       string
	PluginName string `yaml:"type"`
	Options    map[string]string
	Filter     filter.FilterConfig `yaml:"filter"`
}

// PluginOptions merges the filter into the plugin options. Explicit
// options win over filter keys.
func (h Hook) PluginOptions() map[string]string {
	opts := h.Filter.Options()
	maps.Copy(opts, h.Options)
	return opts
}

package filter

import (
	"strings"
)

// Option keys used to pass a FilterConfig to a hook through its
// plugin options.
const (
	OptAcceptedTopics  = "accepted_topics"
	OptRejectedTopics  = "rejected_topics"
	OptAcceptedClients = "accepted_clients"
	OptRejectedClients = "rejected_clients"
)

type Filter interface {
	Accept(topic, clientID string) bool
}

// FilterConfig lists glob patterns for topics and client identifiers.
// Topic patterns use '/' as the level separator: '*' stays within one
// level, '**' spans levels.
type FilterConfig struct {
	AcceptedTopics  []string `yaml:"accepted_topics"`
	RejectedTopics  []string `yaml:"rejected_topics"`
	AcceptedClients []string `yaml:"accepted_clients"`
	RejectedClients []string `yaml:"rejected_clients"`
}

func (fc FilterConfig) IsEmpty() bool {
	return len(fc.AcceptedTopics) == 0 && len(fc.RejectedTopics) == 0 &&
		len(fc.AcceptedClients) == 0 && len(fc.RejectedClients) == 0
}

// Options flattens the config into plugin options. Empty lists are omitted.
func (fc FilterConfig) Options() map[string]string {
	opts := make(map[string]string)
	setList(opts, OptAcceptedTopics, fc.AcceptedTopics)
	setList(opts, OptRejectedTopics, fc.RejectedTopics)
	setList(opts, OptAcceptedClients, fc.AcceptedClients)
	setList(opts, OptRejectedClients, fc.RejectedClients)
	return opts
}

// FilterConfigFromOptions is the inverse of FilterConfig.Options.
func FilterConfigFromOptions(opts map[string]string) FilterConfig {
	return FilterConfig{
		AcceptedTopics:  getList(opts, OptAcceptedTopics),
		RejectedTopics:  getList(opts, OptRejectedTopics),
		AcceptedClients: getList(opts, OptAcceptedClients),
		RejectedClients: getList(opts, OptRejectedClients),
	}
}

func setList(opts map[string]string, key string, list []string) {
	if len(list) != 0 {
		opts[key] = strings.Join(list, ",")
	}
}

func getList(opts map[string]string, key string) []string {
	raw, ok := opts[key]
	if !ok {
		return nil
	}
	var list []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}

// New returns an EmptyFilter for an empty config and a GlobFilter otherwise.
func New(fc FilterConfig) (Filter, error) {
	if fc.IsEmpty() {
		return NewEmptyFilter(), nil
	}
	return NewGlobFilter(fc)
}

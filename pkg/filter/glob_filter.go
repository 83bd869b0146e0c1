package filter

import (
	"fmt"

	"github.com/gobwas/glob"
	"golang.org/x/exp/slices"
)

const topicSeparator = '/'

type GlobFilter struct {
	acceptedTopics  []glob.Glob
	rejectedTopics  []glob.Glob
	acceptedClients []glob.Glob
	rejectedClients []glob.Glob
	active          bool
}

func NewGlobFilter(fc FilterConfig) (*GlobFilter, error) {
	var (
		f   GlobFilter
		err error
	)

	if f.acceptedTopics, err = compileAll(fc.AcceptedTopics, topicSeparator); err != nil {
		return nil, err
	}
	if f.rejectedTopics, err = compileAll(fc.RejectedTopics, topicSeparator); err != nil {
		return nil, err
	}
	if f.acceptedClients, err = compileAll(fc.AcceptedClients); err != nil {
		return nil, err
	}
	if f.rejectedClients, err = compileAll(fc.RejectedClients); err != nil {
		return nil, err
	}

	f.active = !fc.IsEmpty()
	return &f, nil
}

func compileAll(patterns []string, separators ...rune) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, separators...)
		if err != nil {
			return nil, fmt.Errorf("invalid filter pattern %q: %w", pattern, err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

// Accept checks topic and client id independently; both must pass.
func (f *GlobFilter) Accept(topic, clientID string) bool {
	if !f.active {
		return true
	}
	return match(topic, f.acceptedTopics, f.rejectedTopics) &&
		match(clientID, f.acceptedClients, f.rejectedClients)
}

// Check if value should be accepted or not
// No patterns specified -> everything is accepted
// only accepted patterns are provided -> only matching values are allowed
// only rejected patterns are specified -> everything is allowed except for matching values
// both are provided -> only accepted values that were not rejected later are accepted
func match(value string, accepted, rejected []glob.Glob) bool {
	matches := func(g glob.Glob) bool { return g.Match(value) }

	if len(accepted) != 0 && !slices.ContainsFunc(accepted, matches) {
		return false
	}
	return !slices.ContainsFunc(rejected, matches)
}

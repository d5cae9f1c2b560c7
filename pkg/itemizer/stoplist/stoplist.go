// Package stoplist matches tokens against a stop-word list. Entries prefixed
// with "rgx:" are regular expressions anchored at the start of the token.
package stoplist

import (
	"fmt"
	"regexp"
	"strings"
)

// RegexPrefix marks a list entry as a regular expression.
const RegexPrefix = "rgx:"

// Manager holds stop words and stop patterns.
type Manager struct {
	stops    map[string]struct{}
	patterns []*regexp.Regexp
}

// NewManager parses entries into a Manager.
func NewManager(entries []string) (*Manager, error) {
	m := &Manager{stops: make(map[string]struct{}, len(entries))}
	for _, e := range entries {
		if err := m.Add(e); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// IsStop checks if a token is a stop word or matches a stop pattern.
func (m *Manager) IsStop(token string) bool {
	if m == nil {
		return false
	}
	if _, ok := m.stops[token]; ok {
		return true
	}
	for _, re := range m.patterns {
		if re.MatchString(token) {
			return true
		}
	}
	return false
}

// Add adds a word or, with the "rgx:" prefix, a pattern.
func (m *Manager) Add(entry string) error {
	if m.stops == nil {
		m.stops = make(map[string]struct{})
	}
	if expr, ok := strings.CutPrefix(entry, RegexPrefix); ok {
		re, err := regexp.Compile("^(?:" + expr + ")")
		if err != nil {
			return fmt.Errorf("stop pattern %q: %w", expr, err)
		}
		m.patterns = append(m.patterns, re)
		return nil
	}
	m.stops[entry] = struct{}{}
	return nil
}

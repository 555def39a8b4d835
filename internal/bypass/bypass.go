// Package bypass matches hosts against the no-proxy exclusion pattern.
package bypass

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// Matcher answers whether a host is excluded from proxying. Safe for
// concurrent use; the pattern can be swapped at runtime.
type Matcher struct {
	mu      sync.RWMutex
	pattern string
	re      *regexp.Regexp
}

// New compiles the given no-proxy pattern into a matcher.
func New(pattern string) (*Matcher, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("bypass: invalid no-proxy pattern %q: %w", pattern, err)
	}
	return &Matcher{pattern: pattern, re: re}, nil
}

// SetPattern replaces the exclusion pattern.
func (m *Matcher) SetPattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("bypass: invalid no-proxy pattern %q: %w", pattern, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.pattern = pattern
	m.re = re
	return nil
}

// Pattern returns the current exclusion pattern.
func (m *Matcher) Pattern() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pattern
}

// Match reports whether the host should bypass the proxy. A :port suffix is
// stripped before matching.
func (m *Matcher) Match(host string) bool {
	host = strings.TrimSpace(host)
	if host == "" {
		return false
	}

	// Remove port if present. Bracketed IPv6 literals keep their brackets
	// stripped as well so the pattern sees the bare address.
	if strings.HasPrefix(host, "[") {
		if idx := strings.Index(host, "]"); idx != -1 {
			host = host[1:idx]
		}
	} else if idx := strings.LastIndex(host, ":"); idx != -1 && !strings.Contains(host[:idx], ":") {
		host = host[:idx]
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.re.MatchString(host)
}

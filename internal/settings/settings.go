// Package settings resolves proxy settings from explicit configuration and
// the process environment.
package settings

import (
	"fmt"
	"os"
	"sync"
)

// Setting keys understood by the store.
const (
	KeyHTTPProxy      = "http-proxy"
	KeyHTTPSProxy     = "https-proxy"
	KeySocksProxy     = "socks-proxy"
	KeyNoProxyPattern = "no-proxy-pattern"
)

// DefaultNoProxyPattern is used when neither the no-proxy setting nor the
// NO_PROXY environment variable is set. It matches localhost and the common
// private address ranges.
const DefaultNoProxyPattern = `^(localhost|10\..*|192\.168\..*)`

// envVars maps setting keys to the environment variables they default to.
var envVars = map[string]string{
	KeyHTTPProxy:      "HTTP_PROXY",
	KeyHTTPSProxy:     "HTTPS_PROXY",
	KeySocksProxy:     "SOCKS",
	KeyNoProxyPattern: "NO_PROXY",
}

// Store holds proxy settings. Explicit values take precedence over the
// environment snapshot captured at construction time. The snapshot is taken
// once; any shell-environment inheritance (login shell under a graphical
// session, etc.) must have happened before the store is created.
type Store struct {
	mu       sync.RWMutex
	explicit map[string]string
	env      map[string]string
}

// New creates a store with an environment snapshot from the current process.
func New() *Store {
	return NewWithLookup(os.LookupEnv)
}

// NewWithLookup creates a store using the given environment lookup function.
// Tests use this to run against a controlled environment.
func NewWithLookup(lookup func(string) (string, bool)) *Store {
	env := make(map[string]string, len(envVars))
	for _, name := range envVars {
		if v, ok := lookup(name); ok && v != "" {
			env[name] = v
		}
	}
	return &Store{
		explicit: make(map[string]string),
		env:      env,
	}
}

// Set assigns an explicit value for a setting, overriding the environment.
// An empty value clears the explicit assignment.
func (s *Store) Set(key, value string) error {
	if _, ok := envVars[key]; !ok {
		return fmt.Errorf("settings: unknown key %q", key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if value == "" {
		delete(s.explicit, key)
	} else {
		s.explicit[key] = value
	}
	return nil
}

// Get resolves a setting. The second return value reports whether a value is
// configured at all; callers must treat (_, false) as "nothing configured",
// not as an error.
//
// Fallback chain: explicit value, then environment variable, then the
// documented defaults (https borrows http's value, and the no-proxy pattern
// falls back to DefaultNoProxyPattern).
func (s *Store) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.get(key)
}

// get is the lock-free resolution used by Get; callers hold s.mu.
func (s *Store) get(key string) (string, bool) {
	if v, ok := s.explicit[key]; ok {
		return v, true
	}
	if name, ok := envVars[key]; ok {
		if v, ok := s.env[name]; ok {
			return v, true
		}
	}

	switch key {
	case KeyHTTPSProxy:
		return s.get(KeyHTTPProxy)
	case KeyNoProxyPattern:
		return DefaultNoProxyPattern, true
	}
	return "", false
}

// NoProxyPattern returns the effective no-proxy pattern. Always non-empty
// because of the built-in default.
func (s *Store) NoProxyPattern() string {
	v, _ := s.Get(KeyNoProxyPattern)
	return v
}

// Package proxymap holds the active proxy map consulted by outbound
// transports: an ordered mapping from protocol name to proxy address.
package proxymap

import "sync"

// NoProxyKey is the synthetic key whose presence means no-proxy exclusions
// are honored ("scoped" mode). When absent, the proxy applies to all hosts
// ("global" mode). Its value is the exclusion pattern, not an address.
const NoProxyKey = "no_proxy"

// Entry is a single protocol-to-address binding. Address must already be
// normalized (no scheme prefix) for real protocol keys.
type Entry struct {
	Protocol string
	Address  string
}

// Map is the active proxy map. A protocol key is present exactly when
// proxying is enabled for that protocol; absence means direct connection.
// Insertion order is preserved. Safe for concurrent use.
type Map struct {
	mu      sync.RWMutex
	entries []Entry
}

// New returns an empty map.
func New() *Map {
	return &Map{}
}

// Set inserts or updates a binding, keeping the original position on update.
func (m *Map) Set(protocol, address string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.entries {
		if m.entries[i].Protocol == protocol {
			m.entries[i].Address = address
			return
		}
	}
	m.entries = append(m.entries, Entry{Protocol: protocol, Address: address})
}

// Delete removes a binding if present.
func (m *Map) Delete(protocol string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.entries {
		if m.entries[i].Protocol == protocol {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return
		}
	}
}

// Get returns the address bound to a protocol and whether it is present.
func (m *Map) Get(protocol string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, e := range m.entries {
		if e.Protocol == protocol {
			return e.Address, true
		}
	}
	return "", false
}

// Has reports whether a protocol key is present.
func (m *Map) Has(protocol string) bool {
	_, ok := m.Get(protocol)
	return ok
}

// Len returns the number of bindings, including NoProxyKey if present.
func (m *Map) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Entries returns all bindings in insertion order.
func (m *Map) Entries() []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Protocols returns the enabled protocol keys in insertion order, excluding
// NoProxyKey.
func (m *Map) Protocols() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		if e.Protocol != NoProxyKey {
			out = append(out, e.Protocol)
		}
	}
	return out
}

// Snapshot returns a copy of the current bindings for later restoration.
func (m *Map) Snapshot() []Entry {
	return m.Entries()
}

// Replace swaps the map contents for the given bindings. Used with Snapshot
// to implement the save/restore discipline of scoped overrides.
func (m *Map) Replace(entries []Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = make([]Entry, len(entries))
	copy(m.entries, entries)
}

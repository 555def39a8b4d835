// Package scope provides scoped proxy overrides: a substitute proxy map is
// installed for the duration of a function and the prior map is restored on
// every exit path.
package scope

import (
	"github.com/rennerdo30/heimdall/internal/metrics"
	"github.com/rennerdo30/heimdall/internal/proxymap"
	"github.com/rennerdo30/heimdall/internal/registry"
	"github.com/rennerdo30/heimdall/internal/settings"
)

// Scope runs functions under temporary proxy maps. Invocations nest: each
// call saves and restores its own snapshot, so an inner override never
// clobbers an outer one. Metrics may be nil.
type Scope struct {
	proxies *proxymap.Map
	metrics *metrics.Metrics
}

// New creates a Scope over the given proxy map.
func New(proxies *proxymap.Map, m *metrics.Metrics) *Scope {
	return &Scope{proxies: proxies, metrics: m}
}

// WithConfigured installs a temporary map built from the configured addresses
// of the listed protocols, runs fn, and restores the prior map. Protocols
// without a configured address are left out of the temporary map. Resolution
// errors (unsupported protocol, bad address) abort before fn runs.
func (s *Scope) WithConfigured(store *settings.Store, protocols []string, fn func() error) error {
	entries := make([]proxymap.Entry, 0, len(protocols))
	for _, p := range protocols {
		addr, ok, err := registry.ResolveAddress(store, p)
		if err != nil {
			return err
		}
		if ok {
			entries = append(entries, proxymap.Entry{Protocol: p, Address: addr})
		}
	}

	s.observe("configured")
	return s.run(entries, fn)
}

// WithExplicit installs the caller-supplied bindings verbatim, runs fn, and
// restores the prior map. No settings lookup and no normalization happen;
// the caller provides pre-normalized addresses.
func (s *Scope) WithExplicit(entries []proxymap.Entry, fn func() error) error {
	s.observe("explicit")
	return s.run(entries, fn)
}

// run performs the save/install/restore cycle. Restoration is deferred so it
// also runs when fn returns an error or panics.
func (s *Scope) run(entries []proxymap.Entry, fn func() error) error {
	prior := s.proxies.Snapshot()
	s.proxies.Replace(entries)
	defer s.proxies.Replace(prior)

	return fn()
}

func (s *Scope) observe(kind string) {
	if s.metrics != nil {
		s.metrics.OverridesTotal.WithLabelValues(kind).Inc()
	}
}

// Package transport wires the active proxy map into net/http: every outbound
// request consults the map to decide whether it goes through a proxy.
package transport

import (
	"net/http"
	"net/url"
	"sync"

	"github.com/rennerdo30/heimdall/internal/bypass"
	"github.com/rennerdo30/heimdall/internal/proxymap"
)

// ProxyFunc returns a proxy selection function for http.Transport.Proxy that
// reads the map on every request:
//
//   - no key for the request's scheme: direct connection
//   - no_proxy key present and the host matches its pattern: direct connection
//   - otherwise: route through the mapped address
//
// The exclusion matcher is compiled once and only recompiled when the stored
// pattern changes. An invalid no-proxy pattern in the map fails the request
// rather than silently proxying an excluded host.
func ProxyFunc(m *proxymap.Map) func(*http.Request) (*url.URL, error) {
	var mu sync.Mutex
	var matcher *bypass.Matcher

	return func(req *http.Request) (*url.URL, error) {
		scheme := req.URL.Scheme
		addr, ok := m.Get(scheme)
		if !ok {
			return nil, nil
		}

		if pattern, scoped := m.Get(proxymap.NoProxyKey); scoped {
			mu.Lock()
			if matcher == nil {
				next, err := bypass.New(pattern)
				if err != nil {
					mu.Unlock()
					return nil, err
				}
				matcher = next
			} else if matcher.Pattern() != pattern {
				if err := matcher.SetPattern(pattern); err != nil {
					mu.Unlock()
					return nil, err
				}
			}
			excluded := matcher.Match(req.URL.Host)
			mu.Unlock()

			if excluded {
				return nil, nil
			}
		}

		// Proxy connections themselves are plain HTTP CONNECT endpoints.
		return &url.URL{Scheme: "http", Host: addr}, nil
	}
}

// Client returns an HTTP client whose transport consults the map.
func Client(m *proxymap.Map) *http.Client {
	return &http.Client{
		Transport: &http.Transport{Proxy: ProxyFunc(m)},
	}
}

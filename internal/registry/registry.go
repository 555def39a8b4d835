// Package registry defines the fixed set of proxy-capable protocols and
// resolves their configured addresses.
package registry

import (
	"errors"
	"fmt"

	"github.com/rennerdo30/heimdall/internal/proxyaddr"
	"github.com/rennerdo30/heimdall/internal/settings"
)

// ErrUnsupportedProtocol is returned for protocols outside the registry.
var ErrUnsupportedProtocol = errors.New("registry: unsupported protocol")

// protocols maps each supported protocol to its settings key.
var protocols = map[string]string{
	"http":  settings.KeyHTTPProxy,
	"https": settings.KeyHTTPSProxy,
}

// Protocols returns the supported protocol names in stable order.
func Protocols() []string {
	return []string{"http", "https"}
}

// Supported reports whether a protocol is in the registry.
func Supported(protocol string) bool {
	_, ok := protocols[protocol]
	return ok
}

// ResolveAddress looks up a protocol's configured proxy address and
// normalizes it. An unset setting yields ("", false, nil), meaning no address
// is configured, which callers must not confuse with the error returned for
// unsupported protocols.
func ResolveAddress(store *settings.Store, protocol string) (string, bool, error) {
	key, ok := protocols[protocol]
	if !ok {
		return "", false, fmt.Errorf("%w: %q", ErrUnsupportedProtocol, protocol)
	}

	raw, ok := store.Get(key)
	if !ok {
		return "", false, nil
	}

	addr, err := proxyaddr.Normalize(raw)
	if err != nil {
		return "", false, fmt.Errorf("resolve %s proxy: %w", protocol, err)
	}
	return addr, true, nil
}

// Package proxyenv renders the active proxy map as proxy environment
// variables for child processes.
package proxyenv

import (
	"os"
	"strings"

	"github.com/rennerdo30/heimdall/internal/proxymap"
)

// managed lists the variables Environ controls. Both spellings are emitted
// and both are scrubbed from inherited environments.
var managed = []string{
	"HTTP_PROXY", "http_proxy",
	"HTTPS_PROXY", "https_proxy",
	"ALL_PROXY", "all_proxy",
	"NO_PROXY", "no_proxy",
}

// Environ renders the map as "KEY=VALUE" pairs suitable for exec.Cmd.Env.
// Protocol bindings become <PROTOCOL>_PROXY with an http:// prefix restored;
// the no_proxy binding is passed through as NO_PROXY. socks, when non-empty,
// becomes ALL_PROXY. Upper- and lowercase spellings are both emitted since
// tools disagree on which they read.
func Environ(m *proxymap.Map, socks string) []string {
	var env []string
	for _, e := range m.Entries() {
		switch e.Protocol {
		case proxymap.NoProxyKey:
			env = append(env,
				"NO_PROXY="+e.Address,
				"no_proxy="+e.Address,
			)
		default:
			value := "http://" + e.Address
			upper := strings.ToUpper(e.Protocol) + "_PROXY"
			lower := strings.ToLower(e.Protocol) + "_proxy"
			env = append(env, upper+"="+value, lower+"="+value)
		}
	}

	if socks != "" {
		env = append(env,
			"ALL_PROXY="+socks,
			"all_proxy="+socks,
		)
	}

	return env
}

// Merge layers the map's proxy variables over an inherited environment,
// dropping any inherited proxy variables first so absent bindings mean
// "direct connection" rather than "whatever the parent had".
func Merge(base []string, m *proxymap.Map, socks string) []string {
	out := make([]string, 0, len(base)+8)
	for _, kv := range base {
		if isManaged(kv) {
			continue
		}
		out = append(out, kv)
	}
	return append(out, Environ(m, socks)...)
}

// ProcessEnviron returns the current process environment with the map's
// proxy variables applied.
func ProcessEnviron(m *proxymap.Map, socks string) []string {
	return Merge(os.Environ(), m, socks)
}

func isManaged(kv string) bool {
	name, _, ok := strings.Cut(kv, "=")
	if !ok {
		return false
	}
	for _, v := range managed {
		if name == v {
			return true
		}
	}
	return false
}

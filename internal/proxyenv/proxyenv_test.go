package proxyenv

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rennerdo30/heimdall/internal/proxymap"
)

func TestEnviron(t *testing.T) {
	m := proxymap.New()
	m.Set("http", "proxy.corp:3128")
	m.Set("https", "proxy.corp:3129")
	m.Set(proxymap.NoProxyKey, `^localhost`)

	env := Environ(m, "")
	assert.Equal(t, []string{
		"HTTP_PROXY=http://proxy.corp:3128",
		"http_proxy=http://proxy.corp:3128",
		"HTTPS_PROXY=http://proxy.corp:3129",
		"https_proxy=http://proxy.corp:3129",
		"NO_PROXY=^localhost",
		"no_proxy=^localhost",
	}, env)
}

func TestEnviron_Socks(t *testing.T) {
	m := proxymap.New()

	env := Environ(m, "socks5://127.0.0.1:1080")
	assert.Equal(t, []string{
		"ALL_PROXY=socks5://127.0.0.1:1080",
		"all_proxy=socks5://127.0.0.1:1080",
	}, env)
}

func TestEnviron_Empty(t *testing.T) {
	assert.Empty(t, Environ(proxymap.New(), ""))
}

func TestMerge_ScrubsInheritedProxyVars(t *testing.T) {
	m := proxymap.New()
	m.Set("http", "fresh.corp:3128")

	base := []string{
		"PATH=/usr/bin",
		"HTTP_PROXY=http://stale.corp:9999",
		"no_proxy=stale-pattern",
		"HOME=/home/user",
	}

	env := Merge(base, m, "")
	assert.Equal(t, []string{
		"PATH=/usr/bin",
		"HOME=/home/user",
		"HTTP_PROXY=http://fresh.corp:3128",
		"http_proxy=http://fresh.corp:3128",
	}, env)
}

func TestMerge_EmptyMapMeansDirect(t *testing.T) {
	base := []string{
		"HTTPS_PROXY=http://stale.corp:9999",
		"TERM=xterm",
	}

	env := Merge(base, proxymap.New(), "")
	assert.Equal(t, []string{"TERM=xterm"}, env)
}

func TestProcessEnviron(t *testing.T) {
	t.Setenv("HTTP_PROXY", "http://stale.corp:9999")

	m := proxymap.New()
	m.Set("http", "fresh.corp:3128")

	env := ProcessEnviron(m, "")
	assert.Contains(t, env, "HTTP_PROXY=http://fresh.corp:3128")
	assert.NotContains(t, env, "HTTP_PROXY=http://stale.corp:9999")
}

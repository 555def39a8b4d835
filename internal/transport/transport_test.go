package transport

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rennerdo30/heimdall/internal/proxymap"
	"github.com/rennerdo30/heimdall/internal/settings"
)

func request(t *testing.T, rawurl string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, rawurl, nil)
	require.NoError(t, err)
	return req
}

func TestProxyFunc_KeyAbsentIsDirect(t *testing.T) {
	m := proxymap.New()
	proxy := ProxyFunc(m)

	u, err := proxy(request(t, "http://example.com/"))
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestProxyFunc_KeyPresentIsProxied(t *testing.T) {
	m := proxymap.New()
	m.Set("http", "proxy.corp:3128")
	proxy := ProxyFunc(m)

	u, err := proxy(request(t, "http://example.com/"))
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "http://proxy.corp:3128", u.String())

	// https has no binding, so it stays direct.
	u, err = proxy(request(t, "https://example.com/"))
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestProxyFunc_NoProxyExclusion(t *testing.T) {
	m := proxymap.New()
	m.Set("http", "proxy.corp:3128")
	m.Set(proxymap.NoProxyKey, settings.DefaultNoProxyPattern)
	proxy := ProxyFunc(m)

	u, err := proxy(request(t, "http://localhost:8080/health"))
	require.NoError(t, err)
	assert.Nil(t, u)

	u, err = proxy(request(t, "http://10.1.2.3/data"))
	require.NoError(t, err)
	assert.Nil(t, u)

	u, err = proxy(request(t, "http://example.com/"))
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "proxy.corp:3128", u.Host)
}

func TestProxyFunc_GlobalModeIgnoresExclusions(t *testing.T) {
	m := proxymap.New()
	m.Set("http", "proxy.corp:3128")
	// no no_proxy key: global mode
	proxy := ProxyFunc(m)

	u, err := proxy(request(t, "http://localhost:8080/"))
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "proxy.corp:3128", u.Host)
}

func TestProxyFunc_ReadsMapOnEveryRequest(t *testing.T) {
	m := proxymap.New()
	proxy := ProxyFunc(m)

	u, err := proxy(request(t, "http://example.com/"))
	require.NoError(t, err)
	assert.Nil(t, u)

	m.Set("http", "proxy.corp:3128")
	u, err = proxy(request(t, "http://example.com/"))
	require.NoError(t, err)
	require.NotNil(t, u)

	m.Delete("http")
	u, err = proxy(request(t, "http://example.com/"))
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestProxyFunc_PatternSwap(t *testing.T) {
	// The cached matcher must follow pattern changes in the map.
	m := proxymap.New()
	m.Set("http", "proxy.corp:3128")
	m.Set(proxymap.NoProxyKey, `^localhost$`)
	proxy := ProxyFunc(m)

	u, err := proxy(request(t, "http://localhost/"))
	require.NoError(t, err)
	assert.Nil(t, u)

	u, err = proxy(request(t, "http://internal.corp/"))
	require.NoError(t, err)
	require.NotNil(t, u)

	m.Set(proxymap.NoProxyKey, `^internal\.`)

	u, err = proxy(request(t, "http://internal.corp/"))
	require.NoError(t, err)
	assert.Nil(t, u)

	u, err = proxy(request(t, "http://localhost/"))
	require.NoError(t, err)
	require.NotNil(t, u)
}

func TestProxyFunc_InvalidPatternFails(t *testing.T) {
	m := proxymap.New()
	m.Set("http", "proxy.corp:3128")
	m.Set(proxymap.NoProxyKey, `([`)
	proxy := ProxyFunc(m)

	_, err := proxy(request(t, "http://example.com/"))
	assert.Error(t, err)
}

func TestClient(t *testing.T) {
	m := proxymap.New()
	c := Client(m)

	tr, ok := c.Transport.(*http.Transport)
	require.True(t, ok)
	assert.NotNil(t, tr.Proxy)
}

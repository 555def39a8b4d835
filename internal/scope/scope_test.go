package scope

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rennerdo30/heimdall/internal/proxymap"
	"github.com/rennerdo30/heimdall/internal/registry"
	"github.com/rennerdo30/heimdall/internal/settings"
)

func storeWith(env map[string]string) *settings.Store {
	return settings.NewWithLookup(func(name string) (string, bool) {
		v, ok := env[name]
		return v, ok
	})
}

func TestWithConfigured(t *testing.T) {
	store := storeWith(map[string]string{
		"HTTP_PROXY": "http://proxy.corp:3128",
	})
	m := proxymap.New()
	m.Set("https", "old.corp:9999")
	before := m.Snapshot()

	s := New(m, nil)
	err := s.WithConfigured(store, []string{"http"}, func() error {
		assert.Equal(t, []proxymap.Entry{
			{Protocol: "http", Address: "proxy.corp:3128"},
		}, m.Entries())
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, before, m.Entries())
}

func TestWithConfigured_UnconfiguredProtocolOmitted(t *testing.T) {
	store := storeWith(nil)
	m := proxymap.New()

	err := New(m, nil).WithConfigured(store, []string{"http", "https"}, func() error {
		assert.Equal(t, 0, m.Len())
		return nil
	})
	require.NoError(t, err)
}

func TestWithConfigured_UnsupportedProtocol(t *testing.T) {
	store := storeWith(nil)
	m := proxymap.New()
	m.Set("http", "keep.corp:1")

	called := false
	err := New(m, nil).WithConfigured(store, []string{"ftp"}, func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, registry.ErrUnsupportedProtocol)
	assert.False(t, called)
	assert.True(t, m.Has("http"))
}

func TestWithExplicit(t *testing.T) {
	m := proxymap.New()
	m.Set("http", "outer.corp:1")
	before := m.Snapshot()

	err := New(m, nil).WithExplicit([]proxymap.Entry{
		{Protocol: "https", Address: "x:1"},
	}, func() error {
		assert.Equal(t, []proxymap.Entry{
			{Protocol: "https", Address: "x:1"},
		}, m.Entries())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, before, m.Entries())
}

func TestNesting(t *testing.T) {
	store := storeWith(map[string]string{
		"HTTP_PROXY": "http://conf.corp:3128",
	})
	m := proxymap.New()
	m.Set(proxymap.NoProxyKey, settings.DefaultNoProxyPattern)
	before := m.Snapshot()

	s := New(m, nil)
	err := s.WithConfigured(store, []string{"http"}, func() error {
		return s.WithExplicit([]proxymap.Entry{
			{Protocol: "https", Address: "x:1"},
		}, func() error {
			// The inner override fully replaces the outer one.
			assert.Equal(t, []proxymap.Entry{
				{Protocol: "https", Address: "x:1"},
			}, m.Entries())
			return nil
		})
	})
	require.NoError(t, err)
	assert.Equal(t, before, m.Entries())
}

func TestRestoreOnError(t *testing.T) {
	m := proxymap.New()
	m.Set("http", "orig.corp:1")
	before := m.Snapshot()

	wantErr := errors.New("block failed")
	err := New(m, nil).WithExplicit([]proxymap.Entry{
		{Protocol: "http", Address: "temp.corp:2"},
	}, func() error {
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, before, m.Entries())
}

func TestRestoreOnPanic(t *testing.T) {
	m := proxymap.New()
	m.Set("http", "orig.corp:1")
	before := m.Snapshot()

	assert.Panics(t, func() {
		_ = New(m, nil).WithExplicit(nil, func() error {
			panic("boom")
		})
	})
	assert.Equal(t, before, m.Entries())
}

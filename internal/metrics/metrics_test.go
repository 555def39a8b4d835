package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	m := New()
	require.NotNil(t, m)
	assert.NotNil(t, m.TogglesTotal)
	assert.NotNil(t, m.GlobalToggles)
	assert.NotNil(t, m.OverridesTotal)
	assert.NotNil(t, m.ProxiesEnabled)
	assert.NotNil(t, m.Registry())
}

func TestHandler(t *testing.T) {
	m := New()
	m.TogglesTotal.WithLabelValues("http", "enabled").Inc()
	m.OverridesTotal.WithLabelValues("explicit").Inc()
	m.ProxiesEnabled.Set(1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "heimdall_toggles_total")
	assert.Contains(t, body, "heimdall_overrides_total")
	assert.Contains(t, body, "heimdall_proxies_enabled 1")
}

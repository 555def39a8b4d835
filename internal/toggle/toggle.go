// Package toggle implements the per-protocol proxy toggle state machine.
package toggle

import (
	"fmt"
	"strings"

	"github.com/rennerdo30/heimdall/internal/logging"
	"github.com/rennerdo30/heimdall/internal/metrics"
	"github.com/rennerdo30/heimdall/internal/proxymap"
	"github.com/rennerdo30/heimdall/internal/registry"
	"github.com/rennerdo30/heimdall/internal/settings"
)

// State describes the outcome of a toggle for one protocol.
type State string

// Toggle outcomes.
const (
	StateEnabled   State = "enabled"
	StateDisabled  State = "disabled"
	StateUnchanged State = "unchanged" // no address configured, toggle skipped
)

// Result is the user-visible outcome of a toggle operation.
type Result struct {
	Protocol string `json:"protocol"`
	State    State  `json:"state"`
	Address  string `json:"address,omitempty"`
	Message  string `json:"message"`
}

// Controller flips per-protocol proxy bindings in the active proxy map.
// Each protocol toggles independently; the global no-proxy switch is
// orthogonal to all of them.
type Controller struct {
	settings *settings.Store
	proxies  *proxymap.Map
	metrics  *metrics.Metrics // optional
}

// New creates a toggle controller over the given settings and proxy map.
// Metrics may be nil.
func New(store *settings.Store, proxies *proxymap.Map, m *metrics.Metrics) *Controller {
	return &Controller{
		settings: store,
		proxies:  proxies,
		metrics:  m,
	}
}

// Map returns the active proxy map the controller mutates.
func (c *Controller) Map() *proxymap.Map {
	return c.proxies
}

// ToggleProtocol flips proxying for one protocol. Disabled becomes enabled
// when an address is configured; enabled always becomes disabled. When no
// address is configured the state is left unchanged and the result carries an
// informational message; this is not an error.
func (c *Controller) ToggleProtocol(protocol string) (Result, error) {
	if !registry.Supported(protocol) {
		return Result{}, fmt.Errorf("%w: %q", registry.ErrUnsupportedProtocol, protocol)
	}

	log := logging.WithComponent("toggle")

	// Disabling needs no address: an enabled protocol always toggles off,
	// even when its setting has since become unresolvable.
	if c.proxies.Has(protocol) {
		c.proxies.Delete(protocol)
		c.observe(protocol, StateDisabled)
		log.Info("proxy disabled", "protocol", protocol)
		return Result{
			Protocol: protocol,
			State:    StateDisabled,
			Message:  fmt.Sprintf("%s proxy disabled", protocol),
		}, nil
	}

	addr, ok, err := registry.ResolveAddress(c.settings, protocol)
	if err != nil {
		return Result{}, err
	}

	if !ok {
		c.observe(protocol, StateUnchanged)
		log.Info("toggle skipped, no address configured", "protocol", protocol)
		return Result{
			Protocol: protocol,
			State:    StateUnchanged,
			Message:  fmt.Sprintf("no %s proxy address configured", protocol),
		}, nil
	}

	c.proxies.Set(protocol, addr)
	c.observe(protocol, StateEnabled)
	log.Info("proxy enabled", "protocol", protocol, "address", addr)
	return Result{
		Protocol: protocol,
		State:    StateEnabled,
		Address:  addr,
		Message:  fmt.Sprintf("%s proxy enabled (%s)", protocol, addr),
	}, nil
}

// GlobalResult is the outcome of toggling the global no-proxy switch.
type GlobalResult struct {
	// Global is true when the proxy now applies to all hosts, ignoring the
	// no-proxy exclusion pattern.
	Global  bool   `json:"global"`
	Pattern string `json:"pattern,omitempty"`
	Message string `json:"message"`
}

// ToggleGlobal flips whether no-proxy exclusions are honored. Removing the
// no_proxy key means the proxy applies to all hosts; inserting it (with the
// current pattern) means excluded hosts connect directly.
func (c *Controller) ToggleGlobal() GlobalResult {
	log := logging.WithComponent("toggle")
	if c.metrics != nil {
		c.metrics.GlobalToggles.Inc()
	}

	if c.proxies.Has(proxymap.NoProxyKey) {
		c.proxies.Delete(proxymap.NoProxyKey)
		log.Info("global mode enabled, exclusions ignored")
		return GlobalResult{
			Global:  true,
			Message: "proxy applies to all hosts",
		}
	}

	pattern := c.settings.NoProxyPattern()
	c.proxies.Set(proxymap.NoProxyKey, pattern)
	log.Info("scoped mode enabled", "pattern", pattern)
	return GlobalResult{
		Global:  false,
		Pattern: pattern,
		Message: fmt.Sprintf("hosts matching %s bypass the proxy", pattern),
	}
}

// GlobalMode reports whether the proxy currently applies to all hosts.
func (c *Controller) GlobalMode() bool {
	return !c.proxies.Has(proxymap.NoProxyKey)
}

// StatusLabel renders the current toggle state as a short label: enabled
// protocols joined by "+", with a trailing "!" in global mode. Recomputed on
// every call since the map can change between queries.
func (c *Controller) StatusLabel() string {
	label := strings.Join(c.proxies.Protocols(), "+")
	if c.GlobalMode() {
		label += "!"
	}
	return label
}

func (c *Controller) observe(protocol string, state State) {
	if c.metrics == nil {
		return
	}
	c.metrics.TogglesTotal.WithLabelValues(protocol, string(state)).Inc()
	c.metrics.ProxiesEnabled.Set(float64(len(c.proxies.Protocols())))
}

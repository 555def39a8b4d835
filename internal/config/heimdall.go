package config

import (
	"fmt"
	"net"
	"regexp"

	"github.com/rennerdo30/heimdall/internal/logging"
)

// Config is the main configuration for Heimdall.
type Config struct {
	Proxy   ProxySettings  `yaml:"proxy" json:"proxy"`
	Logging logging.Config `yaml:"logging" json:"logging"`
	API     APIConfig      `yaml:"api" json:"api"`
}

// ProxySettings holds the configured proxy addresses. Empty values fall back
// to the corresponding environment variables (HTTP_PROXY, HTTPS_PROXY, SOCKS,
// NO_PROXY); https additionally falls back to http.
type ProxySettings struct {
	HTTP           string `yaml:"http,omitempty" json:"http,omitempty"`
	HTTPS          string `yaml:"https,omitempty" json:"https,omitempty"`
	Socks          string `yaml:"socks,omitempty" json:"socks,omitempty"`
	NoProxyPattern string `yaml:"no_proxy_pattern,omitempty" json:"no_proxy_pattern,omitempty"`
}

// APIConfig contains settings for the control API server.
type APIConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Listen  string `yaml:"listen" json:"listen"`
	Token   string `yaml:"token,omitempty" json:"token,omitempty"`
}

// Default returns a configuration with sensible defaults.
func Default() Config {
	return Config{
		Logging: logging.DefaultConfig(),
		API: APIConfig{
			Enabled: true,
			Listen:  "127.0.0.1:7390",
		},
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Proxy.NoProxyPattern != "" {
		if _, err := regexp.Compile(c.Proxy.NoProxyPattern); err != nil {
			return fmt.Errorf("invalid no_proxy_pattern: %w", err)
		}
	}

	if c.API.Enabled {
		if _, _, err := net.SplitHostPort(c.API.Listen); err != nil {
			return fmt.Errorf("invalid api listen address %q: %w", c.API.Listen, err)
		}
	}

	return nil
}

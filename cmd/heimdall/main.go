// Package main provides the Heimdall entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rennerdo30/heimdall/internal/api"
	"github.com/rennerdo30/heimdall/internal/cli"
	"github.com/rennerdo30/heimdall/internal/config"
	"github.com/rennerdo30/heimdall/internal/logging"
	"github.com/rennerdo30/heimdall/internal/metrics"
	"github.com/rennerdo30/heimdall/internal/proxyenv"
	"github.com/rennerdo30/heimdall/internal/proxymap"
	"github.com/rennerdo30/heimdall/internal/registry"
	"github.com/rennerdo30/heimdall/internal/scope"
	"github.com/rennerdo30/heimdall/internal/settings"
	"github.com/rennerdo30/heimdall/internal/toggle"
	"github.com/rennerdo30/heimdall/internal/version"
)

var (
	configFile string

	rootCmd = &cobra.Command{
		Use:   "heimdall",
		Short: "Heimdall per-protocol proxy toggling",
		Long: `Heimdall toggles HTTP/HTTPS proxy usage per protocol, derived from
environment variables, and runs commands under scoped proxy overrides.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version.Full())
		},
	})

	rootCmd.AddCommand(newStatusCommand())
	rootCmd.AddCommand(newEnvCommand())
	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newConfigCommand())
	rootCmd.AddCommand(cli.NewCommands())
}

// loadConfig loads the config file when one is given or present, falling
// back to defaults otherwise.
func loadConfig() (config.Config, error) {
	cfg := config.Default()

	path := configFile
	if path == "" {
		path = "heimdall.yaml"
		if _, err := os.Stat(path); err != nil {
			return cfg, nil
		}
	}

	if err := config.LoadAndValidate(path, &cfg); err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// newStore builds the settings store from the environment snapshot plus any
// explicit config values.
func newStore(cfg config.Config) (*settings.Store, error) {
	store := settings.New()

	explicit := map[string]string{
		settings.KeyHTTPProxy:      cfg.Proxy.HTTP,
		settings.KeyHTTPSProxy:     cfg.Proxy.HTTPS,
		settings.KeySocksProxy:     cfg.Proxy.Socks,
		settings.KeyNoProxyPattern: cfg.Proxy.NoProxyPattern,
	}
	for key, value := range explicit {
		if value == "" {
			continue
		}
		if err := store.Set(key, value); err != nil {
			return nil, err
		}
	}
	return store, nil
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show resolved proxy settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := newStore(cfg)
			if err != nil {
				return err
			}

			for _, protocol := range registry.Protocols() {
				addr, ok, err := registry.ResolveAddress(store, protocol)
				if err != nil {
					return err
				}
				if ok {
					fmt.Printf("%s: %s\n", protocol, addr)
				} else {
					fmt.Printf("%s: (not configured)\n", protocol)
				}
			}
			fmt.Printf("no-proxy pattern: %s\n", store.NoProxyPattern())
			return nil
		},
	}
}

func newEnvCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "env [protocol...]",
		Short: "Print proxy environment variables for the given protocols",
		Long: `Print KEY=VALUE proxy environment variables for the given protocols
(default: all supported). Suitable for shell eval:

  eval $(heimdall env http https | sed 's/^/export /')`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := newStore(cfg)
			if err != nil {
				return err
			}

			protocols := args
			if len(protocols) == 0 {
				protocols = registry.Protocols()
			}

			m := proxymap.New()
			for _, p := range protocols {
				addr, ok, err := registry.ResolveAddress(store, p)
				if err != nil {
					return err
				}
				if ok {
					m.Set(p, addr)
				}
			}
			m.Set(proxymap.NoProxyKey, store.NoProxyPattern())

			socks, _ := store.Get(settings.KeySocksProxy)
			for _, kv := range proxyenv.Environ(m, socks) {
				fmt.Println(kv)
			}
			return nil
		},
	}
}

func newRunCommand() *cobra.Command {
	var protocols []string
	var explicit []string

	cmd := &cobra.Command{
		Use:   "run [flags] -- command [args...]",
		Short: "Run a command under a scoped proxy override",
		Long: `Run a command with proxy environment variables from a scoped override.
The override lasts exactly as long as the command; configured proxies come
from the settings (environment or config file), explicit ones from --set.

  heimdall run -- curl https://example.com
  heimdall run --protocol http -- wget http://example.com
  heimdall run --set https=proxy.corp:3129 -- git fetch`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := newStore(cfg)
			if err != nil {
				return err
			}

			m := proxymap.New()
			m.Set(proxymap.NoProxyKey, store.NoProxyPattern())
			s := scope.New(m, nil)

			socks, _ := store.Get(settings.KeySocksProxy)
			runChild := func() error {
				child := exec.Command(args[0], args[1:]...)
				child.Stdin = os.Stdin
				child.Stdout = os.Stdout
				child.Stderr = os.Stderr
				child.Env = proxyenv.ProcessEnviron(m, socks)
				return child.Run()
			}

			if len(explicit) > 0 {
				entries, err := parseExplicit(explicit)
				if err != nil {
					return err
				}
				return s.WithExplicit(entries, runChild)
			}

			if len(protocols) == 0 {
				protocols = registry.Protocols()
			}
			return s.WithConfigured(store, protocols, runChild)
		},
	}

	cmd.Flags().StringSliceVarP(&protocols, "protocol", "p", nil, "protocols to proxy (default: all supported)")
	cmd.Flags().StringSliceVar(&explicit, "set", nil, "explicit protocol=host:port bindings (bypasses settings)")
	return cmd
}

// parseExplicit converts --set protocol=host:port flags into map entries.
func parseExplicit(pairs []string) ([]proxymap.Entry, error) {
	entries := make([]proxymap.Entry, 0, len(pairs))
	for _, pair := range pairs {
		protocol, addr, ok := strings.Cut(pair, "=")
		if !ok || protocol == "" || addr == "" {
			return nil, fmt.Errorf("invalid --set value %q, want protocol=host:port", pair)
		}
		entries = append(entries, proxymap.Entry{Protocol: protocol, Address: addr})
	}
	return entries, nil
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the control API server",
		Long: `Run a long-lived instance holding the active proxy map, controlled over
the REST API (see "heimdall ctl").`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if !cfg.API.Enabled {
		return errors.New("control API is disabled in the configuration (api.enabled)")
	}

	if err := logging.Setup(cfg.Logging); err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	defer logging.Close()

	store, err := newStore(cfg)
	if err != nil {
		return err
	}

	// Exclusions are honored until toggled off.
	m := proxymap.New()
	m.Set(proxymap.NoProxyKey, store.NoProxyPattern())

	prom := metrics.New()
	controller := toggle.New(store, m, prom)

	listen := cfg.API.Listen
	if listen == "" {
		listen = config.Default().API.Listen
	}

	srv := &http.Server{
		Addr:              listen,
		Handler:           api.New(api.Config{Controller: controller, Metrics: prom, Token: cfg.API.Token}).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("control API listening", "address", listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigChan:
		logging.Info("received signal", "signal", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

func newConfigCommand() *cobra.Command {
	var initOutput string
	var initForce bool

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management commands",
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a sample configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !initForce {
				if _, err := os.Stat(initOutput); err == nil {
					return fmt.Errorf("file %s already exists (use --force to overwrite)", initOutput)
				}
			}

			cfg := config.Default()
			if err := config.Save(initOutput, &cfg); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			fmt.Printf("Generated configuration: %s\n", initOutput)
			return nil
		},
	}
	initCmd.Flags().StringVarP(&initOutput, "output", "o", "heimdall.yaml", "output file path")
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite existing file")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configFile
			if path == "" {
				path = "heimdall.yaml"
			}
			cfg := config.Default()
			if err := config.LoadAndValidate(path, &cfg); err != nil {
				return fmt.Errorf("configuration invalid: %w", err)
			}
			fmt.Println("Configuration is valid")
			return nil
		},
	}

	configCmd.AddCommand(initCmd, validateCmd)
	return configCmd
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

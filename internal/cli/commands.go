// Package cli provides CLI commands for controlling a running Heimdall
// instance over its REST API.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// APIClient is a client for the Heimdall control API.
type APIClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

// NewAPIClient creates a new API client.
func NewAPIClient(baseURL, token string) *APIClient {
	return &APIClient{
		BaseURL: baseURL,
		Token:   token,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// NewCommands creates the ctl command tree.
func NewCommands() *cobra.Command {
	var apiURL string
	var apiToken string

	root := &cobra.Command{
		Use:   "ctl",
		Short: "Control a running Heimdall instance",
	}

	root.PersistentFlags().StringVar(&apiURL, "api", "http://127.0.0.1:7390", "API server URL")
	root.PersistentFlags().StringVar(&apiToken, "token", "", "API authentication token")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show toggle status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return NewAPIClient(apiURL, apiToken).ShowStatus()
		},
	}

	proxiesCmd := &cobra.Command{
		Use:   "proxies",
		Short: "List active proxy bindings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return NewAPIClient(apiURL, apiToken).ListProxies()
		},
	}

	toggleCmd := &cobra.Command{
		Use:   "toggle [protocol]",
		Short: "Toggle proxying for a protocol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return NewAPIClient(apiURL, apiToken).Toggle(args[0])
		},
	}

	globalCmd := &cobra.Command{
		Use:   "global",
		Short: "Toggle whether no-proxy exclusions are honored",
		RunE: func(cmd *cobra.Command, args []string) error {
			return NewAPIClient(apiURL, apiToken).ToggleGlobal()
		},
	}

	checkCmd := &cobra.Command{
		Use:   "check [url]",
		Short: "Probe a URL through the instance's active proxy map",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return NewAPIClient(apiURL, apiToken).Check(args[0])
		},
	}

	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Check instance health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return NewAPIClient(apiURL, apiToken).CheckHealth()
		},
	}

	root.AddCommand(statusCmd, proxiesCmd, toggleCmd, globalCmd, checkCmd, healthCmd)
	return root
}

func (c *APIClient) doRequest(method, path string) (*http.Response, error) {
	req, err := http.NewRequest(method, c.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}

	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.Client.Do(req)
}

func (c *APIClient) getJSON(path string, v interface{}) error {
	resp, err := c.doRequest("GET", path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error: %s - %s", resp.Status, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(v)
}

func (c *APIClient) postJSON(path string, v interface{}) error {
	resp, err := c.doRequest("POST", path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error: %s - %s", resp.Status, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(v)
}

// ShowStatus displays the current toggle status.
func (c *APIClient) ShowStatus() error {
	var status map[string]interface{}
	if err := c.getJSON("/api/v1/status", &status); err != nil {
		return err
	}

	label := status["label"]
	if label == "" {
		label = "(none)"
	}
	fmt.Printf("Proxies: %v\n", label)
	if global, ok := status["global"].(bool); ok && global {
		fmt.Println("Mode: global (no-proxy exclusions ignored)")
	} else {
		fmt.Println("Mode: scoped (excluded hosts connect directly)")
	}
	fmt.Printf("Version: %v\n", status["version"])

	return nil
}

// ListProxies lists active proxy bindings.
func (c *APIClient) ListProxies() error {
	var proxies []map[string]interface{}
	if err := c.getJSON("/api/v1/proxies", &proxies); err != nil {
		return err
	}

	if len(proxies) == 0 {
		fmt.Println("No active proxy bindings")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PROTOCOL\tADDRESS")
	for _, p := range proxies {
		fmt.Fprintf(w, "%v\t%v\n", p["protocol"], p["address"])
	}
	return w.Flush()
}

// Toggle flips proxying for a protocol.
func (c *APIClient) Toggle(protocol string) error {
	var result map[string]interface{}
	if err := c.postJSON("/api/v1/proxies/"+protocol+"/toggle", &result); err != nil {
		return err
	}

	fmt.Printf("%v\n", result["message"])
	return nil
}

// ToggleGlobal flips the global no-proxy switch.
func (c *APIClient) ToggleGlobal() error {
	var result map[string]interface{}
	if err := c.postJSON("/api/v1/global/toggle", &result); err != nil {
		return err
	}

	fmt.Printf("%v\n", result["message"])
	return nil
}

// Check probes a URL through the instance's active proxy map and prints how
// the request was routed.
func (c *APIClient) Check(target string) error {
	var result map[string]interface{}
	if err := c.getJSON("/api/v1/check?url="+url.QueryEscape(target), &result); err != nil {
		return err
	}

	if proxied, ok := result["proxied"].(bool); ok && proxied {
		fmt.Printf("%v: %v via %v\n", result["url"], result["status"], result["proxy"])
	} else {
		fmt.Printf("%v: %v direct\n", result["url"], result["status"])
	}
	return nil
}

// CheckHealth checks instance health.
func (c *APIClient) CheckHealth() error {
	var health map[string]interface{}
	if err := c.getJSON("/api/v1/health", &health); err != nil {
		return err
	}

	fmt.Printf("Health: %v\n", health["status"])
	return nil
}

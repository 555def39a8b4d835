// Package api provides the REST control API for Heimdall.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rennerdo30/heimdall/internal/metrics"
	"github.com/rennerdo30/heimdall/internal/registry"
	"github.com/rennerdo30/heimdall/internal/toggle"
	"github.com/rennerdo30/heimdall/internal/transport"
	"github.com/rennerdo30/heimdall/internal/version"
)

// API exposes toggle operations and status over HTTP.
type API struct {
	controller *toggle.Controller
	metrics    *metrics.Metrics
	token      string

	// client and proxyFor consult the controller's active proxy map, so
	// check requests see the live toggle state.
	client   *http.Client
	proxyFor func(*http.Request) (*url.URL, error)
}

// Config holds API configuration.
type Config struct {
	Controller *toggle.Controller
	Metrics    *metrics.Metrics // optional, enables /metrics
	Token      string           // optional bearer token
}

// New creates a new API server.
func New(cfg Config) *API {
	m := cfg.Controller.Map()
	return &API{
		controller: cfg.Controller,
		metrics:    cfg.Metrics,
		token:      cfg.Token,
		client:     transport.Client(m),
		proxyFor:   transport.ProxyFunc(m),
	}
}

// Router returns the HTTP router for the API.
func (a *API) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	if a.token != "" {
		r.Use(a.authMiddleware)
	}

	r.Get("/api/v1/health", a.handleHealth)
	r.Get("/api/v1/version", a.handleVersion)
	r.Get("/api/v1/status", a.handleStatus)

	r.Route("/api/v1/proxies", func(r chi.Router) {
		r.Get("/", a.handleListProxies)
		r.Post("/{protocol}/toggle", a.handleToggleProtocol)
	})
	r.Post("/api/v1/global/toggle", a.handleToggleGlobal)
	r.Get("/api/v1/check", a.handleCheck)

	if a.metrics != nil {
		r.Handle("/metrics", a.metrics.Handler())
	}

	return r
}

func (a *API) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("Authorization")
		if token == "" {
			token = r.URL.Query().Get("token")
		}

		if len(token) > 7 && token[:7] == "Bearer " {
			token = token[7:]
		}

		if token != a.token {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (a *API) handleVersion(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, version.GetInfo())
}

func (a *API) handleStatus(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]interface{}{
		"label":   a.controller.StatusLabel(),
		"global":  a.controller.GlobalMode(),
		"enabled": a.controller.Map().Protocols(),
		"version": version.Short(),
		"time":    time.Now().Format(time.RFC3339),
	})
}

func (a *API) handleListProxies(w http.ResponseWriter, r *http.Request) {
	entries := a.controller.Map().Entries()
	response := make([]map[string]interface{}, 0, len(entries))
	for _, e := range entries {
		response = append(response, map[string]interface{}{
			"protocol": e.Protocol,
			"address":  e.Address,
		})
	}
	a.writeJSON(w, http.StatusOK, response)
}

func (a *API) handleToggleProtocol(w http.ResponseWriter, r *http.Request) {
	protocol := chi.URLParam(r, "protocol")

	result, err := a.controller.ToggleProtocol(protocol)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, registry.ErrUnsupportedProtocol) {
			status = http.StatusBadRequest
		}
		a.writeJSON(w, status, map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	a.writeJSON(w, http.StatusOK, result)
}

// handleCheck sends a HEAD request to the given URL through the active proxy
// map and reports whether it was proxied and what the target answered.
func (a *API) handleCheck(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")
	if target == "" {
		a.writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error": "missing url parameter",
		})
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodHead, target, nil)
	if err != nil {
		a.writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	via, err := a.proxyFor(req)
	if err != nil {
		a.writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	resp, err := a.client.Do(req)
	if err != nil {
		a.writeJSON(w, http.StatusBadGateway, map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	resp.Body.Close()

	result := map[string]interface{}{
		"url":     target,
		"status":  resp.StatusCode,
		"proxied": via != nil,
	}
	if via != nil {
		result["proxy"] = via.Host
	}
	a.writeJSON(w, http.StatusOK, result)
}

func (a *API) handleToggleGlobal(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, a.controller.ToggleGlobal())
}

func (a *API) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

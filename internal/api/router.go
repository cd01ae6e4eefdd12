// Package api implements the Internal API Router mounted at
// /__revamp__/* (spec.md §4.8): effective-config read/merge/reset,
// metrics snapshots, PAC generation, service-worker bundle endpoints,
// and plugin management, all wrapped in permissive CORS headers.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/revamp-proxy/revamp/internal/config"
	"github.com/revamp-proxy/revamp/internal/metrics"
	"github.com/revamp-proxy/revamp/internal/pac"
	"github.com/revamp-proxy/revamp/internal/plugin"
	"github.com/revamp-proxy/revamp/internal/transform"
)

// Router owns every dependency the internal API's handlers need.
type Router struct {
	ConfigStore   *config.Store
	Metrics       *metrics.Counters
	PluginManager *plugin.Manager
	PluginStore   *plugin.Store
	Transforms    transform.Set
	SelfHost      string
	Socks5Port    int
	HTTPPort      int

	mux *http.ServeMux
}

// NewRouter wires up the full /__revamp__/* endpoint table.
func NewRouter(r *Router) http.Handler {
	mux := http.NewServeMux()
	r.mux = mux

	mux.HandleFunc("GET /__revamp__/config", r.handleConfigGet)
	mux.HandleFunc("POST /__revamp__/config", r.handleConfigPost)
	mux.HandleFunc("DELETE /__revamp__/config", r.handleConfigDelete)

	mux.HandleFunc("GET /__revamp__/metrics/json", r.handleMetricsJSON)
	mux.HandleFunc("GET /__revamp__/metrics", r.handleMetricsDashboard)
	mux.HandleFunc("GET /__revamp__/metrics/dashboard", r.handleMetricsDashboard)

	mux.HandleFunc("GET /__revamp__/pac/socks5", r.handlePAC(pac.SOCKS5))
	mux.HandleFunc("GET /__revamp__/pac/http", r.handlePAC(pac.HTTP))
	mux.HandleFunc("GET /__revamp__/pac/combined", r.handlePAC(pac.Combined))

	mux.HandleFunc("GET /__revamp__/sw/bundle", r.handleSWBundle)
	mux.HandleFunc("POST /__revamp__/sw/inline", r.handleSWInline)

	mux.HandleFunc("GET /__revamp__/plugins", r.handlePluginsList)
	mux.HandleFunc("POST /__revamp__/plugins", r.handlePluginLoad)
	mux.HandleFunc("PUT /__revamp__/plugins/{id}", r.handlePluginUpdate)
	mux.HandleFunc("DELETE /__revamp__/plugins/{id}", r.handlePluginUnload)

	mux.HandleFunc("GET /__revamp__/healthz", r.handleHealthz)
	mux.HandleFunc("GET /__revamp__/version", r.handleVersion)

	return withCORS(mux)
}

// withCORS wraps h so every response carries permissive CORS headers and
// every OPTIONS preflight is answered 204 without reaching the mux.
func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if req.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.ServeHTTP(w, req)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (r *Router) handleConfigGet(w http.ResponseWriter, req *http.Request) {
	effective := r.ConfigStore.Effective(config.Defaults())
	writeJSON(w, http.StatusOK, effective)
}

func (r *Router) handleConfigPost(w http.ResponseWriter, req *http.Request) {
	var partial config.PartialConfig
	if err := json.NewDecoder(req.Body).Decode(&partial); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
		return
	}
	if err := r.ConfigStore.SetOverride(partial); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, r.ConfigStore.Effective(config.Defaults()))
}

func (r *Router) handleConfigDelete(w http.ResponseWriter, req *http.Request) {
	if err := r.ConfigStore.ResetOverride(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) handleMetricsJSON(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, r.Metrics.Snap(time.Now()))
}

func (r *Router) handleMetricsDashboard(w http.ResponseWriter, req *http.Request) {
	snap := r.Metrics.Snap(time.Now())
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<!doctype html><html><head><title>Revamp metrics</title></head><body>
<h1>Revamp</h1>
<table border="1" cellpadding="4">
<tr><th>uptime (s)</th><td>%.0f</td></tr>
<tr><th>requests</th><td>%d</td></tr>
<tr><th>blocked</th><td>%d</td></tr>
<tr><th>cache hits</th><td>%d</td></tr>
<tr><th>cache misses</th><td>%d</td></tr>
<tr><th>bytes in</th><td>%d</td></tr>
<tr><th>bytes out</th><td>%d</td></tr>
<tr><th>bytes saved</th><td>%d</td></tr>
</table>
</body></html>`,
		snap.UptimeSeconds, snap.Requests.Total, snap.Requests.Blocked,
		snap.Cache.Hits, snap.Cache.Misses, snap.Bandwidth.In, snap.Bandwidth.Out, snap.Bandwidth.Saved)
}

func (r *Router) handlePAC(kind pac.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/x-ns-proxy-autoconfig")
		w.Write([]byte(pac.Generate(kind, r.SelfHost, r.Socks5Port, r.HTTPPort)))
	}
}

func (r *Router) handleSWBundle(w http.ResponseWriter, req *http.Request) {
	url := req.URL.Query().Get("url")
	if url == "" {
		writeError(w, http.StatusBadRequest, "missing url query parameter")
		return
	}
	cfg := r.ConfigStore.Effective(config.Defaults())
	if cfg.RemoteServiceWorkers {
		writeError(w, http.StatusBadRequest, "remote service worker mode is enabled; bundle endpoint is unavailable")
		return
	}

	result, err := r.Transforms.JS.Transform(req.Context(), transform.Request{URL: url, Config: cfg})
	body := result.Body
	if err != nil || len(body) == 0 {
		body = []byte("// revamp: bundle unavailable, falling back to a no-op service worker\n")
	}
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func (r *Router) handleSWInline(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Code  string `json:"code"`
		Scope string `json:"scope"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
		return
	}
	if body.Code == "" {
		writeError(w, http.StatusBadRequest, "missing code field")
		return
	}

	cfg := r.ConfigStore.Effective(config.Defaults())
	result, err := r.Transforms.JS.Transform(req.Context(), transform.Request{Body: []byte(body.Code), Config: cfg})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(result.Body)
}

func (r *Router) handlePluginsList(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, r.PluginManager.List())
}

func (r *Router) handlePluginLoad(w http.ResponseWriter, req *http.Request) {
	var manifest plugin.Manifest
	if err := json.NewDecoder(req.Body).Decode(&manifest); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
		return
	}
	p, err := r.PluginManager.Load(manifest)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	r.PluginStore.SetPlugin(manifest.ID, plugin.PluginSettings{Enabled: true})
	writeJSON(w, http.StatusOK, p)
}

func (r *Router) handlePluginUpdate(w http.ResponseWriter, req *http.Request) {
	id := req.PathValue("id")
	var body struct {
		State string `json:"state"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
		return
	}
	if err := r.PluginManager.Transition(id, plugin.State(body.State), nil); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, _ := r.PluginManager.Get(id)
	writeJSON(w, http.StatusOK, p)
}

func (r *Router) handlePluginUnload(w http.ResponseWriter, req *http.Request) {
	id := req.PathValue("id")
	r.PluginManager.Transition(id, plugin.StateDeactivated, nil)
	r.PluginStore.RemovePlugin(id)
	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (r *Router) handleVersion(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": version})
}

// version is stamped at build time via -ldflags, defaulting to "dev".
var version = "dev"

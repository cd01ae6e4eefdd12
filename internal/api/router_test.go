package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/revamp-proxy/revamp/internal/config"
	"github.com/revamp-proxy/revamp/internal/metrics"
	"github.com/revamp-proxy/revamp/internal/plugin"
	"github.com/revamp-proxy/revamp/internal/transform"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	store, err := config.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	pluginStore, err := plugin.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("plugin.NewStore: %v", err)
	}
	return NewRouter(&Router{
		ConfigStore:   store,
		Metrics:       metrics.New(time.Now()),
		PluginManager: plugin.NewManager(),
		PluginStore:   pluginStore,
		Transforms:    transform.Passthrough(),
		SelfHost:      "127.0.0.1",
		Socks5Port:    1080,
		HTTPPort:      8080,
	})
}

func TestOptionsRequestReturnsNoContentWithCORS(t *testing.T) {
	router := newTestRouter(t)
	req := httptest.NewRequest(http.MethodOptions, "/__revamp__/config", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("expected permissive CORS header")
	}
}

func TestConfigGetReturnsDefaults(t *testing.T) {
	router := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/__revamp__/config", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var cfg config.Config
	if err := json.NewDecoder(rec.Body).Decode(&cfg); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !cfg.TransformJs {
		t.Fatal("expected default config with TransformJs enabled")
	}
}

func TestConfigPostMergesOverride(t *testing.T) {
	router := newTestRouter(t)
	body := strings.NewReader(`{"transformJs": false}`)
	req := httptest.NewRequest(http.MethodPost, "/__revamp__/config", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	get := httptest.NewRequest(http.MethodGet, "/__revamp__/config", nil)
	getRec := httptest.NewRecorder()
	router.ServeHTTP(getRec, get)

	var cfg config.Config
	json.NewDecoder(getRec.Body).Decode(&cfg)
	if cfg.TransformJs {
		t.Fatal("expected override to disable TransformJs")
	}
}

func TestConfigPostRejectsInvalidJSON(t *testing.T) {
	router := newTestRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/__revamp__/config", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSWBundleRequiresURLParam(t *testing.T) {
	router := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/__revamp__/sw/bundle", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestPACEndpointReturnsDirective(t *testing.T) {
	router := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/__revamp__/pac/socks5", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "SOCKS5 127.0.0.1:1080") {
		t.Fatalf("expected SOCKS5 directive in PAC body, got %s", rec.Body.String())
	}
}

func TestHealthzReturnsOK(t *testing.T) {
	router := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/__revamp__/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

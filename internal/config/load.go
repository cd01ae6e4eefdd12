package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Load builds the base Config from environment variables, falling back to
// Defaults() for anything unset. CLI flags (see cmd/revamp) are applied on
// top of this by the caller, following the same envOr precedence the
// teacher repo uses for its own settings.
func Load() Config {
	def := Defaults()

	return Config{
		TransformJs:           envBool("REVAMP_TRANSFORM_JS", def.TransformJs),
		TransformCss:          envBool("REVAMP_TRANSFORM_CSS", def.TransformCss),
		TransformHtml:         envBool("REVAMP_TRANSFORM_HTML", def.TransformHtml),
		InjectPolyfills:       envBool("REVAMP_INJECT_POLYFILLS", def.InjectPolyfills),
		BundleEsModules:       envBool("REVAMP_BUNDLE_ES_MODULES", def.BundleEsModules),
		RemoveAds:             envBool("REVAMP_REMOVE_ADS", def.RemoveAds),
		RemoveTracking:        envBool("REVAMP_REMOVE_TRACKING", def.RemoveTracking),
		EmulateServiceWorkers: envBool("REVAMP_EMULATE_SERVICE_WORKERS", def.EmulateServiceWorkers),
		RemoteServiceWorkers:  envBool("REVAMP_REMOTE_SERVICE_WORKERS", def.RemoteServiceWorkers),
		SpoofUserAgent:        envBool("REVAMP_SPOOF_USER_AGENT", def.SpoofUserAgent),
		SpoofUserAgentInJs:    envBool("REVAMP_SPOOF_USER_AGENT_IN_JS", def.SpoofUserAgentInJs),
		CacheEnabled:          envBool("REVAMP_CACHE_ENABLED", def.CacheEnabled),
		Socks5Port:            envInt("REVAMP_SOCKS5_PORT", def.Socks5Port),
		HttpProxyPort:         envInt("REVAMP_HTTP_PROXY_PORT", def.HttpProxyPort),
		CaptivePortalPort:     envInt("REVAMP_CAPTIVE_PORTAL_PORT", def.CaptivePortalPort),
		Targets:               envList("REVAMP_TARGETS", def.Targets),
		UserAgent:             envOr("REVAMP_USER_AGENT", def.UserAgent),
	}
}

// DataDir resolves the data directory: $REVAMP_DATA_DIR, else
// $XDG_DATA_HOME/revamp, else ./data.
func DataDir() string {
	if v := os.Getenv("REVAMP_DATA_DIR"); v != "" {
		return v
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return xdg + "/revamp"
	}
	return "./data"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return strings.EqualFold(v, "true") || v == "1"
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("ignoring invalid integer env var", "key", key, "value", v)
		return fallback
	}
	return n
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Package config defines the proxy's Config and DomainProfile types, the
// base-config loader, atomic JSON persistence for the mutable parts of the
// config, and the per-request Configuration Resolver.
package config

// Config is the full set of recognized options. A Config is immutable once
// resolved for a request: Resolve always returns a fresh value, never a
// pointer into shared state.
type Config struct {
	TransformJs            bool `json:"transformJs"`
	TransformCss            bool `json:"transformCss"`
	TransformHtml           bool `json:"transformHtml"`
	InjectPolyfills         bool `json:"injectPolyfills"`
	BundleEsModules         bool `json:"bundleEsModules"`
	RemoveAds               bool `json:"removeAds"`
	RemoveTracking          bool `json:"removeTracking"`
	EmulateServiceWorkers   bool `json:"emulateServiceWorkers"`
	RemoteServiceWorkers    bool `json:"remoteServiceWorkers"`
	SpoofUserAgent          bool `json:"spoofUserAgent"`
	SpoofUserAgentInJs      bool `json:"spoofUserAgentInJs"`
	CacheEnabled            bool `json:"cacheEnabled"`

	Socks5Port        int `json:"socks5Port"`
	HttpProxyPort     int `json:"httpProxyPort"`
	CaptivePortalPort int `json:"captivePortalPort"`

	Targets   []string `json:"targets"`
	UserAgent string   `json:"userAgent"`
}

// Clone returns a deep copy so callers can safely mutate the result
// (DomainProfile merging and hook chains build up new Configs this way,
// never mutating a shared base in place).
func (c Config) Clone() Config {
	out := c
	if c.Targets != nil {
		out.Targets = append([]string(nil), c.Targets...)
	}
	return out
}

// Defaults returns the built-in base configuration loaded at startup
// before any config.json overrides or domain profiles are applied.
func Defaults() Config {
	return Config{
		TransformJs:           true,
		TransformCss:          true,
		TransformHtml:         true,
		InjectPolyfills:       true,
		BundleEsModules:       true,
		RemoveAds:             true,
		RemoveTracking:        true,
		EmulateServiceWorkers: true,
		RemoteServiceWorkers:  false,
		SpoofUserAgent:        false,
		SpoofUserAgentInJs:    false,
		CacheEnabled:          true,
		Socks5Port:            1080,
		HttpProxyPort:         8080,
		CaptivePortalPort:     8888,
		Targets:               []string{"safari 9", "ios_saf 9"},
		UserAgent:             "",
	}
}

// PartialConfig carries only the fields an override actually sets; nil
// means "inherit". Used by DomainProfile overrides, the /__revamp__/config
// POST body, and config:resolution hook results.
type PartialConfig struct {
	TransformJs           *bool `json:"transformJs,omitempty"`
	TransformCss           *bool `json:"transformCss,omitempty"`
	TransformHtml          *bool `json:"transformHtml,omitempty"`
	InjectPolyfills         *bool `json:"injectPolyfills,omitempty"`
	BundleEsModules         *bool `json:"bundleEsModules,omitempty"`
	RemoveAds               *bool `json:"removeAds,omitempty"`
	RemoveTracking          *bool `json:"removeTracking,omitempty"`
	EmulateServiceWorkers   *bool `json:"emulateServiceWorkers,omitempty"`
	RemoteServiceWorkers    *bool `json:"remoteServiceWorkers,omitempty"`
	SpoofUserAgent          *bool `json:"spoofUserAgent,omitempty"`
	SpoofUserAgentInJs      *bool `json:"spoofUserAgentInJs,omitempty"`
	CacheEnabled            *bool `json:"cacheEnabled,omitempty"`

	Socks5Port        *int `json:"socks5Port,omitempty"`
	HttpProxyPort     *int `json:"httpProxyPort,omitempty"`
	CaptivePortalPort *int `json:"captivePortalPort,omitempty"`

	Targets   []string `json:"targets,omitempty"`
	UserAgent *string  `json:"userAgent,omitempty"`
}

// Merge shallow-merges p's set fields onto base, returning a new Config.
// base is never mutated.
func Merge(base Config, p PartialConfig) Config {
	out := base.Clone()
	if p.TransformJs != nil {
		out.TransformJs = *p.TransformJs
	}
	if p.TransformCss != nil {
		out.TransformCss = *p.TransformCss
	}
	if p.TransformHtml != nil {
		out.TransformHtml = *p.TransformHtml
	}
	if p.InjectPolyfills != nil {
		out.InjectPolyfills = *p.InjectPolyfills
	}
	if p.BundleEsModules != nil {
		out.BundleEsModules = *p.BundleEsModules
	}
	if p.RemoveAds != nil {
		out.RemoveAds = *p.RemoveAds
	}
	if p.RemoveTracking != nil {
		out.RemoveTracking = *p.RemoveTracking
	}
	if p.EmulateServiceWorkers != nil {
		out.EmulateServiceWorkers = *p.EmulateServiceWorkers
	}
	if p.RemoteServiceWorkers != nil {
		out.RemoteServiceWorkers = *p.RemoteServiceWorkers
	}
	if p.SpoofUserAgent != nil {
		out.SpoofUserAgent = *p.SpoofUserAgent
	}
	if p.SpoofUserAgentInJs != nil {
		out.SpoofUserAgentInJs = *p.SpoofUserAgentInJs
	}
	if p.CacheEnabled != nil {
		out.CacheEnabled = *p.CacheEnabled
	}
	if p.Socks5Port != nil {
		out.Socks5Port = *p.Socks5Port
	}
	if p.HttpProxyPort != nil {
		out.HttpProxyPort = *p.HttpProxyPort
	}
	if p.CaptivePortalPort != nil {
		out.CaptivePortalPort = *p.CaptivePortalPort
	}
	if p.Targets != nil {
		out.Targets = append([]string(nil), p.Targets...)
	}
	if p.UserAgent != nil {
		out.UserAgent = *p.UserAgent
	}
	return out
}

// DomainProfile overrides the base config for hostnames matching any of
// Patterns. On multiple matches across profiles, the highest Priority wins;
// within equal priority, the most specific (longest literal prefix)
// matching pattern wins.
type DomainProfile struct {
	ID       string        `json:"id"`
	Patterns []string      `json:"patterns"`
	Config   PartialConfig `json:"config"`
	Priority int           `json:"priority"`
}

package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/revamp-proxy/revamp/internal/config"
	"github.com/revamp-proxy/revamp/internal/server"
)

func main() {
	// Self-contained healthcheck for scratch containers (no curl/wget
	// available). Usage: revamp -healthcheck
	if len(os.Args) > 1 && os.Args[1] == "-healthcheck" {
		addr := envOr("REVAMP_HTTP_ADDR", "127.0.0.1:8080")
		resp, err := http.Get("http://" + addr + "/__revamp__/healthz")
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	base := config.Load()
	opts := parseFlags(base)

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel()})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(ctx, opts)
	if err != nil {
		slog.Error("failed to wire server", "error", err)
		os.Exit(1)
	}

	slog.Info("starting revamp",
		"socks5", opts.Socks5Addr, "http", opts.HTTPAddr, "captive", opts.CaptiveAddr,
		"dataDir", opts.DataDir)

	runErr := make(chan error, 1)
	go func() { runErr <- srv.Run(ctx) }()

	select {
	case <-ctx.Done():
		slog.Info("shutting down gracefully")
		<-runErr
		slog.Info("shutdown complete")
	case err := <-runErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}

func parseFlags(base config.Config) server.Options {
	fs := flag.NewFlagSet("revamp", flag.ExitOnError)

	socks5Addr := fs.String("socks5-addr", envOr("REVAMP_SOCKS5_ADDR", "127.0.0.1:1080"), "SOCKS5 proxy listen address")
	httpAddr := fs.String("http-addr", envOr("REVAMP_HTTP_ADDR", "127.0.0.1:8080"), "HTTP proxy listen address (also serves the internal API)")
	captiveAddr := fs.String("captive-addr", envOr("REVAMP_CAPTIVE_ADDR", "127.0.0.1:8888"), "captive-portal listen address")
	dataDir := fs.String("data-dir", config.DataDir(), "directory for the CA, cache, and config persistence")
	pluginsDir := fs.String("plugins-dir", envOr("REVAMP_PLUGINS_DIR", config.DataDir()+"/plugins"), "directory for plugin settings persistence")

	transformJS := fs.Bool("transform-js", base.TransformJs, "rewrite modern JavaScript for legacy engines")
	transformCSS := fs.Bool("transform-css", base.TransformCss, "rewrite modern CSS for legacy engines")
	transformHTML := fs.Bool("transform-html", base.TransformHtml, "rewrite HTML for legacy engines")
	injectPolyfills := fs.Bool("inject-polyfills", base.InjectPolyfills, "inject polyfills for missing APIs")
	bundleEsModules := fs.Bool("bundle-es-modules", base.BundleEsModules, "bundle ES module graphs into a single script")
	removeAds := fs.Bool("remove-ads", base.RemoveAds, "block known ad hosts")
	removeTracking := fs.Bool("remove-tracking", base.RemoveTracking, "block known tracking hosts")
	emulateServiceWorkers := fs.Bool("emulate-service-workers", base.EmulateServiceWorkers, "emulate service worker APIs client-side")
	remoteServiceWorkers := fs.Bool("remote-service-workers", base.RemoteServiceWorkers, "run service worker logic server-side instead")
	spoofUserAgent := fs.Bool("spoof-user-agent", base.SpoofUserAgent, "rewrite the outbound User-Agent header")
	spoofUserAgentInJS := fs.Bool("spoof-user-agent-in-js", base.SpoofUserAgentInJs, "rewrite navigator.userAgent in transformed scripts")
	cacheEnabled := fs.Bool("cache-enabled", base.CacheEnabled, "enable the transformation cache")
	userAgent := fs.String("user-agent", base.UserAgent, "override User-Agent (empty keeps the client's own)")
	targets := fs.String("targets", strings.Join(base.Targets, ","), "comma-separated Browserslist-style targets")

	cacheMemoryEntries := fs.Int("cache-memory-entries", envInt("REVAMP_CACHE_MEMORY_ENTRIES", 256), "in-memory cache tier capacity")
	cacheS3Bucket := fs.String("cache-s3-bucket", envOr("REVAMP_CACHE_S3_BUCKET", ""), "optional S3 bucket for a third cache tier")
	cacheS3Prefix := fs.String("cache-s3-prefix", envOr("REVAMP_CACHE_S3_PREFIX", "revamp-cache"), "key prefix within the S3 cache bucket")
	cacheS3ForcePathStyle := fs.Bool("cache-s3-force-path-style", envOr("REVAMP_CACHE_S3_FORCE_PATH_STYLE", "false") == "true", "use path-style S3 addressing (for S3-compatible stores)")

	fs.Parse(os.Args[1:])

	resolvedBase := base
	resolvedBase.TransformJs = *transformJS
	resolvedBase.TransformCss = *transformCSS
	resolvedBase.TransformHtml = *transformHTML
	resolvedBase.InjectPolyfills = *injectPolyfills
	resolvedBase.BundleEsModules = *bundleEsModules
	resolvedBase.RemoveAds = *removeAds
	resolvedBase.RemoveTracking = *removeTracking
	resolvedBase.EmulateServiceWorkers = *emulateServiceWorkers
	resolvedBase.RemoteServiceWorkers = *remoteServiceWorkers
	resolvedBase.SpoofUserAgent = *spoofUserAgent
	resolvedBase.SpoofUserAgentInJs = *spoofUserAgentInJS
	resolvedBase.CacheEnabled = *cacheEnabled
	resolvedBase.UserAgent = *userAgent
	if *targets != "" {
		resolvedBase.Targets = strings.Split(*targets, ",")
	}

	return server.Options{
		Base:                  resolvedBase,
		DataDir:               *dataDir,
		PluginsDir:            *pluginsDir,
		Socks5Addr:            *socks5Addr,
		HTTPAddr:              *httpAddr,
		CaptiveAddr:           *captiveAddr,
		CacheMemoryEntries:    *cacheMemoryEntries,
		CacheS3Bucket:         *cacheS3Bucket,
		CacheS3Prefix:         *cacheS3Prefix,
		CacheS3ForcePathStyle: *cacheS3ForcePathStyle,
	}
}

func logLevel() slog.Level {
	switch strings.ToLower(envOr("REVAMP_LOG_LEVEL", "info")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
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

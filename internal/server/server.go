// Package server is the wiring root: it owns every component built in
// the other internal packages as plain struct fields on one Server
// value (spec.md §9's "no global mutable state at module scope" design
// note) and starts the SOCKS5, HTTP, and captive-portal listeners
// together. cmd/revamp/main.go is a thin flag/env layer on top of this.
package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/revamp-proxy/revamp/internal/api"
	"github.com/revamp-proxy/revamp/internal/cache"
	"github.com/revamp-proxy/revamp/internal/certauthority"
	"github.com/revamp-proxy/revamp/internal/config"
	"github.com/revamp-proxy/revamp/internal/filter"
	"github.com/revamp-proxy/revamp/internal/hooks"
	"github.com/revamp-proxy/revamp/internal/httpfrontend"
	"github.com/revamp-proxy/revamp/internal/lifecycle"
	"github.com/revamp-proxy/revamp/internal/metrics"
	"github.com/revamp-proxy/revamp/internal/plugin"
	"github.com/revamp-proxy/revamp/internal/socks5"
	"github.com/revamp-proxy/revamp/internal/transform"
	"github.com/revamp-proxy/revamp/internal/upstream"
)

// Options carries the entrypoint-specific settings that aren't part of
// the per-request Config: listen addresses, on-disk locations, and the
// optional S3 cache tier's bucket.
type Options struct {
	Base       config.Config
	DataDir    string
	PluginsDir string

	Socks5Addr  string
	HTTPAddr    string
	CaptiveAddr string

	CacheMemoryEntries    int
	CacheS3Bucket         string
	CacheS3Prefix         string
	CacheS3ForcePathStyle bool
}

// Server holds every wired component. Nothing here is a package-level
// variable; a caller that wants two independent proxies (tests, or a
// future multi-tenant host process) can build two Servers.
type Server struct {
	opts Options

	ConfigStore   *config.Store
	Resolver      *config.Resolver
	HookRegistry  *hooks.Registry
	HookStats     *hooks.Stats
	Executor      *hooks.Executor
	PluginManager *plugin.Manager
	PluginStore   *plugin.Store
	Metrics       *metrics.Counters
	RootCA        *certauthority.RootCA
	CertFactory   *certauthority.Factory
	Cache         *cache.Store
	Filter        *filter.Decision
	Upstream      *upstream.Client
	Transforms    transform.Set
	Controller    *lifecycle.Controller
	APIRouter     http.Handler

	socks5Srv  *socks5.Server
	httpSrv    *httpfrontend.Server
	captiveSrv *http.Server

	socks5Listener  net.Listener
	httpListener    net.Listener
	captiveListener net.Listener
}

// New wires every component without starting any listener.
func New(ctx context.Context, opts Options) (*Server, error) {
	s := &Server{opts: opts}

	configStore, err := config.NewStore(opts.DataDir)
	if err != nil {
		return nil, fmt.Errorf("config store: %w", err)
	}
	s.ConfigStore = configStore

	s.HookStats = hooks.NewStats()
	s.HookRegistry = hooks.NewRegistry(s.HookStats)
	s.Executor = hooks.NewExecutor(s.HookRegistry, s.HookStats)

	s.Resolver = &config.Resolver{
		Base:     configStore.Effective(opts.Base),
		Profiles: configStore.Profiles(),
		Hooks: func(ctx context.Context, accumulated config.Config) (config.Config, error) {
			result := s.Executor.RunChain(ctx, hooks.ConfigResolution, accumulated)
			if result.Outcome == hooks.Error {
				return config.Config{}, result.Err
			}
			if cfg, ok := result.Value.(config.Config); ok {
				return cfg, nil
			}
			return accumulated, nil
		},
	}

	pluginStore, err := plugin.NewStore(opts.PluginsDir)
	if err != nil {
		return nil, fmt.Errorf("plugin store: %w", err)
	}
	s.PluginStore = pluginStore
	s.PluginManager = plugin.NewManager()

	s.Metrics = metrics.New(time.Now())

	rootCA, err := certauthority.LoadOrCreate(opts.DataDir)
	if err != nil {
		return nil, fmt.Errorf("root CA: %w", err)
	}
	s.RootCA = rootCA
	certFactory, err := certauthority.NewFactory(rootCA)
	if err != nil {
		return nil, fmt.Errorf("cert factory: %w", err)
	}
	s.CertFactory = certFactory

	cacheStore, err := buildCacheStore(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("cache tiers: %w", err)
	}
	s.Cache = cacheStore

	s.Filter = filter.New()
	s.Upstream = upstream.New()
	s.Transforms = transform.Passthrough()

	s.Controller = &lifecycle.Controller{
		Resolver:   s.Resolver,
		Filter:     s.Filter,
		Hooks:      s.Executor,
		Upstream:   s.Upstream,
		Transforms: s.Transforms,
		Cache:      s.Cache,
		Metrics:    s.Metrics,
	}

	selfHost, selfPort, err := splitHostPort(opts.HTTPAddr)
	if err != nil {
		return nil, fmt.Errorf("http addr: %w", err)
	}

	s.APIRouter = api.NewRouter(&api.Router{
		ConfigStore:   s.ConfigStore,
		Metrics:       s.Metrics,
		PluginManager: s.PluginManager,
		PluginStore:   s.PluginStore,
		Transforms:    s.Transforms,
		SelfHost:      selfHost,
		Socks5Port:    portOf(opts.Socks5Addr),
		HTTPPort:      selfPort,
	})

	socks5Listener, err := net.Listen("tcp", opts.Socks5Addr)
	if err != nil {
		return nil, fmt.Errorf("socks5 listen: %w", err)
	}
	s.socks5Listener = socks5Listener
	s.socks5Srv = &socks5.Server{
		Listener:    socks5Listener,
		Resolver:    s.Resolver,
		CertFactory: s.CertFactory,
		Controller:  s.Controller,
		Metrics:     s.Metrics,
		SelfHost:    selfHost,
		SelfPort:    selfPort,
		InternalAPI: func(conn net.Conn, reader *bufio.Reader) {
			httpfrontend.ServeOne(conn, reader, s.APIRouter)
		},
	}

	httpListener, err := net.Listen("tcp", opts.HTTPAddr)
	if err != nil {
		return nil, fmt.Errorf("http listen: %w", err)
	}
	s.httpListener = httpListener
	s.httpSrv = &httpfrontend.Server{
		Listener:    httpListener,
		Resolver:    s.Resolver,
		CertFactory: s.CertFactory,
		Controller:  s.Controller,
		Metrics:     s.Metrics,
		SelfHost:    selfHost,
		SelfPort:    selfPort,
		InternalAPI: s.APIRouter,
	}

	if opts.CaptiveAddr != "" {
		captiveListener, err := net.Listen("tcp", opts.CaptiveAddr)
		if err != nil {
			return nil, fmt.Errorf("captive listen: %w", err)
		}
		s.captiveListener = captiveListener
		s.captiveSrv = &http.Server{Handler: http.HandlerFunc(s.handleCaptivePortal)}
	}

	return s, nil
}

// Run starts every listener and blocks until ctx is canceled or one of
// them fails.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 3)

	go func() { errCh <- s.socks5Srv.Serve(ctx) }()
	go func() { errCh <- s.httpSrv.Serve(ctx) }()
	if s.captiveSrv != nil {
		go func() {
			err := s.captiveSrv.Serve(s.captiveListener)
			if errors.Is(err, http.ErrServerClosed) {
				err = nil
			}
			errCh <- err
		}()
	}

	select {
	case <-ctx.Done():
		s.Close()
		return nil
	case err := <-errCh:
		if err != nil {
			slog.Error("listener failed", "error", err)
		}
		s.Close()
		return err
	}
}

// Close releases every listener. Safe to call more than once.
func (s *Server) Close() {
	if s.socks5Listener != nil {
		s.socks5Listener.Close()
	}
	if s.httpListener != nil {
		s.httpListener.Close()
	}
	if s.captiveSrv != nil {
		s.captiveSrv.Close()
	}
}

// handleCaptivePortal serves a minimal placeholder page. Full
// captive-portal asset generation is a pluggable concern spec.md §1
// leaves to the plugin system; this endpoint only proves the listener
// and routing exist for a plugin to mount onto.
func (s *Server) handleCaptivePortal(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, `<!doctype html><html><head><title>Revamp</title></head>
<body><h1>Revamp captive portal</h1>
<p>Install the root CA and configure your proxy settings from the dashboard.</p>
</body></html>`)
}

func buildCacheStore(ctx context.Context, opts Options) (*cache.Store, error) {
	memEntries := opts.CacheMemoryEntries
	if memEntries <= 0 {
		memEntries = 256
	}
	memTier, err := cache.NewMemoryTier(memEntries)
	if err != nil {
		return nil, err
	}
	diskTier, err := cache.NewDiskTier(opts.DataDir + "/cache")
	if err != nil {
		return nil, err
	}

	tiers := []cache.Tier{memTier, diskTier}
	if opts.CacheS3Bucket != "" {
		s3Tier, err := cache.NewS3Tier(ctx, opts.CacheS3Bucket, opts.CacheS3Prefix, opts.CacheS3ForcePathStyle)
		if err != nil {
			return nil, err
		}
		tiers = append(tiers, s3Tier)
	}

	return cache.NewStore(tiers...), nil
}

func splitHostPort(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, err
	}
	if host == "" {
		host = "127.0.0.1"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port %q: %w", portStr, err)
	}
	return host, port, nil
}

func portOf(addr string) int {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0
	}
	p, _ := strconv.Atoi(portStr)
	return p
}

package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/revamp-proxy/revamp/internal/atomicfile"
)

// Store owns the mutable, persisted parts of configuration: the base
// config override (config.json) and the domain profile list
// (domains.json). All writes are atomic (temp file + fsync + rename, see
// internal/atomicfile) so a crash mid-write never yields a partial or
// empty file on disk.
type Store struct {
	dir string

	mu       sync.RWMutex
	override PartialConfig
	profiles []DomainProfile
}

// NewStore loads (or initializes) a Store rooted at dataDir.
func NewStore(dataDir string) (*Store, error) {
	s := &Store{dir: dataDir}
	if err := s.loadConfig(); err != nil {
		return nil, err
	}
	if err := s.loadDomains(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) configPath() string  { return filepath.Join(s.dir, "config.json") }
func (s *Store) domainsPath() string { return filepath.Join(s.dir, "domains.json") }

func (s *Store) loadConfig() error {
	data, err := os.ReadFile(s.configPath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	var p PartialConfig
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	s.mu.Lock()
	s.override = p
	s.mu.Unlock()
	return nil
}

func (s *Store) loadDomains() error {
	data, err := os.ReadFile(s.domainsPath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	var profiles []DomainProfile
	if err := json.Unmarshal(data, &profiles); err != nil {
		return err
	}
	s.mu.Lock()
	s.profiles = profiles
	s.mu.Unlock()
	return nil
}

// Override returns the current client-set base config override.
func (s *Store) Override() PartialConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.override
}

// SetOverride merge-updates the override and persists it atomically.
func (s *Store) SetOverride(p PartialConfig) error {
	s.mu.Lock()
	merged := Merge(Merge(Defaults(), s.override), p)
	next := toPartial(merged)
	s.override = next
	s.mu.Unlock()
	return s.persistConfig(next)
}

// ResetOverride clears the override back to built-in defaults.
func (s *Store) ResetOverride() error {
	s.mu.Lock()
	s.override = PartialConfig{}
	s.mu.Unlock()
	return s.persistConfig(PartialConfig{})
}

func (s *Store) persistConfig(p PartialConfig) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return atomicfile.WriteBytes(s.configPath(), data)
}

// Profiles returns a snapshot of the domain profile list.
func (s *Store) Profiles() []DomainProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]DomainProfile(nil), s.profiles...)
}

// PutProfile creates or replaces (by ID) a DomainProfile and persists the
// new list atomically.
func (s *Store) PutProfile(p DomainProfile) error {
	s.mu.Lock()
	replaced := false
	for i, existing := range s.profiles {
		if existing.ID == p.ID {
			s.profiles[i] = p
			replaced = true
			break
		}
	}
	if !replaced {
		s.profiles = append(s.profiles, p)
	}
	snapshot := append([]DomainProfile(nil), s.profiles...)
	s.mu.Unlock()
	return s.persistDomains(snapshot)
}

// DeleteProfile removes a profile by ID and persists the new list.
func (s *Store) DeleteProfile(id string) error {
	s.mu.Lock()
	out := s.profiles[:0:0]
	for _, p := range s.profiles {
		if p.ID != id {
			out = append(out, p)
		}
	}
	s.profiles = out
	snapshot := append([]DomainProfile(nil), s.profiles...)
	s.mu.Unlock()
	return s.persistDomains(snapshot)
}

func (s *Store) persistDomains(profiles []DomainProfile) error {
	data, err := json.MarshalIndent(profiles, "", "  ")
	if err != nil {
		return err
	}
	return atomicfile.WriteBytes(s.domainsPath(), data)
}

// toPartial converts a fully-resolved Config back into a PartialConfig
// with every field explicitly set, for round-tripping through the
// override merge logic.
func toPartial(c Config) PartialConfig {
	return PartialConfig{
		TransformJs:           &c.TransformJs,
		TransformCss:          &c.TransformCss,
		TransformHtml:         &c.TransformHtml,
		InjectPolyfills:       &c.InjectPolyfills,
		BundleEsModules:       &c.BundleEsModules,
		RemoveAds:             &c.RemoveAds,
		RemoveTracking:        &c.RemoveTracking,
		EmulateServiceWorkers: &c.EmulateServiceWorkers,
		RemoteServiceWorkers:  &c.RemoteServiceWorkers,
		SpoofUserAgent:        &c.SpoofUserAgent,
		SpoofUserAgentInJs:    &c.SpoofUserAgentInJs,
		CacheEnabled:          &c.CacheEnabled,
		Socks5Port:            &c.Socks5Port,
		HttpProxyPort:         &c.HttpProxyPort,
		CaptivePortalPort:     &c.CaptivePortalPort,
		Targets:               c.Targets,
		UserAgent:             &c.UserAgent,
	}
}

// Effective returns base merged with the current override — the starting
// point a Resolver.Base is built from.
func (s *Store) Effective(base Config) Config {
	return Merge(base, s.Override())
}

package plugin

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/revamp-proxy/revamp/internal/atomicfile"
)

// PluginSettings is one plugin's persisted enabled flag and opaque
// config blob, keyed by plugin ID in Settings.Plugins.
type PluginSettings struct {
	Enabled bool            `json:"enabled"`
	Config  json.RawMessage `json:"config,omitempty"`
}

// Settings is the full persisted contents of plugins.json.
type Settings struct {
	Enabled   bool                      `json:"enabled"`
	HotReload bool                      `json:"hotReload"`
	PluginsDir string                   `json:"pluginsDir"`
	Plugins   map[string]PluginSettings `json:"plugins"`
}

// DefaultSettings mirrors config.Defaults' posture: the plugin subsystem
// is on, hot reload is off (a filesystem watcher is an added operational
// surface, left opt-in), and plugins live under dataDir/plugins.
func DefaultSettings(pluginsDir string) Settings {
	return Settings{
		Enabled:    true,
		HotReload:  false,
		PluginsDir: pluginsDir,
		Plugins:    map[string]PluginSettings{},
	}
}

// Store persists Settings to plugins.json under a data directory,
// mirroring internal/config.Store's atomic read/modify/write pattern.
type Store struct {
	path string

	mu       sync.RWMutex
	settings Settings
}

// NewStore loads (or initializes with defaults) a Store rooted at
// dataDir.
func NewStore(dataDir string) (*Store, error) {
	s := &Store{
		path:     filepath.Join(dataDir, "plugins.json"),
		settings: DefaultSettings(filepath.Join(dataDir, "plugins")),
	}
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	var loaded Settings
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, err
	}
	s.settings = loaded
	return s, nil
}

// Settings returns the current persisted settings.
func (s *Store) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// SetPlugin creates or replaces the persisted settings for one plugin ID
// and writes the file atomically.
func (s *Store) SetPlugin(id string, ps PluginSettings) error {
	s.mu.Lock()
	if s.settings.Plugins == nil {
		s.settings.Plugins = map[string]PluginSettings{}
	}
	s.settings.Plugins[id] = ps
	snapshot := s.settings
	s.mu.Unlock()
	return s.persist(snapshot)
}

// RemovePlugin drops a plugin's persisted settings entirely.
func (s *Store) RemovePlugin(id string) error {
	s.mu.Lock()
	delete(s.settings.Plugins, id)
	snapshot := s.settings
	s.mu.Unlock()
	return s.persist(snapshot)
}

// SetEnabled toggles the subsystem-wide enabled flag.
func (s *Store) SetEnabled(enabled bool) error {
	s.mu.Lock()
	s.settings.Enabled = enabled
	snapshot := s.settings
	s.mu.Unlock()
	return s.persist(snapshot)
}

func (s *Store) persist(settings Settings) error {
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	return atomicfile.WriteBytes(s.path, data)
}

package plugin

import (
	"fmt"
	"sort"
	"sync"
)

// Manager tracks the set of loaded plugins and serializes lifecycle
// transitions per plugin ID, so two concurrent activate/deactivate
// requests for the same plugin can't race past each other.
type Manager struct {
	mu      sync.Mutex
	plugins map[string]*Plugin
	locks   map[string]*sync.Mutex
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{
		plugins: make(map[string]*Plugin),
		locks:   make(map[string]*sync.Mutex),
	}
}

func (m *Manager) lockFor(id string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[id]
	if !ok {
		l = &sync.Mutex{}
		m.locks[id] = l
	}
	return l
}

// Load registers manifest as a new plugin in StateLoaded. Loading the
// same ID twice replaces the previous record (e.g. on hot reload).
func (m *Manager) Load(manifest Manifest) (*Plugin, error) {
	if err := manifest.Validate(); err != nil {
		return nil, err
	}
	p := &Plugin{Manifest: manifest, State: StateLoaded}

	m.mu.Lock()
	m.plugins[manifest.ID] = p
	m.mu.Unlock()
	return p, nil
}

// Transition moves the plugin id from its current state to 'to', if the
// edge is legal, updating RegisteredHooks as given when entering
// StateActive.
func (m *Manager) Transition(id string, to State, hooks []string) error {
	lock := m.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	p, ok := m.plugins[id]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("plugin: unknown plugin %q", id)
	}

	if !CanTransition(p.State, to) {
		return fmt.Errorf("plugin: illegal transition for %q: %s -> %s", id, p.State, to)
	}

	m.mu.Lock()
	p.State = to
	if to == StateActive {
		p.RegisteredHooks = append([]string(nil), hooks...)
	}
	if to == StateDeactivated || to == StateError {
		p.RegisteredHooks = nil
	}
	m.mu.Unlock()
	return nil
}

// Fail moves id into StateError, recording why.
func (m *Manager) Fail(id string, cause error) {
	lock := m.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plugins[id]
	if !ok {
		return
	}
	p.State = StateError
	p.RegisteredHooks = nil
	if cause != nil {
		p.LastError = cause.Error()
	}
}

// Get returns a copy of the plugin record for id.
func (m *Manager) Get(id string) (Plugin, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plugins[id]
	if !ok {
		return Plugin{}, false
	}
	return *p, true
}

// List returns every loaded plugin, sorted by ID, for stable API output.
func (m *Manager) List() []Plugin {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Plugin, 0, len(m.plugins))
	for _, p := range m.plugins {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Manifest.ID < out[j].Manifest.ID })
	return out
}

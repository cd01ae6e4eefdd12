package hooks

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Registry holds the full set of registered hooks across all plugins.
// Mutations (Register/Unregister, driven by plugin activate/deactivate)
// are serialized by mu and build a brand-new map+slices; readers take one
// atomic.Pointer load at step entry and iterate an immutable snapshot, so
// a registry mutation never interleaves with an in-flight chain
// (spec.md §4.7/§5 copy-on-write guidance).
type Registry struct {
	mu       sync.Mutex
	seq      int
	snapshot atomic.Pointer[map[Name][]Registration]
	stats    *Stats
}

// NewRegistry returns an empty Registry backed by the given Stats
// tracker (per-plugin, per-hook counters).
func NewRegistry(stats *Stats) *Registry {
	r := &Registry{stats: stats}
	empty := map[Name][]Registration{}
	r.snapshot.Store(&empty)
	return r
}

// Register adds a handler for pluginID at the given hook name and
// priority, publishing a new snapshot atomically.
func (r *Registry) Register(name Name, pluginID string, priority int, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	reg := Registration{PluginID: pluginID, Handler: h, Priority: priority, seq: r.seq}

	next := cloneSnapshot(r.snapshot.Load())
	next[name] = append(next[name], reg)
	sortByPriority(next[name])
	r.snapshot.Store(&next)
}

// Unregister removes every handler pluginID registered under name.
func (r *Registry) Unregister(name Name, pluginID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := cloneSnapshot(r.snapshot.Load())
	filtered := next[name][:0:0]
	for _, reg := range next[name] {
		if reg.PluginID != pluginID {
			filtered = append(filtered, reg)
		}
	}
	next[name] = filtered
	r.snapshot.Store(&next)
}

// UnregisterPlugin removes every hook pluginID registered across all
// names, used when a plugin is deactivated or unloaded.
func (r *Registry) UnregisterPlugin(pluginID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := cloneSnapshot(r.snapshot.Load())
	for name, regs := range next {
		filtered := regs[:0:0]
		for _, reg := range regs {
			if reg.PluginID != pluginID {
				filtered = append(filtered, reg)
			}
		}
		next[name] = filtered
	}
	r.snapshot.Store(&next)
}

// Snapshot returns the immutable registration list for name, as of the
// current atomic load. Callers should take exactly one Snapshot at step
// entry and iterate it for the whole chain invocation.
func (r *Registry) Snapshot(name Name) []Registration {
	m := *r.snapshot.Load()
	return m[name]
}

func cloneSnapshot(m *map[Name][]Registration) map[Name][]Registration {
	next := make(map[Name][]Registration, len(*m))
	for k, v := range *m {
		next[k] = append([]Registration(nil), v...)
	}
	return next
}

func sortByPriority(regs []Registration) {
	sort.SliceStable(regs, func(i, j int) bool {
		if regs[i].Priority != regs[j].Priority {
			return regs[i].Priority > regs[j].Priority
		}
		return regs[i].seq < regs[j].seq
	})
}

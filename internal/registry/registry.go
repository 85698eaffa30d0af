// Package registry tracks the module graph around compiled components:
// which served module ids depend on each component file, and who wants to
// hear about changes.
package registry

import (
	"sync"
	"time"
)

// Event announces that a component file changed and which module ids were
// selected for reload.
type Event struct {
	Path    string
	Modules []string
	Time    time.Time
}

// ModuleGraph is the host-side module graph stand-in. The dev server
// records served modules here; hot updates consult it to decide which
// modules to notify.
type ModuleGraph struct {
	mu          sync.RWMutex
	importers   map[string][]string
	subscribers map[chan Event]struct{}
}

// New creates an empty module graph.
func New() *ModuleGraph {
	return &ModuleGraph{
		importers:   make(map[string][]string),
		subscribers: make(map[chan Event]struct{}),
	}
}

// Record notes that moduleID was produced from the component at path.
// Duplicate records are collapsed; first-served order is preserved because
// the reload policy "first" depends on it.
func (g *ModuleGraph) Record(path, moduleID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, existing := range g.importers[path] {
		if existing == moduleID {
			return
		}
	}
	g.importers[path] = append(g.importers[path], moduleID)
}

// Importers returns the module ids recorded for a component path.
func (g *ModuleGraph) Importers(path string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	mods := g.importers[path]
	out := make([]string, len(mods))
	copy(out, mods)
	return out
}

// Forget drops the recorded modules for a component path.
func (g *ModuleGraph) Forget(path string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.importers, path)
}

// Subscribe registers a change listener. The returned cancel function must
// be called to release the subscription.
func (g *ModuleGraph) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)

	g.mu.Lock()
	g.subscribers[ch] = struct{}{}
	g.mu.Unlock()

	cancel := func() {
		g.mu.Lock()
		delete(g.subscribers, ch)
		g.mu.Unlock()
	}

	return ch, cancel
}

// Broadcast delivers a change event to all subscribers. Slow subscribers
// drop events rather than blocking the hot-update path.
func (g *ModuleGraph) Broadcast(event Event) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for ch := range g.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

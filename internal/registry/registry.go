// Package registry owns the mapping from vehicle identity to per-world actor
// state. Entries are mutated only by the synchronizer loop; the lock exists
// for the monitor goroutine, which reads counts concurrently.
package registry

import (
	"sync"

	"github.com/dualcarla/bridge/internal/world"
	"github.com/dualcarla/bridge/pkg/core"
)

// Entry tracks one vehicle's actor slot in each world. A nil slot means the
// vehicle has no live actor there: either membership was never required, the
// slot was cleared on handoff, or the last spawn attempt failed and will be
// retried next step.
type Entry struct {
	Slots [2]*world.Actor
}

// Actor returns the live actor in world w, or nil.
func (e *Entry) Actor(w core.World) *world.Actor {
	return e.Slots[w]
}

// SetActor stores a freshly spawned actor handle for world w.
func (e *Entry) SetActor(w core.World, a *world.Actor) {
	e.Slots[w] = a
}

// ClearSlot drops the slot for world w without touching the world itself.
func (e *Entry) ClearSlot(w core.World) {
	e.Slots[w] = nil
}

// Registry maps live vehicle IDs to their entries.
type Registry struct {
	mu      sync.RWMutex
	entries map[core.VehicleID]*Entry
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		entries: make(map[core.VehicleID]*Entry),
	}
}

// Entry returns the entry for id, creating it on first observation.
func (r *Registry) Entry(id core.VehicleID) *Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		e = &Entry{}
		r.entries[id] = e
	}
	return e
}

// Get returns the entry for id without creating one.
func (r *Registry) Get(id core.VehicleID) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return e, ok
}

// Delete removes the entry for id. The caller must have destroyed any live
// slots first.
func (r *Registry) Delete(id core.VehicleID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

// Vanished returns the IDs present in the registry but absent from the
// live set reported by the source simulation this step.
func (r *Registry) Vanished(live map[core.VehicleID]struct{}) []core.VehicleID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var gone []core.VehicleID
	for id := range r.entries {
		if _, ok := live[id]; !ok {
			gone = append(gone, id)
		}
	}
	return gone
}

// Len returns the number of tracked vehicles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

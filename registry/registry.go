// Package registry assigns stable, monotonically increasing component ids
// and resolves them back to live components, including the remap table a
// project load needs when a serialized id collides with one already live.
//
// Generalizes the teacher's bounds-checked slice lookups
// (mixer.State.SelectedChannel) from a flat index into a monotonic id space
// guarded by a single RWMutex, the same guard idiom the teacher uses for
// midi.Handler and audio.Engine.
package registry

import (
	"fmt"
	"sync"
)

// ID is a component identity. Values <= 0 are always invalid. ID 1 is
// reserved for the engine root.
type ID int64

const (
	// Unassigned marks a component that has never been registered.
	Unassigned ID = 0
	// Root is the reserved id of the engine root component.
	Root ID = 1
)

// Identifiable is anything that can be registered: it carries its own id
// field and can report/accept it.
type Identifiable interface {
	ID() ID
	SetID(ID)
}

// Registry is the single owner of component identity for one engine.
type Registry struct {
	mu     sync.RWMutex
	nextID ID
	live   map[ID]Identifiable
	remap  map[ID]Identifiable // projectId -> live component, load-time only
}

// New creates a registry with nextID primed just past the reserved root id.
func New() *Registry {
	return &Registry{
		nextID: Root + 1,
		live:   make(map[ID]Identifiable),
		remap:  make(map[ID]Identifiable),
	}
}

// Register assigns a fresh id if the component is unassigned, or verifies
// uniqueness of an already-assigned id. It fails if the id is already
// present in the live table.
func (r *Registry) Register(c Identifiable) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := c.ID()
	if id == Unassigned {
		id = r.nextID
		r.nextID++
		c.SetID(id)
		r.live[id] = c
		return nil
	}
	if id <= 0 {
		return fmt.Errorf("registry: invalid id %d", id)
	}
	if _, exists := r.live[id]; exists {
		return fmt.Errorf("registry: id %d already registered", id)
	}
	r.live[id] = c
	if id >= r.nextID {
		r.nextID = id + 1
	}
	return nil
}

// RegisterWithID is used only during project load. If desiredId is free it
// is taken directly (advancing nextID past it); otherwise a remap entry
// projectId -> component is recorded and the component receives a fresh
// live id instead.
func (r *Registry) RegisterWithID(c Identifiable, desiredID ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if desiredID <= 0 {
		return fmt.Errorf("registry: invalid desired id %d", desiredID)
	}

	if _, taken := r.live[desiredID]; !taken {
		c.SetID(desiredID)
		r.live[desiredID] = c
		if desiredID >= r.nextID {
			r.nextID = desiredID + 1
		}
		return nil
	}

	newID := r.nextID
	r.nextID++
	c.SetID(newID)
	r.live[newID] = c
	r.remap[desiredID] = c
	return nil
}

// Resolve looks up the remap table first, then the live table.
func (r *Registry) Resolve(id ID) (Identifiable, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if c, ok := r.remap[id]; ok {
		return c, true
	}
	c, ok := r.live[id]
	return c, ok
}

// Dispose removes id from the live table. Remap entries are left alone —
// they may still be resolved by callers holding a stable handle captured
// before a later load.
func (r *Registry) Dispose(id ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.live, id)
}

// ResetProjectRemap clears the remap table. Called at save and at the
// start of every load (before RegisterWithID is used for that load).
func (r *Registry) ResetProjectRemap() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remap = make(map[ID]Identifiable)
}

// BumpNextIDAbove ensures subsequent auto-assigned ids stay above maxSeen,
// used by persist at the start of a load once it has scanned the document
// for the maximum serialized id.
func (r *Registry) BumpNextIDAbove(maxSeen ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if maxSeen+1 > r.nextID {
		r.nextID = maxSeen + 1
	}
}

// Count returns the number of live components. Mostly useful for tests and
// invariant checks.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.live)
}

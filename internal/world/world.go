// Package world is the map-authoring arena the expedition core writes into.
// It owns spaces (ephemeral maps), their tile grids, and the entities placed
// on them, all addressed by opaque handles. Collaborating services receive a
// *World by injection; there is no global lookup.
package world

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// EntityID identifies one entity in the arena.
type EntityID uint32

// InvalidEntity is the zero EntityID.
const InvalidEntity EntityID = 0

// Entity is anything placed on a space: a mob, a loot crate, a portal,
// a marker. Proto names the content prototype it was spawned from.
type Entity struct {
	ID     EntityID
	Proto  string
	Space  SpaceID
	Pos    Vec2i
	Layers CollisionLayer

	// Scale holds level-scaling multipliers stamped on spawned mobs.
	// Zero means unscaled.
	Scale Scale
}

// Scale is the (health, damage) multiplier pair applied to a scaled mob.
type Scale struct {
	Health, Damage float64
}

// World is the arena of all live spaces and entities.
// Thread-safe for concurrent access.
type World struct {
	mu       sync.RWMutex
	spaces   map[SpaceID]*Space
	entities map[EntityID]*Entity

	// Entity IDs start high so they never collide with externally
	// assigned IDs (pads placed by the host world).
	nextEntityID atomic.Uint32
	nextSpaceID  atomic.Int32

	onSpaceDeleted []func(SpaceID)
}

// New creates an empty arena.
func New() *World {
	w := &World{
		spaces:   make(map[SpaceID]*Space, 8),
		entities: make(map[EntityID]*Entity, 256),
	}
	w.nextEntityID.Store(0x10000000)
	return w
}

// OnSpaceDeleted registers a callback fired after a space and all its
// entities are removed. Used by the mission registry to drop records for
// torn-down instances.
func (w *World) OnSpaceDeleted(fn func(SpaceID)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onSpaceDeleted = append(w.onSpaceDeleted, fn)
}

// CreateSpace allocates a new empty space.
func (w *World) CreateSpace(name string) *Space {
	id := SpaceID(w.nextSpaceID.Add(1))
	sp := newSpace(id, name)

	w.mu.Lock()
	w.spaces[id] = sp
	w.mu.Unlock()

	slog.Debug("space created", "spaceID", id, "name", name)
	return sp
}

// Space returns a space by ID, or nil if it no longer exists.
func (w *World) Space(id SpaceID) *Space {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.spaces[id]
}

// SpaceCount returns the number of live spaces.
func (w *World) SpaceCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.spaces)
}

// DeleteSpace tears down a space and every entity on it, then notifies
// OnSpaceDeleted listeners. Deleting an unknown space is a no-op.
func (w *World) DeleteSpace(id SpaceID) {
	w.mu.Lock()
	sp, ok := w.spaces[id]
	if !ok {
		w.mu.Unlock()
		return
	}
	delete(w.spaces, id)
	for _, eid := range sp.Entities() {
		delete(w.entities, eid)
	}
	handlers := make([]func(SpaceID), len(w.onSpaceDeleted))
	copy(handlers, w.onSpaceDeleted)
	w.mu.Unlock()

	slog.Debug("space deleted", "spaceID", id, "name", sp.Name())

	for _, fn := range handlers {
		fn(id)
	}
}

// Spawn places a new entity on a space.
func (w *World) Spawn(proto string, space SpaceID, pos Vec2i, layers CollisionLayer) (EntityID, error) {
	w.mu.Lock()
	sp, ok := w.spaces[space]
	if !ok {
		w.mu.Unlock()
		return InvalidEntity, fmt.Errorf("spawning %q: space %d does not exist", proto, space)
	}

	id := EntityID(w.nextEntityID.Add(1))
	w.entities[id] = &Entity{ID: id, Proto: proto, Space: space, Pos: pos, Layers: layers}
	w.mu.Unlock()

	sp.addEntity(id)
	return id, nil
}

// Entity returns an entity by ID, or nil if it was deleted.
func (w *World) Entity(id EntityID) *Entity {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.entities[id]
}

// Exists reports whether the entity is still live.
func (w *World) Exists(id EntityID) bool {
	return w.Entity(id) != nil
}

// Delete removes an entity. Deleting a dead entity is a no-op.
func (w *World) Delete(id EntityID) {
	w.mu.Lock()
	ent, ok := w.entities[id]
	if !ok {
		w.mu.Unlock()
		return
	}
	delete(w.entities, id)
	sp := w.spaces[ent.Space]
	w.mu.Unlock()

	if sp != nil {
		sp.removeEntity(id)
	}
}

// SetScale stamps scaling multipliers on a live entity.
func (w *World) SetScale(id EntityID, sc Scale) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if ent, ok := w.entities[id]; ok {
		ent.Scale = sc
	}
}

// TileFree reports whether no entity occupying any layer of mask stands at
// pos on the given space. Used as the collision check for spawn placement.
func (w *World) TileFree(space SpaceID, pos Vec2i, mask CollisionLayer) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	sp, ok := w.spaces[space]
	if !ok {
		return false
	}
	for _, eid := range sp.Entities() {
		ent := w.entities[eid]
		if ent == nil {
			continue
		}
		if ent.Pos == pos && ent.Layers&mask != 0 {
			return false
		}
	}
	return true
}

// EntitiesAt returns the entities standing at pos on a space.
func (w *World) EntitiesAt(space SpaceID, pos Vec2i) []*Entity {
	w.mu.RLock()
	defer w.mu.RUnlock()

	sp, ok := w.spaces[space]
	if !ok {
		return nil
	}
	var out []*Entity
	for _, eid := range sp.Entities() {
		if ent := w.entities[eid]; ent != nil && ent.Pos == pos {
			out = append(out, ent)
		}
	}
	return out
}

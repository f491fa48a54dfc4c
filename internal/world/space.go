package world

import "sync"

// SpaceID identifies one map in the arena.
type SpaceID int32

// InvalidSpace is the zero SpaceID; no real space ever carries it.
const InvalidSpace SpaceID = 0

// Environment holds the ambient parameters applied to a generated space.
// A zero Environment means a vacuum map: no atmosphere, no ambient light.
type Environment struct {
	Biome       string  // biome template id, "" = no biome
	GasMix      string  // atmosphere mix id, "" = vacuum
	Temperature float64 // kelvin; ignored when GasMix is empty
	LightColor  string  // ambient light, "" = darkness
	Gravity     bool
}

// Habitable reports whether the environment carries a biome.
func (e Environment) Habitable() bool { return e.Biome != "" }

// Space is one map: a sparse tile grid plus the entities standing on it.
// Thread-safe for concurrent access.
type Space struct {
	mu sync.RWMutex

	id     SpaceID
	name   string
	env    Environment
	bounds Box2i
	tiles  map[Vec2i]Tile
	ents   map[EntityID]struct{}

	// Procedural loot layers stamped onto the biome (ore veins, surface
	// scatter). Applied by guaranteed loot rules during generation.
	markerLayers []string
	overlays     []string
}

// defaultExtent bounds a space grid; generation never gets near it.
const defaultExtent = 1 << 20

func newSpace(id SpaceID, name string) *Space {
	return &Space{
		id:     id,
		name:   name,
		bounds: Box2i{-defaultExtent, -defaultExtent, defaultExtent, defaultExtent},
		tiles:  make(map[Vec2i]Tile, 256),
		ents:   make(map[EntityID]struct{}, 64),
	}
}

// ID returns the space identifier.
func (s *Space) ID() SpaceID { return s.id }

// Name returns the display name assigned at creation.
func (s *Space) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

// SetName renames the space.
func (s *Space) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

// Environment returns the ambient parameters of the space.
func (s *Space) Environment() Environment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.env
}

// SetEnvironment applies ambient parameters to the space.
func (s *Space) SetEnvironment(env Environment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.env = env
}

// AddMarkerLayer stamps a resource marker layer (e.g. an ore vein kind)
// onto the space biome.
func (s *Space) AddMarkerLayer(proto string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markerLayers = append(s.markerLayers, proto)
}

// MarkerLayers returns a copy of the stamped marker layers.
func (s *Space) MarkerLayers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.markerLayers...)
}

// AddOverlay applies a whole loot template overlay to the space biome.
func (s *Space) AddOverlay(proto string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overlays = append(s.overlays, proto)
}

// Overlays returns a copy of the applied overlays.
func (s *Space) Overlays() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.overlays...)
}

// InBounds reports whether p lies inside the space grid.
func (s *Space) InBounds(p Vec2i) bool {
	return s.bounds.Contains(p)
}

// TileAt returns the tile at p. The zero Tile means no tile is set.
func (s *Space) TileAt(p Vec2i) Tile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tiles[p]
}

// SetTile stamps one tile.
func (s *Space) SetTile(p Vec2i, t Tile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.IsEmpty() {
		delete(s.tiles, p)
		return
	}
	s.tiles[p] = t
}

// SetTiles stamps a batch of tiles in one lock acquisition.
func (s *Space) SetTiles(tiles map[Vec2i]Tile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for p, t := range tiles {
		if t.IsEmpty() {
			delete(s.tiles, p)
			continue
		}
		s.tiles[p] = t
	}
}

// TileCount returns the number of set tiles.
func (s *Space) TileCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tiles)
}

// EntityCount returns the number of entities on the space.
func (s *Space) EntityCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ents)
}

func (s *Space) addEntity(id EntityID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ents[id] = struct{}{}
}

func (s *Space) removeEntity(id EntityID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ents, id)
}

// Entities returns a copy of the IDs of all entities on the space.
func (s *Space) Entities() []EntityID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]EntityID, 0, len(s.ents))
	for id := range s.ents {
		ids = append(ids, id)
	}
	return ids
}

package gen

import (
	"math"

	"github.com/vantis-labs/expedition/internal/rng"
	"github.com/vantis-labs/expedition/internal/world"
)

// Room is one placement region of a dungeon. Spawning logic draws random
// free tiles out of Tiles.
type Room struct {
	Tiles  []world.Vec2i
	Bounds world.Box2i
	Center world.Vec2i
}

// Dungeon is the output of layout generation.
type Dungeon struct {
	Rooms         []*Room
	CorridorTiles []world.Vec2i
	AllTiles      []world.Vec2i
}

// DungeonConfig bounds the layout generator.
type DungeonConfig struct {
	RoomCount     int   // rooms to attempt
	MinRoomExtent int32 // half-extent of the smallest room
	MaxRoomExtent int32
	Spread        int32 // radius rooms scatter over, around the offset
}

// DefaultDungeonConfig matches the shipped expedition dungeons.
func DefaultDungeonConfig() DungeonConfig {
	return DungeonConfig{
		RoomCount:     6,
		MinRoomExtent: 2,
		MaxRoomExtent: 4,
		Spread:        18,
	}
}

// LayoutFunc produces a dungeon for a seed. Injected into the Generator so
// tests can substitute degenerate layouts.
type LayoutFunc func(cfg DungeonConfig, offset world.Vec2i, seed uint64) *Dungeon

// Rotation derives the dungeon placement angle from the seed. Same seed,
// same angle — the offset direction is reproducible and never player input.
func Rotation(seed uint64) float64 {
	return 2 * math.Pi * float64(seed&0xFFFF) / 0x10000
}

// GenerateDungeon lays out rooms and corridors deterministically from the
// seed. The layout stream is independent of the mission stream, so changes
// to content passes never shift room placement.
func GenerateDungeon(cfg DungeonConfig, offset world.Vec2i, seed uint64) *Dungeon {
	r := rng.New(seed)
	d := &Dungeon{}
	occupied := make(map[world.Vec2i]struct{}, 256)

	for i := 0; i < cfg.RoomCount; i++ {
		room := placeRoom(cfg, offset, r, occupied)
		if room == nil {
			continue
		}
		d.Rooms = append(d.Rooms, room)
	}

	// L-corridors connect consecutive room centers.
	for i := 1; i < len(d.Rooms); i++ {
		for _, p := range corridorPath(d.Rooms[i-1].Center, d.Rooms[i].Center) {
			if _, ok := occupied[p]; ok {
				continue
			}
			occupied[p] = struct{}{}
			d.CorridorTiles = append(d.CorridorTiles, p)
		}
	}

	for _, room := range d.Rooms {
		d.AllTiles = append(d.AllTiles, room.Tiles...)
	}
	d.AllTiles = append(d.AllTiles, d.CorridorTiles...)
	return d
}

// placeRoom tries a few scatter positions and gives up on persistent
// overlap, so dense configs degrade to fewer rooms instead of looping.
func placeRoom(cfg DungeonConfig, offset world.Vec2i, r *rng.Source, occupied map[world.Vec2i]struct{}) *Room {
	const attempts = 8

	for try := 0; try < attempts; try++ {
		ex := cfg.MinRoomExtent + r.Int32N(cfg.MaxRoomExtent-cfg.MinRoomExtent+1)
		ey := cfg.MinRoomExtent + r.Int32N(cfg.MaxRoomExtent-cfg.MinRoomExtent+1)
		cx := offset.X + r.Int32N(2*cfg.Spread+1) - cfg.Spread
		cy := offset.Y + r.Int32N(2*cfg.Spread+1) - cfg.Spread

		bounds := world.Box2i{MinX: cx - ex, MinY: cy - ey, MaxX: cx + ex, MaxY: cy + ey}
		if overlaps(bounds, occupied) {
			continue
		}

		tiles := make([]world.Vec2i, 0, (2*ex+1)*(2*ey+1))
		for x := bounds.MinX; x <= bounds.MaxX; x++ {
			for y := bounds.MinY; y <= bounds.MaxY; y++ {
				p := world.Vec2i{X: x, Y: y}
				occupied[p] = struct{}{}
				tiles = append(tiles, p)
			}
		}
		return &Room{Tiles: tiles, Bounds: bounds, Center: world.Vec2i{X: cx, Y: cy}}
	}
	return nil
}

func overlaps(b world.Box2i, occupied map[world.Vec2i]struct{}) bool {
	for x := b.MinX; x <= b.MaxX; x++ {
		for y := b.MinY; y <= b.MaxY; y++ {
			if _, ok := occupied[world.Vec2i{X: x, Y: y}]; ok {
				return true
			}
		}
	}
	return false
}

func corridorPath(from, to world.Vec2i) []world.Vec2i {
	var path []world.Vec2i
	step := func(v, target int32) int32 {
		if v < target {
			return v + 1
		}
		return v - 1
	}

	p := from
	for p.X != to.X {
		p.X = step(p.X, to.X)
		path = append(path, p)
	}
	for p.Y != to.Y {
		p.Y = step(p.Y, to.Y)
		path = append(path, p)
	}
	return path
}

// SynthesizePseudoRoom builds one placement region out of loose tiles when
// layout produced tiles but no formal rooms. Corridor tiles are preferred;
// bounds are the tiles' AABB.
func SynthesizePseudoRoom(d *Dungeon) *Room {
	tiles := d.CorridorTiles
	if len(tiles) == 0 {
		tiles = d.AllTiles
	}
	if len(tiles) == 0 {
		return nil
	}

	bounds := world.Box2i{
		MinX: tiles[0].X, MinY: tiles[0].Y,
		MaxX: tiles[0].X, MaxY: tiles[0].Y,
	}
	for _, p := range tiles[1:] {
		bounds.MinX = min(bounds.MinX, p.X)
		bounds.MinY = min(bounds.MinY, p.Y)
		bounds.MaxX = max(bounds.MaxX, p.X)
		bounds.MaxY = max(bounds.MaxY, p.Y)
	}

	room := &Room{
		Tiles:  append([]world.Vec2i(nil), tiles...),
		Bounds: bounds,
		Center: bounds.Center(),
	}
	return room
}

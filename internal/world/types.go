package world

import "fmt"

// Vec2i is a tile coordinate on a space grid.
type Vec2i struct {
	X, Y int32
}

func (v Vec2i) String() string {
	return fmt.Sprintf("(%d, %d)", v.X, v.Y)
}

// Add returns v + o.
func (v Vec2i) Add(o Vec2i) Vec2i {
	return Vec2i{v.X + o.X, v.Y + o.Y}
}

// Box2i is an axis-aligned bounding box in tile coordinates, inclusive.
type Box2i struct {
	MinX, MinY, MaxX, MaxY int32
}

// Contains reports whether p lies inside the box.
func (b Box2i) Contains(p Vec2i) bool {
	return p.X >= b.MinX && p.X <= b.MaxX && p.Y >= b.MinY && p.Y <= b.MaxY
}

// Center returns the box center, rounded toward MinX/MinY.
func (b Box2i) Center() Vec2i {
	return Vec2i{(b.MinX + b.MaxX) / 2, (b.MinY + b.MaxY) / 2}
}

// Circle describes a disc in tile coordinates.
type Circle struct {
	Center Vec2i
	Radius int32
}

// Tiles returns every lattice point inside the circle.
func (c Circle) Tiles() []Vec2i {
	r2 := c.Radius * c.Radius
	out := make([]Vec2i, 0, 4*c.Radius*c.Radius)
	for dx := -c.Radius; dx <= c.Radius; dx++ {
		for dy := -c.Radius; dy <= c.Radius; dy++ {
			if dx*dx+dy*dy > r2 {
				continue
			}
			out = append(out, Vec2i{c.Center.X + dx, c.Center.Y + dy})
		}
	}
	return out
}

// Tile is one cell of a space grid. The zero value means "no tile".
type Tile struct {
	TypeID uint16
}

// IsEmpty reports whether the tile is unset.
func (t Tile) IsEmpty() bool { return t.TypeID == 0 }

// CollisionLayer is a bitmask of physics layers an entity occupies.
type CollisionLayer uint32

// Collision layers. Spawn placement only cares about the machine layer:
// a tile is free when nothing machine-solid stands on it.
const (
	LayerNone    CollisionLayer = 0
	LayerMachine CollisionLayer = 1 << iota
	LayerMob
	LayerItem
)

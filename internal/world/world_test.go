package world

import "testing"

func TestCreateDeleteSpace(t *testing.T) {
	w := New()

	sp := w.CreateSpace("Test Map")
	if sp.ID() == InvalidSpace {
		t.Fatal("CreateSpace returned invalid ID")
	}
	if w.SpaceCount() != 1 {
		t.Errorf("SpaceCount() = %d; want 1", w.SpaceCount())
	}

	w.DeleteSpace(sp.ID())
	if w.Space(sp.ID()) != nil {
		t.Error("Space() returned deleted space")
	}

	// Deleting twice is a no-op.
	w.DeleteSpace(sp.ID())
}

func TestDeleteSpace_RemovesEntitiesAndNotifies(t *testing.T) {
	w := New()
	sp := w.CreateSpace("Test Map")

	id, err := w.Spawn("MobScrapjack", sp.ID(), Vec2i{1, 2}, LayerMob)
	if err != nil {
		t.Fatalf("Spawn() error = %v", err)
	}

	var deleted []SpaceID
	w.OnSpaceDeleted(func(sid SpaceID) { deleted = append(deleted, sid) })

	w.DeleteSpace(sp.ID())

	if w.Exists(id) {
		t.Error("entity survived space deletion")
	}
	if len(deleted) != 1 || deleted[0] != sp.ID() {
		t.Errorf("OnSpaceDeleted fired with %v; want [%d]", deleted, sp.ID())
	}
}

func TestSpawn_UnknownSpace(t *testing.T) {
	w := New()
	if _, err := w.Spawn("MobScrapjack", 999, Vec2i{}, LayerMob); err == nil {
		t.Error("Spawn() on unknown space should fail")
	}
}

func TestTileFree(t *testing.T) {
	w := New()
	sp := w.CreateSpace("Test Map")
	pos := Vec2i{3, 3}

	if !w.TileFree(sp.ID(), pos, LayerMachine) {
		t.Error("empty tile reported occupied")
	}

	if _, err := w.Spawn("OreProcessor", sp.ID(), pos, LayerMachine); err != nil {
		t.Fatal(err)
	}

	if w.TileFree(sp.ID(), pos, LayerMachine) {
		t.Error("machine-occupied tile reported free")
	}
	// An item does not block the machine layer.
	if !w.TileFree(sp.ID(), Vec2i{4, 4}, LayerMachine) {
		t.Error("adjacent tile reported occupied")
	}
}

func TestDelete_StaleEntityNoop(t *testing.T) {
	w := New()
	sp := w.CreateSpace("Test Map")
	id, _ := w.Spawn("PortalRed", sp.ID(), Vec2i{}, LayerNone)

	w.Delete(id)
	if w.Exists(id) {
		t.Fatal("entity still exists after Delete")
	}
	w.Delete(id) // no-op
}

func TestCircleTiles(t *testing.T) {
	c := Circle{Center: Vec2i{0, 0}, Radius: 2}
	tiles := c.Tiles()

	want := map[Vec2i]bool{}
	for _, p := range tiles {
		if p.X*p.X+p.Y*p.Y > 4 {
			t.Errorf("tile %v outside radius", p)
		}
		if want[p] {
			t.Errorf("duplicate tile %v", p)
		}
		want[p] = true
	}
	// r=2 disc has 13 lattice points.
	if len(tiles) != 13 {
		t.Errorf("len(tiles) = %d; want 13", len(tiles))
	}
}

func TestSpaceTiles(t *testing.T) {
	w := New()
	sp := w.CreateSpace("Test Map")

	sp.SetTile(Vec2i{1, 1}, Tile{TypeID: 7})
	if got := sp.TileAt(Vec2i{1, 1}); got.TypeID != 7 {
		t.Errorf("TileAt = %v; want TypeID 7", got)
	}
	if !sp.TileAt(Vec2i{2, 2}).IsEmpty() {
		t.Error("unset tile not empty")
	}

	sp.SetTiles(map[Vec2i]Tile{
		{5, 5}: {TypeID: 3},
		{1, 1}: {}, // erase
	})
	if !sp.TileAt(Vec2i{1, 1}).IsEmpty() {
		t.Error("SetTiles did not erase tile")
	}
	if sp.TileCount() != 1 {
		t.Errorf("TileCount() = %d; want 1", sp.TileCount())
	}
}

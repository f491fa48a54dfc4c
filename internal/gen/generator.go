// Package gen builds one expedition instance: a seeded dungeon layout on a
// fresh space, a carved landing pad, and budget-driven hostile and loot
// population. A generation run is a resumable phase machine — the scheduler
// advances it in bounded time slices so the simulation tick never stalls on
// generation work.
package gen

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/vantis-labs/expedition/internal/content"
	"github.com/vantis-labs/expedition/internal/rng"
	"github.com/vantis-labs/expedition/internal/world"
)

// Mission is the immutable parameter set for one instance. The seed never
// changes once assigned: layout and the whole draw sequence replay from it.
type Mission struct {
	TemplateID string
	Seed       uint64
	Level      int
}

// Params are the structural tunables of generation.
type Params struct {
	LandingPadRadius    int32
	LandingTileType     uint16
	DungeonOffsetSpread int32
	Dungeon             DungeonConfig
	Scaling             ScalingParams
}

// DefaultParams matches the shipped expedition maps.
func DefaultParams() Params {
	return Params{
		LandingPadRadius:    6,
		LandingTileType:     1,
		DungeonOffsetSpread: 12,
		Dungeon:             DefaultDungeonConfig(),
		Scaling:             DefaultScalingParams(),
	}
}

// MinDungeonOffset returns the closest the dungeon may sit to the landing
// pad: pad radius plus a clearance band.
func (p Params) MinDungeonOffset() int32 {
	return p.LandingPadRadius + 4
}

// Generator builds instances into an injected world arena. Safe to share
// across runs; all per-run state lives in Run.
type Generator struct {
	world  *world.World
	tables *content.Tables
	params Params

	// Layout produces the dungeon for a seed. Replaceable in tests.
	Layout LayoutFunc

	// Now is the clock used for time-slice checks. Replaceable in tests.
	Now func() time.Time
}

// NewGenerator creates a Generator over the given arena and content tables.
func NewGenerator(w *world.World, tables *content.Tables, params Params) *Generator {
	return &Generator{
		world:  w,
		tables: tables,
		params: params,
		Layout: GenerateDungeon,
		Now:    time.Now,
	}
}

// phase enumerates the generation steps. Every phase boundary and every
// spawn-draw iteration is a suspension point.
type phase int

const (
	phaseCreateSpace phase = iota
	phaseEnvironment
	phaseLayout
	phaseLandingPad
	phaseGuaranteedLoot
	phaseMobSpawns
	phaseLootSpawns
	phaseDone
)

func (p phase) String() string {
	switch p {
	case phaseCreateSpace:
		return "create-space"
	case phaseEnvironment:
		return "environment"
	case phaseLayout:
		return "layout"
	case phaseLandingPad:
		return "landing-pad"
	case phaseGuaranteedLoot:
		return "guaranteed-loot"
	case phaseMobSpawns:
		return "mob-spawns"
	case phaseLootSpawns:
		return "loot-spawns"
	case phaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// Instance is the successful output of a run: a populated space handle.
type Instance struct {
	Space      world.SpaceID
	Name       string
	Landing    []world.Vec2i
	MobsPlaced int
	LootPlaced int
	Duration   time.Duration
	Level      int
}

// Run is one resumable generation job over a mission.
type Run struct {
	gen     *Generator
	mission Mission
	r       *rng.Source

	template *content.MapTemplate
	tier     *content.DifficultyTier
	faction  *content.Faction
	loot     *content.LootTable

	phase    phase
	space    *world.Space
	dungeon  *Dungeon
	reserved map[world.Vec2i]struct{}
	landing  []world.Vec2i

	guarIdx     int
	passInit    bool
	passBudget  float64
	passEntries []content.SpawnEntry

	mobsPlaced int
	lootPlaced int
	finished   bool
}

// NewRun validates the mission against the content tables and prepares a
// resumable run. No world mutation happens until the first Step.
func (g *Generator) NewRun(mission Mission) (*Run, error) {
	tmpl := g.tables.Map(mission.TemplateID)
	if tmpl == nil {
		return nil, fmt.Errorf("mission template %q: not found", mission.TemplateID)
	}
	tier := g.tables.Tier(tmpl.Difficulty)
	if tier == nil {
		return nil, fmt.Errorf("template %q tier %q: %w", tmpl.ID, tmpl.Difficulty, ErrUnknownTier)
	}
	faction := g.tables.Faction(tmpl.Faction)
	if faction == nil {
		return nil, fmt.Errorf("template %q faction %q: %w", tmpl.ID, tmpl.Faction, ErrUnknownFaction)
	}

	return &Run{
		gen:      g,
		mission:  mission,
		r:        rng.New(mission.Seed),
		template: tmpl,
		tier:     tier,
		faction:  faction,
		loot:     g.tables.Loot(tmpl.LootTable),
		reserved: make(map[world.Vec2i]struct{}, 128),
	}, nil
}

// Mission returns the immutable mission parameters of the run.
func (run *Run) Mission() Mission { return run.mission }

// Instance returns the generated instance. ok is false until the run has
// finished successfully.
func (run *Run) Instance() (Instance, bool) {
	if !run.finished || run.space == nil {
		return Instance{}, false
	}
	return Instance{
		Space:      run.space.ID(),
		Name:       run.space.Name(),
		Landing:    run.landing,
		MobsPlaced: run.mobsPlaced,
		LootPlaced: run.lootPlaced,
		Duration:   run.tier.Duration,
		Level:      run.mission.Level,
	}, true
}

// Discard deletes whatever the run has built so far. Callers invoke it when
// a job aborts, faults, or is cancelled; calling it on a fresh or already
// discarded run is a no-op.
func (run *Run) Discard() {
	if run.space == nil {
		return
	}
	run.gen.world.DeleteSpace(run.space.ID())
	run.space = nil
	run.finished = false
}

// Step advances the run until it finishes or the deadline passes.
// Returns (true, nil) on success, (false, nil) when suspended by the
// deadline, and a non-nil error on abort or fault — after an error the
// caller must Discard the run.
func (run *Run) Step(deadline time.Time) (bool, error) {
	if run.finished {
		return true, ErrAlreadyFinished
	}

	for {
		// Suspension point: yield once the slice is spent.
		if run.gen.Now().After(deadline) {
			return false, nil
		}

		done, err := run.stepOnce()
		if err != nil {
			return false, err
		}
		if done {
			return true, nil
		}
	}
}

// stepOnce performs one unit of work in the current phase.
func (run *Run) stepOnce() (bool, error) {
	switch run.phase {
	case phaseCreateSpace:
		run.createSpace()
	case phaseEnvironment:
		run.applyEnvironment()
	case phaseLayout:
		if err := run.runLayout(); err != nil {
			return false, err
		}
	case phaseLandingPad:
		run.carveLandingPad()
	case phaseGuaranteedLoot:
		run.applyNextGuaranteedRule()
	case phaseMobSpawns:
		if err := run.spawnPassUnit(true); err != nil {
			return false, err
		}
	case phaseLootSpawns:
		if err := run.spawnPassUnit(false); err != nil {
			return false, err
		}
	case phaseDone:
		run.finished = true
		slog.Debug("instance generation finished",
			"template", run.template.ID,
			"seed", run.mission.Seed,
			"space", run.space.ID(),
			"mobs", run.mobsPlaced,
			"loot", run.lootPlaced)
		return true, nil
	}
	return false, nil
}

func (run *Run) createSpace() {
	name := rng.Callsign(run.mission.Seed)
	run.space = run.gen.world.CreateSpace(name)
	slog.Debug("generating instance",
		"template", run.template.ID,
		"seed", run.mission.Seed,
		"name", name)
	run.phase = phaseEnvironment
}

func (run *Run) applyEnvironment() {
	env := world.Environment{Biome: run.template.Biome}
	if env.Habitable() {
		// Atmosphere and lighting only exist on habitable maps; a map
		// without a biome stays a vacuum rock.
		env.GasMix = run.template.Atmosphere
		env.Temperature = run.template.Temperature
		env.LightColor = run.tier.LightColor
		env.Gravity = true
	}
	run.space.SetEnvironment(env)
	run.phase = phaseLayout
}

func (run *Run) runLayout() error {
	// Placement angle comes from the seed, distance from the mission
	// stream: the dungeon is reproducible per seed but offset away from
	// the landing zone.
	minOffset := float64(run.gen.params.MinDungeonOffset())
	dist := minOffset + float64(run.gen.params.DungeonOffsetSpread)*run.r.Float64()
	angle := Rotation(run.mission.Seed)
	offset := world.Vec2i{
		X: int32(-dist * math.Sin(angle)),
		Y: int32(dist * math.Cos(angle)),
	}

	run.dungeon = run.gen.Layout(run.gen.params.Dungeon, offset, run.mission.Seed)

	if len(run.dungeon.Rooms) == 0 && len(run.dungeon.AllTiles) == 0 {
		slog.Warn("dungeon layout produced no rooms or tiles, aborting",
			"template", run.template.ID,
			"seed", run.mission.Seed)
		return ErrLayoutEmpty
	}

	// Tiles but no formal rooms: synthesize one pseudo-room so spawning
	// always has a placement region.
	if len(run.dungeon.Rooms) == 0 {
		room := SynthesizePseudoRoom(run.dungeon)
		run.dungeon.Rooms = append(run.dungeon.Rooms, room)
		slog.Debug("synthesized pseudo-room",
			"template", run.template.ID,
			"tiles", len(room.Tiles))
	}

	// Stamp the dungeon floor.
	tiles := make(map[world.Vec2i]world.Tile, len(run.dungeon.AllTiles))
	for _, p := range run.dungeon.AllTiles {
		tiles[p] = world.Tile{TypeID: run.gen.params.LandingTileType}
	}
	run.space.SetTiles(tiles)

	run.phase = phaseLandingPad
	return nil
}

func (run *Run) carveLandingPad() {
	circle := world.Circle{Radius: run.gen.params.LandingPadRadius}
	tiles := make(map[world.Vec2i]world.Tile, 4*circle.Radius*circle.Radius)

	for _, p := range circle.Tiles() {
		if !run.space.InBounds(p) {
			continue
		}
		tiles[p] = world.Tile{TypeID: run.gen.params.LandingTileType}
		run.reserved[p] = struct{}{}
		run.landing = append(run.landing, p)
	}
	run.space.SetTiles(tiles)

	run.phase = phaseGuaranteedLoot
}

// applyNextGuaranteedRule applies one guaranteed loot rule per unit of
// work. A failing rule is logged and skipped — one bad content rule must
// not break the whole instance.
func (run *Run) applyNextGuaranteedRule() {
	if run.loot == nil || run.guarIdx >= len(run.loot.Guaranteed) {
		run.phase = phaseMobSpawns
		return
	}

	rule := run.loot.Guaranteed[run.guarIdx]
	run.guarIdx++

	if err := run.applyGuaranteedRule(rule); err != nil {
		slog.Error("failed to apply guaranteed loot rule",
			"template", run.template.ID,
			"rule", rule.Proto,
			"error", err)
	}
}

func (run *Run) applyGuaranteedRule(rule content.GuaranteedRule) error {
	switch rule.Kind {
	case "biome-marker":
		if !run.space.Environment().Habitable() {
			return nil // no biome to stamp into
		}
		run.space.AddMarkerLayer(rule.Proto)
	case "biome-template":
		if !run.space.Environment().Habitable() {
			return nil
		}
		run.space.AddOverlay(rule.Proto)
	default:
		return fmt.Errorf("rule %q kind %q: %w", rule.Proto, rule.Kind, ErrUnknownRuleKind)
	}
	return nil
}

// spawnPassUnit performs one weighted draw and placement. mobs selects the
// hostile pass (faction groups, mob budget); otherwise it is the reward
// loot pass (loot entries, loot budget).
func (run *Run) spawnPassUnit(mobs bool) error {
	if !run.passInit {
		if mobs {
			run.passEntries = run.faction.MobGroups
			run.passBudget = run.tier.MobBudget
		} else {
			if run.loot == nil {
				run.phase = phaseDone
				return nil
			}
			run.passEntries = run.loot.Entries
			run.passBudget = run.tier.LootBudget
		}
		run.passInit = true
		return nil
	}

	entry := PickBudgetEntry(&run.passBudget, run.passEntries, run.r)
	if entry == nil {
		// Budget spent or nothing fits: pass over.
		run.passInit = false
		if mobs {
			run.phase = phaseLootSpawns
		} else {
			run.phase = phaseDone
		}
		return nil
	}

	layer := world.LayerItem
	if mobs {
		layer = world.LayerMob
	}
	placed, err := run.placeEntry(entry.Proto, layer)
	if err != nil {
		return err
	}
	if !placed {
		// All rooms exhausted: the draw is skipped and the instance
		// under-spawns rather than erroring.
		slog.Debug("no free tile for spawn", "proto", entry.Proto)
		return nil
	}
	if mobs {
		run.mobsPlaced++
	} else {
		run.lootPlaced++
	}
	return nil
}

// placeEntry picks a random not-yet-exhausted room, then a random free tile
// in it, and spawns the prototype there. Returns false when every room is
// exhausted.
func (run *Run) placeEntry(proto string, layer world.CollisionLayer) (bool, error) {
	if run.gen.world.Space(run.space.ID()) == nil {
		return false, ErrSpaceGone
	}

	rooms := make([]*Room, len(run.dungeon.Rooms))
	copy(rooms, run.dungeon.Rooms)

	for len(rooms) > 0 {
		ri := run.r.IntN(len(rooms))
		room := rooms[ri]
		rooms[ri] = rooms[len(rooms)-1]
		rooms = rooms[:len(rooms)-1]

		tiles := make([]world.Vec2i, len(room.Tiles))
		copy(tiles, room.Tiles)

		for len(tiles) > 0 {
			ti := run.r.IntN(len(tiles))
			tile := tiles[ti]
			tiles[ti] = tiles[len(tiles)-1]
			tiles = tiles[:len(tiles)-1]

			if _, taken := run.reserved[tile]; taken {
				continue
			}
			if !run.gen.world.TileFree(run.space.ID(), tile, world.LayerMachine) {
				continue
			}

			id, err := run.gen.world.Spawn(proto, run.space.ID(), tile, layer)
			if err != nil {
				return false, fmt.Errorf("spawning %q: %w", proto, err)
			}
			if run.mission.Level > 0 {
				h, d := run.gen.params.Scaling.Multipliers(run.mission.Level)
				run.gen.world.SetScale(id, world.Scale{Health: h, Damage: d})
			}
			return true, nil
		}
	}
	return false, nil
}

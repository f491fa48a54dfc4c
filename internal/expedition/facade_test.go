package expedition

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vantis-labs/expedition/internal/content"
	"github.com/vantis-labs/expedition/internal/gen"
	"github.com/vantis-labs/expedition/internal/portal"
	"github.com/vantis-labs/expedition/internal/sched"
	"github.com/vantis-labs/expedition/internal/world"
)

type harness struct {
	world   *world.World
	tables  *content.Tables
	gen     *gen.Generator
	sched   *sched.Scheduler
	portals *portal.Lifecycle
	facade  *Facade
	station world.SpaceID
	pads    []*portal.Pad
}

func newHarness(t *testing.T, policy Policy, padCount int) *harness {
	t.Helper()

	w := world.New()
	station := w.CreateSpace("station")

	tables, err := content.Defaults()
	require.NoError(t, err)

	g := gen.NewGenerator(w, tables, gen.DefaultParams())
	s := sched.NewScheduler(0, 0)
	life := portal.NewLifecycle(w, 5*time.Minute)

	var pads []*portal.Pad
	for i := 0; i < padCount; i++ {
		pad, err := life.RegisterPad(
			string(rune('a'+i)), station.ID(), world.Vec2i{X: int32(3 * i), Y: 5})
		require.NoError(t, err)
		pads = append(pads, pad)
	}

	f := NewFacade(Config{
		StationID: "outpost-9",
		World:     w,
		Tables:    tables,
		Generator: g,
		Scheduler: s,
		Portals:   life,
		Policy:    policy,
		Seed:      42,
	})

	return &harness{
		world: w, tables: tables, gen: g, sched: s,
		portals: life, facade: f, station: station.ID(), pads: pads,
	}
}

// drain ticks until no job is in flight.
func (h *harness) drain(t *testing.T) {
	t.Helper()
	for i := 0; i < 10000; i++ {
		h.facade.Tick()
		if !h.facade.Generating() {
			return
		}
	}
	t.Fatal("generation never finished")
}

func TestRequest_EndToEnd(t *testing.T) {
	h := newHarness(t, PolicyMultiInstance, 1)

	require.NoError(t, h.facade.Request("verdant", 0))
	require.True(t, h.facade.Generating())
	h.drain(t)

	instances := h.facade.ActiveInstances("verdant")
	require.Len(t, instances, 1)
	rec := instances[0]
	assert.Equal(t, "Verdant Reach #1", rec.Name)
	assert.NotZero(t, rec.Seed)

	sp := h.world.Space(rec.Space)
	require.NotNil(t, sp, "instance space must be live")
	assert.Equal(t, rec.Name, sp.Name())
	assert.Greater(t, sp.TileCount(), 0)

	// Pad portal is open and routes to the instance's map portal.
	pad := h.pads[0]
	gate := pad.LinkedPortal()
	require.NotEqual(t, world.InvalidEntity, gate)
	assert.Equal(t, rec.Portal, h.portals.LinkTarget(gate))
	// Route home falls back to the pad: no return marker registered.
	assert.Equal(t, pad.Entity, h.portals.LinkTarget(rec.Portal))

	st := h.facade.ConsoleState()
	assert.Equal(t, InProgress, st.Availability["verdant"])
	assert.Equal(t, []string{"Verdant Reach #1 (level 0)"}, st.Instances["verdant"])
}

func TestRequest_BusyRejected(t *testing.T) {
	h := newHarness(t, PolicyMultiInstance, 2)

	// Freeze the generator's slice clock past every deadline so the job
	// suspends forever without doing work.
	h.gen.Now = func() time.Time { return time.Now().Add(time.Hour) }

	require.NoError(t, h.facade.Request("verdant", 0))
	h.facade.Tick()
	require.True(t, h.facade.Generating())

	err := h.facade.Request("verdant", 0)
	require.ErrorIs(t, err, ErrGenerationBusy)
	assert.Equal(t, 1, h.sched.InFlight(), "no second job may be created")

	st := h.facade.ConsoleState()
	assert.Equal(t, InProgress, st.Availability["verdant"])
}

func TestRequest_UnknownAndLocked(t *testing.T) {
	h := newHarness(t, PolicyMultiInstance, 1)

	require.ErrorIs(t, h.facade.Request("atlantis", 0), ErrUnknownTemplate)
	// caverns requires verdant to be completed first.
	require.ErrorIs(t, h.facade.Request("caverns", 5), ErrTemplateLocked)
}

func TestRequest_NoPadAvailable(t *testing.T) {
	h := newHarness(t, PolicyMultiInstance, 1)

	require.NoError(t, h.facade.Request("verdant", 0))
	h.drain(t)

	// The only pad now holds the live portal.
	require.ErrorIs(t, h.facade.Request("verdant", 0), ErrNoPadAvailable)
}

func TestRequest_AbortRegistersNothing(t *testing.T) {
	h := newHarness(t, PolicyMultiInstance, 1)

	// Layout that produces no rooms and no tiles: the job must abort.
	h.gen.Layout = func(gen.DungeonConfig, world.Vec2i, uint64) *gen.Dungeon {
		return &gen.Dungeon{}
	}

	require.NoError(t, h.facade.Request("verdant", 0))
	h.drain(t)

	assert.Empty(t, h.facade.ActiveInstances("verdant"))
	assert.Equal(t, world.InvalidEntity, h.pads[0].LinkedPortal(), "no portal may open")
	assert.Equal(t, 1, h.world.SpaceCount(), "partial instance space must be discarded")

	// The mission stays unresolved; a retry is allowed immediately.
	h.gen.Layout = gen.GenerateDungeon
	require.NoError(t, h.facade.Request("verdant", 0))
	h.drain(t)
	assert.Len(t, h.facade.ActiveInstances("verdant"), 1)
}

func TestMultiInstance_FreshSeedsAndNames(t *testing.T) {
	h := newHarness(t, PolicyMultiInstance, 2)

	require.NoError(t, h.facade.Request("verdant", 0))
	h.drain(t)
	require.NoError(t, h.facade.Request("verdant", 3))
	h.drain(t)

	instances := h.facade.ActiveInstances("verdant")
	require.Len(t, instances, 2)
	assert.Equal(t, "Verdant Reach #1", instances[0].Name)
	assert.Equal(t, "Verdant Reach #2", instances[1].Name)
	assert.NotEqual(t, instances[0].Seed, instances[1].Seed, "each instance gets its own seed")
	assert.NotEqual(t, instances[0].Space, instances[1].Space)
}

func TestSingleInstance_ReusesExisting(t *testing.T) {
	h := newHarness(t, PolicySingleInstance, 2)

	require.NoError(t, h.facade.Request("verdant", 0))
	h.drain(t)
	require.Len(t, h.facade.ActiveInstances("verdant"), 1)

	// Second request reopens a portal to the existing instance on the
	// free pad instead of generating another map.
	require.NoError(t, h.facade.Request("verdant", 0))
	assert.False(t, h.facade.Generating())
	assert.Len(t, h.facade.ActiveInstances("verdant"), 1)

	rec := h.facade.ActiveInstances("verdant")[0]
	for _, pad := range h.pads {
		gate := pad.LinkedPortal()
		require.NotEqual(t, world.InvalidEntity, gate)
		assert.Equal(t, rec.Portal, h.portals.LinkTarget(gate))
	}
}

func TestReconnect(t *testing.T) {
	h := newHarness(t, PolicyMultiInstance, 2)

	require.NoError(t, h.facade.Request("verdant", 0))
	h.drain(t)
	rec := h.facade.ActiveInstances("verdant")[0]

	require.ErrorIs(t, h.facade.Reconnect("verdant", 7), ErrUnknownInstance)
	require.ErrorIs(t, h.facade.Reconnect("glacier", 0), ErrUnknownInstance)

	require.NoError(t, h.facade.Reconnect("verdant", 0))
	gate := h.pads[1].LinkedPortal()
	require.NotEqual(t, world.InvalidEntity, gate)
	assert.Equal(t, rec.Portal, h.portals.LinkTarget(gate))

	// Both pads busy now.
	require.ErrorIs(t, h.facade.Reconnect("verdant", 0), ErrNoPadAvailable)
}

func TestDisconnect(t *testing.T) {
	h := newHarness(t, PolicyMultiInstance, 1)

	h.facade.Disconnect() // nothing open: no-op

	require.NoError(t, h.facade.Request("verdant", 0))
	h.drain(t)
	require.NotEqual(t, world.InvalidEntity, h.pads[0].LinkedPortal())

	h.facade.Disconnect()
	assert.Equal(t, world.InvalidEntity, h.pads[0].LinkedPortal())

	// The instance itself persists; only the portal died.
	assert.Len(t, h.facade.ActiveInstances("verdant"), 1)
}

func TestTerminateAll(t *testing.T) {
	h := newHarness(t, PolicyMultiInstance, 2)

	require.NoError(t, h.facade.Request("verdant", 0))
	h.drain(t)
	require.NoError(t, h.facade.Request("verdant", 0))
	h.drain(t)
	require.Equal(t, 3, h.world.SpaceCount())

	h.facade.TerminateAll()

	assert.Equal(t, 1, h.world.SpaceCount(), "only the station space survives")
	assert.Empty(t, h.facade.ActiveInstances("verdant"))
	for _, pad := range h.pads {
		assert.Equal(t, world.InvalidEntity, pad.LinkedPortal())
	}
	assert.Equal(t, Available, h.facade.ConsoleState().Availability["verdant"])
}

func TestTerminateAll_CancelsInFlightJob(t *testing.T) {
	h := newHarness(t, PolicyMultiInstance, 1)
	h.gen.Now = func() time.Time { return time.Now().Add(time.Hour) }

	require.NoError(t, h.facade.Request("verdant", 0))
	h.facade.Tick()
	require.True(t, h.facade.Generating())

	h.facade.TerminateAll()
	assert.False(t, h.facade.Generating())
	assert.Equal(t, 1, h.world.SpaceCount())

	// The cancelled job drains on a later tick without resurrecting state.
	h.gen.Now = time.Now
	h.facade.Tick()
	assert.Empty(t, h.facade.ActiveInstances("verdant"))
	assert.Equal(t, 0, h.sched.InFlight())
}

func TestProgression(t *testing.T) {
	h := newHarness(t, PolicyMultiInstance, 1)
	ctx := context.Background()

	st := h.facade.ConsoleState()
	assert.Equal(t, Available, st.Availability["verdant"])
	assert.Equal(t, Locked, st.Availability["caverns"])
	assert.Equal(t, Locked, st.Availability["glacier"])
	assert.Equal(t, 0, st.MaxLevel)

	require.NoError(t, h.facade.RecordCompletion(ctx, "verdant", 4))

	st = h.facade.ConsoleState()
	assert.Equal(t, Explored, st.Availability["verdant"])
	assert.Equal(t, Available, st.Availability["caverns"], "completing verdant unlocks caverns")
	assert.Equal(t, Available, st.Availability["glacier"])
	assert.Equal(t, Locked, st.Availability["ashfall"])
	assert.Equal(t, 4, st.HighestLevels["verdant"])
	assert.Equal(t, 5, st.MaxLevel)

	// Lower completions never regress the record.
	require.NoError(t, h.facade.RecordCompletion(ctx, "verdant", 2))
	assert.Equal(t, 4, h.facade.ConsoleState().HighestLevels["verdant"])

	require.ErrorIs(t, h.facade.RecordCompletion(ctx, "atlantis", 1), ErrUnknownTemplate)
}

func TestLevelClampedToTemplateMinimum(t *testing.T) {
	h := newHarness(t, PolicyMultiInstance, 1)
	require.NoError(t, h.facade.RecordCompletion(context.Background(), "verdant", 10))

	require.NoError(t, h.facade.Request("caverns", 1))
	h.drain(t)

	instances := h.facade.ActiveInstances("caverns")
	require.Len(t, instances, 1)
	assert.Equal(t, 5, instances[0].Level, "level below the template minimum is raised to it")
}

func TestListenerPush(t *testing.T) {
	h := newHarness(t, PolicyMultiInstance, 1)

	var pushes []ConsoleState
	h.facade.Listen(func(st ConsoleState) { pushes = append(pushes, st) })
	require.Len(t, pushes, 1, "Listen pushes immediately")

	require.NoError(t, h.facade.Request("verdant", 0))
	require.Greater(t, len(pushes), 1)
	assert.Equal(t, InProgress, pushes[len(pushes)-1].Availability["verdant"])

	h.drain(t)
	last := pushes[len(pushes)-1]
	assert.Equal(t, []string{"Verdant Reach #1 (level 0)"}, last.Instances["verdant"])
}

func TestInstanceTeardownPrunesRegistry(t *testing.T) {
	h := newHarness(t, PolicyMultiInstance, 1)

	require.NoError(t, h.facade.Request("verdant", 0))
	h.drain(t)
	rec := h.facade.ActiveInstances("verdant")[0]

	var last ConsoleState
	h.facade.Listen(func(st ConsoleState) { last = st })

	h.world.DeleteSpace(rec.Space)

	assert.Empty(t, h.facade.ActiveInstances("verdant"))
	assert.Equal(t, Available, last.Availability["verdant"])

	// The dangling pad portal goes down on the next sweep tick.
	h.facade.Tick()
	assert.Equal(t, world.InvalidEntity, h.pads[0].LinkedPortal())
}

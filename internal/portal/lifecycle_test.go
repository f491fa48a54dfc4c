package portal

import (
	"errors"
	"testing"
	"time"

	"github.com/vantis-labs/expedition/internal/world"
)

type fixture struct {
	world    *world.World
	life     *Lifecycle
	pad      *Pad
	dest     Destination
	instance world.SpaceID
}

func newFixture(t *testing.T, clearDelay time.Duration) *fixture {
	t.Helper()

	w := world.New()
	station := w.CreateSpace("station")
	instance := w.CreateSpace("instance")

	life := NewLifecycle(w, clearDelay)
	pad, err := life.RegisterPad("pad-a", station.ID(), world.Vec2i{X: 3, Y: 3})
	if err != nil {
		t.Fatalf("RegisterPad: %v", err)
	}

	gate, err := w.Spawn("PortalRed", instance.ID(), world.Vec2i{X: 4, Y: 0}, world.LayerMachine)
	if err != nil {
		t.Fatalf("spawn instance portal: %v", err)
	}

	return &fixture{
		world:    w,
		life:     life,
		pad:      pad,
		dest:     Destination{Portal: gate},
		instance: instance.ID(),
	}
}

func TestOpen_LinksBothWays(t *testing.T) {
	f := newFixture(t, time.Minute)

	gate, err := f.life.Open("pad-a", f.dest)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !f.world.Exists(gate) {
		t.Fatal("pad portal entity not spawned")
	}
	if got := f.life.LinkTarget(gate); got != f.dest.Portal {
		t.Errorf("outbound link = %v; want %v", got, f.dest.Portal)
	}
	// No return marker registered, so the route home falls back to the pad.
	if got := f.life.LinkTarget(f.dest.Portal); got != f.pad.Entity {
		t.Errorf("return link = %v; want pad %v", got, f.pad.Entity)
	}
}

func TestOpen_PrefersReturnMarker(t *testing.T) {
	f := newFixture(t, time.Minute)

	marker, err := f.world.Spawn("RoomMarkerExpedition", f.pad.Space, world.Vec2i{X: 0, Y: 0}, world.LayerNone)
	if err != nil {
		t.Fatalf("spawn marker: %v", err)
	}
	f.dest.ReturnMarker = marker

	if _, err := f.life.Open("pad-a", f.dest); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := f.life.LinkTarget(f.dest.Portal); got != marker {
		t.Errorf("return link = %v; want marker %v", got, marker)
	}
}

func TestOpen_PadExclusivity(t *testing.T) {
	f := newFixture(t, time.Minute)

	if _, err := f.life.Open("pad-a", f.dest); err != nil {
		t.Fatalf("first Open: %v", err)
	}
	if _, err := f.life.Open("pad-a", f.dest); !errors.Is(err, ErrPadBusy) {
		t.Fatalf("second Open err = %v; want ErrPadBusy", err)
	}

	// Exactly one portal entity stands at the pad.
	portals := 0
	for _, ent := range f.world.EntitiesAt(f.pad.Space, f.pad.Pos) {
		if ent.Proto == ProtoPortal {
			portals++
		}
	}
	if portals != 1 {
		t.Errorf("portals at pad = %d; want 1", portals)
	}
}

func TestOpen_UnknownPad(t *testing.T) {
	f := newFixture(t, time.Minute)
	if _, err := f.life.Open("pad-z", f.dest); !errors.Is(err, ErrUnknownPad) {
		t.Fatalf("err = %v; want ErrUnknownPad", err)
	}
}

func TestSweep_ExpiryBoundary(t *testing.T) {
	const d = time.Minute
	f := newFixture(t, d)

	t0 := time.Unix(1000, 0)
	f.life.Now = func() time.Time { return t0 }

	gate, err := f.life.Open("pad-a", f.dest)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if n := f.life.Sweep(t0.Add(d - time.Nanosecond)); n != 0 {
		t.Fatalf("early sweep removed %d", n)
	}
	if !f.world.Exists(gate) {
		t.Fatal("portal gone before expiry")
	}

	if n := f.life.Sweep(t0.Add(d)); n != 1 {
		t.Fatalf("boundary sweep removed %d; want 1", n)
	}
	if f.world.Exists(gate) {
		t.Error("portal entity survived sweep")
	}
	if f.pad.LinkedPortal() != world.InvalidEntity {
		t.Error("pad still references swept portal")
	}
	// The instance-side route home survives the sweep.
	if got := f.life.LinkTarget(f.dest.Portal); got != f.pad.Entity {
		t.Errorf("return link after sweep = %v; want pad", got)
	}
}

func TestSweep_DanglingDestination(t *testing.T) {
	f := newFixture(t, time.Hour)

	gate, err := f.life.Open("pad-a", f.dest)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	// Instance torn down out from under the portal.
	f.world.DeleteSpace(f.instance)

	if n := f.life.Sweep(f.life.Now()); n != 1 {
		t.Fatalf("sweep removed %d; want 1", n)
	}
	if f.world.Exists(gate) {
		t.Error("pad portal survived dangling sweep")
	}
}

func TestDisconnect_ImmediateAndIdempotent(t *testing.T) {
	f := newFixture(t, time.Hour)

	gate, err := f.life.Open("pad-a", f.dest)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	f.life.Disconnect("pad-a")
	if f.world.Exists(gate) {
		t.Error("portal survived disconnect")
	}
	if f.pad.LinkedPortal() != world.InvalidEntity {
		t.Error("pad still linked after disconnect")
	}

	// Repeats and unknown pads are no-ops.
	f.life.Disconnect("pad-a")
	f.life.Disconnect("pad-z")
}

func TestAvailablePad(t *testing.T) {
	f := newFixture(t, time.Hour)

	padB, err := f.life.RegisterPad("pad-b", f.pad.Space, world.Vec2i{X: 9, Y: 3})
	if err != nil {
		t.Fatalf("RegisterPad: %v", err)
	}

	if got := f.life.AvailablePad(); got != f.pad {
		t.Fatalf("AvailablePad = %v; want pad-a first", got)
	}

	if _, err := f.life.Open("pad-a", f.dest); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := f.life.AvailablePad(); got != padB {
		t.Fatalf("AvailablePad = %v; want pad-b", got)
	}

	if _, err := f.life.Open("pad-b", f.dest); err != nil {
		t.Fatalf("Open pad-b: %v", err)
	}
	if got := f.life.AvailablePad(); got != nil {
		t.Fatalf("AvailablePad = %v; want nil when all busy", got)
	}
}

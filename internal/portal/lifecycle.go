// Package portal manages the temporary links between station pads and
// expedition instances. A pad holds at most one live portal; portals expire
// on a fixed delay after activation while the instance behind them persists.
package portal

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vantis-labs/expedition/internal/world"
)

var (
	ErrUnknownPad = errors.New("unknown pad")
	ErrPadBusy    = errors.New("pad already has an active portal")
)

// DefaultClearDelay is how long a portal stays open after activation.
const DefaultClearDelay = 5 * time.Minute

// ProtoPortal is the prototype spawned at the pad end of a link.
const ProtoPortal = "PortalExpedition"

// Pad is a fixed station object that anchors one end of a portal link.
type Pad struct {
	ID     string
	Entity world.EntityID
	Space  world.SpaceID
	Pos    world.Vec2i

	linkedPortal world.EntityID
	activatedAt  time.Time
}

// LinkedPortal returns the pad's live portal entity, or InvalidEntity.
func (p *Pad) LinkedPortal() world.EntityID { return p.linkedPortal }

// ActivatedAt returns when the pad's current portal was opened.
func (p *Pad) ActivatedAt() time.Time { return p.activatedAt }

// Destination describes the instance end of a link: the portal entity
// standing inside the instance, and an optional return marker players are
// sent back through. When ReturnMarker is invalid the return link points
// straight back at the originating pad.
type Destination struct {
	Portal       world.EntityID
	ReturnMarker world.EntityID
}

// Lifecycle owns every registered pad and the links of their portals.
// Mutated only from the simulation tick.
type Lifecycle struct {
	world      *world.World
	clearDelay time.Duration

	pads     map[string]*Pad
	padOrder []string

	// One-way teleport links keyed by source entity.
	links map[world.EntityID]world.EntityID

	Now func() time.Time
}

// NewLifecycle creates a lifecycle sweeping portals after clearDelay.
// Non-positive clearDelay selects DefaultClearDelay.
func NewLifecycle(w *world.World, clearDelay time.Duration) *Lifecycle {
	if clearDelay <= 0 {
		clearDelay = DefaultClearDelay
	}
	return &Lifecycle{
		world:      w,
		clearDelay: clearDelay,
		pads:       make(map[string]*Pad, 4),
		links:      make(map[world.EntityID]world.EntityID, 8),
		Now:        time.Now,
	}
}

// ClearDelay returns the configured portal lifetime.
func (l *Lifecycle) ClearDelay() time.Duration { return l.clearDelay }

// RegisterPad places a pad entity on the station space and tracks it.
func (l *Lifecycle) RegisterPad(id string, space world.SpaceID, pos world.Vec2i) (*Pad, error) {
	if _, ok := l.pads[id]; ok {
		return nil, fmt.Errorf("pad %q: already registered", id)
	}
	ent, err := l.world.Spawn("ExpeditionPad", space, pos, world.LayerMachine)
	if err != nil {
		return nil, fmt.Errorf("pad %q: %w", id, err)
	}

	pad := &Pad{ID: id, Entity: ent, Space: space, Pos: pos}
	l.pads[id] = pad
	l.padOrder = append(l.padOrder, id)
	return pad, nil
}

// Pad returns a registered pad, or nil.
func (l *Lifecycle) Pad(id string) *Pad { return l.pads[id] }

// Pads returns every registered pad in registration order.
func (l *Lifecycle) Pads() []*Pad {
	out := make([]*Pad, 0, len(l.padOrder))
	for _, id := range l.padOrder {
		out = append(out, l.pads[id])
	}
	return out
}

// AvailablePad returns the first registered pad without a live portal,
// or nil if every pad is busy.
func (l *Lifecycle) AvailablePad() *Pad {
	for _, id := range l.padOrder {
		pad := l.pads[id]
		if !l.padBusy(pad) {
			return pad
		}
	}
	return nil
}

func (l *Lifecycle) padBusy(pad *Pad) bool {
	if pad.linkedPortal == world.InvalidEntity {
		return false
	}
	if !l.world.Exists(pad.linkedPortal) {
		// Portal was torn down behind our back; forget it.
		l.clearPad(pad)
		return false
	}
	return true
}

// Open spawns a portal at the pad, links it one-way to the destination's
// portal, and links the destination back (to the return marker when one
// exists, else to the pad itself). A pad with a live portal rejects the
// open; callers pre-filter via AvailablePad.
func (l *Lifecycle) Open(padID string, dest Destination) (world.EntityID, error) {
	pad, ok := l.pads[padID]
	if !ok {
		return world.InvalidEntity, fmt.Errorf("open %q: %w", padID, ErrUnknownPad)
	}
	if l.padBusy(pad) {
		return world.InvalidEntity, fmt.Errorf("open %q: %w", padID, ErrPadBusy)
	}

	gate, err := l.world.Spawn(ProtoPortal, pad.Space, pad.Pos, world.LayerMachine)
	if err != nil {
		return world.InvalidEntity, fmt.Errorf("open %q: %w", padID, err)
	}

	l.links[gate] = dest.Portal
	ret := dest.ReturnMarker
	if ret == world.InvalidEntity || !l.world.Exists(ret) {
		ret = pad.Entity
	}
	l.links[dest.Portal] = ret

	pad.linkedPortal = gate
	pad.activatedAt = l.Now()

	slog.Info("portal opened", "pad", padID, "portal", gate, "destination", dest.Portal)
	return gate, nil
}

// LinkTarget resolves a one-way teleport link, or InvalidEntity.
func (l *Lifecycle) LinkTarget(src world.EntityID) world.EntityID {
	return l.links[src]
}

// Disconnect tears down a pad's portal immediately, without waiting for
// expiry. Unknown pads and pads without a portal are a no-op.
func (l *Lifecycle) Disconnect(padID string) {
	pad, ok := l.pads[padID]
	if !ok || pad.linkedPortal == world.InvalidEntity {
		return
	}
	slog.Info("portal disconnected", "pad", padID, "portal", pad.linkedPortal)
	l.teardown(pad)
}

// Sweep tears down every portal whose clear delay has elapsed, plus any
// whose destination entity no longer exists. Returns the number removed.
func (l *Lifecycle) Sweep(now time.Time) int {
	removed := 0
	for _, id := range l.padOrder {
		pad := l.pads[id]
		if !l.padBusy(pad) {
			continue
		}
		expired := !now.Before(pad.activatedAt.Add(l.clearDelay))
		dangling := !l.world.Exists(l.links[pad.linkedPortal])
		if !expired && !dangling {
			continue
		}
		slog.Info("portal swept", "pad", id, "portal", pad.linkedPortal, "expired", expired)
		l.teardown(pad)
		removed++
	}
	return removed
}

// teardown deletes the pad's portal entity and its outbound link. The
// instance-side portal and its return link survive; the pad (or station
// return marker) they point at is a permanent object.
func (l *Lifecycle) teardown(pad *Pad) {
	gate := pad.linkedPortal
	delete(l.links, gate)
	l.world.Delete(gate)
	l.clearPad(pad)
}

func (l *Lifecycle) clearPad(pad *Pad) {
	pad.linkedPortal = world.InvalidEntity
	pad.activatedAt = time.Time{}
}

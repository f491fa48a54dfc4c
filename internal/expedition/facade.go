// Package expedition is the orchestration layer behind the station console:
// it validates instance requests, runs generation jobs through the
// scheduler, tracks active instances, and connects finished instances to
// station pads through the portal lifecycle.
package expedition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vantis-labs/expedition/internal/content"
	"github.com/vantis-labs/expedition/internal/gen"
	"github.com/vantis-labs/expedition/internal/portal"
	"github.com/vantis-labs/expedition/internal/rng"
	"github.com/vantis-labs/expedition/internal/sched"
	"github.com/vantis-labs/expedition/internal/world"
)

var (
	ErrUnknownTemplate  = errors.New("unknown map template")
	ErrTemplateLocked   = errors.New("template is locked")
	ErrGenerationBusy   = errors.New("a generation job is already in flight")
	ErrNoPadAvailable   = errors.New("no pad available")
	ErrUnknownInstance  = errors.New("unknown instance")
	ErrInstanceNoPortal = errors.New("instance has no portal")
)

// Policy selects how repeated requests for the same template behave.
type Policy int

const (
	// PolicyMultiInstance always generates a fresh, independently seeded
	// instance and tracks it as an additional list entry.
	PolicyMultiInstance Policy = iota
	// PolicySingleInstance reuses the template's existing instance,
	// reopening a portal to it instead of generating another.
	PolicySingleInstance
)

// Prototypes spawned into a finished instance before it is linked up.
const (
	protoRoomMarker = "RoomMarkerExpedition"
	protoMapPortal  = "PortalRed"
)

// mapPortalPos is the fixed offset inside an instance where the room marker
// and map-side portal are placed, just off the landing pad center.
var mapPortalPos = world.Vec2i{X: 4, Y: 0}

// pending is the single in-flight generation job for the station.
type pending struct {
	job        *sched.Job
	run        *gen.Run
	templateID string
	padID      string
}

// Facade owns one station's expedition state. All methods are called from
// the simulation tick; the facade performs no locking of its own.
type Facade struct {
	stationID string
	world     *world.World
	tables    *content.Tables
	gen       *gen.Generator
	sched     *sched.Scheduler
	portals   *portal.Lifecycle
	progress  ProgressStore // nil disables persistence

	// seeds is the stream fresh mission seeds are drawn from.
	seeds *rng.Source

	unlocked map[string]struct{}
	highest  map[string]int

	active      map[string][]*ActiveInstance
	instanceSeq map[string]int
	inFlight    *pending

	policy       Policy
	returnMarker world.EntityID
	listeners    []Listener

	Now func() time.Time
}

// Config wires a Facade's collaborators.
type Config struct {
	StationID string
	World     *world.World
	Tables    *content.Tables
	Generator *gen.Generator
	Scheduler *sched.Scheduler
	Portals   *portal.Lifecycle
	Progress  ProgressStore
	Policy    Policy

	// Seed feeds the station's mission-seed stream.
	Seed uint64

	// ReturnMarker is the station entity instance portals link back to.
	// Invalid falls back to linking straight to the pad.
	ReturnMarker world.EntityID
}

// NewFacade builds the per-station facade and hooks instance teardown.
func NewFacade(cfg Config) *Facade {
	f := &Facade{
		stationID:    cfg.StationID,
		world:        cfg.World,
		tables:       cfg.Tables,
		gen:          cfg.Generator,
		sched:        cfg.Scheduler,
		portals:      cfg.Portals,
		progress:     cfg.Progress,
		seeds:        rng.New(rng.DeriveSeed(cfg.Seed, "missions", cfg.StationID)),
		unlocked:     make(map[string]struct{}, 8),
		highest:      make(map[string]int, 8),
		active:       make(map[string][]*ActiveInstance, 8),
		instanceSeq:  make(map[string]int, 8),
		policy:       cfg.Policy,
		returnMarker: cfg.ReturnMarker,
		Now:          time.Now,
	}
	// An instance torn down by any path drops out of the registry.
	f.world.OnSpaceDeleted(f.onSpaceDeleted)
	return f
}

// Restore loads persisted progression. Call once at startup; without a
// progress store it is a no-op.
func (f *Facade) Restore(ctx context.Context) error {
	if f.progress == nil {
		return nil
	}
	unlocked, highest, err := f.progress.Load(ctx, f.stationID)
	if err != nil {
		return fmt.Errorf("restoring station %q progress: %w", f.stationID, err)
	}
	for _, id := range unlocked {
		f.unlocked[id] = struct{}{}
	}
	for id, lvl := range highest {
		f.highest[id] = lvl
	}
	slog.Info("station progress restored",
		"station", f.stationID,
		"unlocked", len(unlocked),
		"completed", len(highest))
	return nil
}

// Listen registers a console listener and immediately pushes current state.
func (f *Facade) Listen(fn Listener) {
	f.listeners = append(f.listeners, fn)
	fn(f.ConsoleState())
}

func (f *Facade) push() {
	if len(f.listeners) == 0 {
		return
	}
	st := f.ConsoleState()
	for _, fn := range f.listeners {
		fn(st)
	}
}

// Request asks for an instance of the template at the given power level.
// The level is clamped up to the template's minimum. Under the
// single-instance policy an existing instance is reconnected instead of
// generating a new one. A second request while a job is in flight is
// rejected, not queued.
func (f *Facade) Request(templateID string, level int) error {
	tmpl := f.tables.Map(templateID)
	if tmpl == nil {
		return fmt.Errorf("request %q: %w", templateID, ErrUnknownTemplate)
	}
	if f.availability(tmpl) == Locked {
		return fmt.Errorf("request %q: %w", templateID, ErrTemplateLocked)
	}
	if f.inFlight != nil {
		return fmt.Errorf("request %q: %w", templateID, ErrGenerationBusy)
	}

	if f.policy == PolicySingleInstance {
		if instances := f.active[templateID]; len(instances) > 0 {
			return f.openTo(instances[0])
		}
	}

	pad := f.portals.AvailablePad()
	if pad == nil {
		return fmt.Errorf("request %q: %w", templateID, ErrNoPadAvailable)
	}

	if level < tmpl.MinLevel {
		level = tmpl.MinLevel
	}
	seed := tmpl.FixedSeed
	if seed == 0 {
		// Fresh seed per request so every instance is unique.
		seed = f.seeds.Uint64()
	}

	run, err := f.gen.NewRun(gen.Mission{TemplateID: templateID, Seed: seed, Level: level})
	if err != nil {
		return fmt.Errorf("request %q: %w", templateID, err)
	}

	f.inFlight = &pending{
		job:        f.sched.Submit(run),
		run:        run,
		templateID: templateID,
		padID:      pad.ID,
	}
	slog.Info("generation requested",
		"station", f.stationID,
		"template", templateID,
		"level", level,
		"seed", seed)
	f.push()
	return nil
}

// Tick drives one scheduler pass, resolves any terminal job, and sweeps
// expired portals. Call once per simulation tick.
func (f *Facade) Tick() {
	for _, job := range f.sched.Tick() {
		f.resolveJob(job)
	}
	if f.portals.Sweep(f.Now()) > 0 {
		f.push()
	}
}

func (f *Facade) resolveJob(job *sched.Job) {
	p := f.inFlight
	if p == nil || p.job != job {
		// Cancelled by TerminateAll; its run was already discarded.
		return
	}
	f.inFlight = nil

	switch job.Status() {
	case sched.StatusFinished:
		inst, ok := p.run.Instance()
		if !ok {
			p.run.Discard()
			slog.Error("finished job produced no instance", "template", p.templateID)
			break
		}
		f.registerInstance(p, inst)
	case sched.StatusFaulted:
		p.run.Discard()
		if errors.Is(job.Err(), gen.ErrLayoutEmpty) {
			slog.Warn("generation aborted, no instance produced",
				"template", p.templateID, "error", job.Err())
		} else {
			slog.Error("generation job faulted",
				"template", p.templateID, "error", job.Err())
		}
	case sched.StatusCancelled:
		p.run.Discard()
		slog.Info("generation job cancelled", "template", p.templateID)
	}
	f.push()
}

// registerInstance finishes a generated map: places the room marker and
// map-side portal, records the instance, and opens the pad portal.
func (f *Facade) registerInstance(p *pending, inst gen.Instance) {
	if _, err := f.world.Spawn(protoRoomMarker, inst.Space, mapPortalPos, world.LayerNone); err != nil {
		p.run.Discard()
		slog.Error("placing room marker", "template", p.templateID, "error", err)
		return
	}
	mapPortal, err := f.world.Spawn(protoMapPortal, inst.Space, mapPortalPos, world.LayerMachine)
	if err != nil {
		p.run.Discard()
		slog.Error("placing map portal", "template", p.templateID, "error", err)
		return
	}

	tmpl := f.tables.Map(p.templateID)
	f.instanceSeq[p.templateID]++
	rec := &ActiveInstance{
		TemplateID: p.templateID,
		Name:       fmt.Sprintf("%s #%d", tmpl.Name, f.instanceSeq[p.templateID]),
		Seed:       p.run.Mission().Seed,
		Level:      inst.Level,
		Space:      inst.Space,
		Portal:     mapPortal,
		CreatedAt:  f.Now(),
	}
	f.active[p.templateID] = append(f.active[p.templateID], rec)
	f.world.Space(inst.Space).SetName(rec.Name)

	slog.Info("instance ready",
		"station", f.stationID,
		"template", p.templateID,
		"name", rec.Name,
		"space", inst.Space,
		"mobs", inst.MobsPlaced,
		"loot", inst.LootPlaced)

	dest := portal.Destination{Portal: mapPortal, ReturnMarker: f.returnMarker}
	if _, err := f.portals.Open(p.padID, dest); err != nil {
		// Pad got taken while we were generating; the instance stays
		// registered and is reachable through Reconnect.
		slog.Warn("opening pad portal", "pad", p.padID, "error", err)
	}
}

// Reconnect opens a new pad portal to an already-active instance, selected
// by template and position in the template's instance list.
func (f *Facade) Reconnect(templateID string, instanceIndex int) error {
	instances := f.active[templateID]
	if instanceIndex < 0 || instanceIndex >= len(instances) {
		return fmt.Errorf("reconnect %q[%d]: %w", templateID, instanceIndex, ErrUnknownInstance)
	}
	return f.openTo(instances[instanceIndex])
}

func (f *Facade) openTo(rec *ActiveInstance) error {
	if !f.world.Exists(rec.Portal) {
		return fmt.Errorf("instance %q: %w", rec.Name, ErrInstanceNoPortal)
	}
	pad := f.portals.AvailablePad()
	if pad == nil {
		return fmt.Errorf("instance %q: %w", rec.Name, ErrNoPadAvailable)
	}
	dest := portal.Destination{Portal: rec.Portal, ReturnMarker: f.returnMarker}
	if _, err := f.portals.Open(pad.ID, dest); err != nil {
		return err
	}
	f.push()
	return nil
}

// Disconnect tears down the station's first active pad portal immediately.
// Doing nothing when no portal is open mirrors the stale-pad no-op rule.
func (f *Facade) Disconnect() {
	if pad := f.busyPad(); pad != nil {
		f.portals.Disconnect(pad.ID)
		f.push()
	}
}

func (f *Facade) busyPad() *portal.Pad {
	for _, pad := range f.portals.Pads() {
		if pad.LinkedPortal() != world.InvalidEntity && f.world.Exists(pad.LinkedPortal()) {
			return pad
		}
	}
	return nil
}

// TerminateAll is the admin teardown: it cancels any in-flight job and
// deletes every active instance and portal immediately, bypassing expiry.
func (f *Facade) TerminateAll() {
	if p := f.inFlight; p != nil {
		p.job.Cancel()
		p.run.Discard()
		f.inFlight = nil
	}

	// Deleting the spaces fires onSpaceDeleted, which prunes the registry
	// entries; dangling pad portals go down in the same pass.
	var spaces []world.SpaceID
	for _, instances := range f.active {
		for _, rec := range instances {
			spaces = append(spaces, rec.Space)
		}
	}
	for _, id := range spaces {
		f.world.DeleteSpace(id)
	}
	f.portals.Sweep(f.Now())

	slog.Info("all expeditions terminated", "station", f.stationID, "instances", len(spaces))
	f.push()
}

// RecordCompletion marks a template completed at the given level, unlocking
// its follow-up templates and persisting progression when a store is wired.
func (f *Facade) RecordCompletion(ctx context.Context, templateID string, level int) error {
	tmpl := f.tables.Map(templateID)
	if tmpl == nil {
		return fmt.Errorf("completion %q: %w", templateID, ErrUnknownTemplate)
	}

	if level > f.highest[templateID] {
		f.highest[templateID] = level
		if f.progress != nil {
			if err := f.progress.SaveCompletion(ctx, f.stationID, templateID, level); err != nil {
				return fmt.Errorf("persisting completion %q: %w", templateID, err)
			}
		}
	}

	for _, next := range tmpl.Unlocks {
		if _, ok := f.unlocked[next]; ok {
			continue
		}
		f.unlocked[next] = struct{}{}
		if f.progress != nil {
			if err := f.progress.SaveUnlock(ctx, f.stationID, next); err != nil {
				return fmt.Errorf("persisting unlock %q: %w", next, err)
			}
		}
		slog.Info("map unlocked", "station", f.stationID, "template", next)
	}

	f.push()
	return nil
}

// ActiveInstances returns the live instances for a template, in creation
// order. The slice is shared; callers must not mutate it.
func (f *Facade) ActiveInstances(templateID string) []*ActiveInstance {
	return f.active[templateID]
}

// Generating reports whether a generation job is currently in flight.
func (f *Facade) Generating() bool { return f.inFlight != nil }

// ConsoleState assembles the availability snapshot pushed to consoles.
func (f *Facade) ConsoleState() ConsoleState {
	st := ConsoleState{
		Availability:  make(map[string]Availability),
		Instances:     make(map[string][]string),
		HighestLevels: make(map[string]int, len(f.highest)),
	}

	for _, id := range f.tables.MapIDs() {
		st.Availability[id] = f.availability(f.tables.Map(id))
	}
	for id, instances := range f.active {
		names := make([]string, len(instances))
		for i, rec := range instances {
			names[i] = fmt.Sprintf("%s (level %d)", rec.Name, rec.Level)
		}
		st.Instances[id] = names
	}
	for id, lvl := range f.highest {
		st.HighestLevels[id] = lvl
		if lvl+1 > st.MaxLevel {
			st.MaxLevel = lvl + 1
		}
	}
	return st
}

func (f *Facade) availability(tmpl *content.MapTemplate) Availability {
	if len(f.active[tmpl.ID]) > 0 || (f.inFlight != nil && f.inFlight.templateID == tmpl.ID) {
		return InProgress
	}

	open := tmpl.UnlockedByDefault
	if _, ok := f.unlocked[tmpl.ID]; ok {
		open = true
	}
	if !open {
		open = true
		for _, pre := range tmpl.Prerequisites {
			if _, ok := f.unlocked[pre]; !ok {
				open = false
				break
			}
		}
	}
	if !open {
		return Locked
	}
	if _, done := f.highest[tmpl.ID]; done {
		return Explored
	}
	return Available
}

// onSpaceDeleted prunes registry entries whose instance map went away.
func (f *Facade) onSpaceDeleted(id world.SpaceID) {
	changed := false
	for templateID, instances := range f.active {
		kept := instances[:0]
		for _, rec := range instances {
			if rec.Space == id {
				changed = true
				continue
			}
			kept = append(kept, rec)
		}
		if len(kept) == 0 {
			delete(f.active, templateID)
		} else {
			f.active[templateID] = kept
		}
	}
	if changed {
		f.push()
	}
}

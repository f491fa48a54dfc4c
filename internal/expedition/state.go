package expedition

import (
	"context"
	"time"

	"github.com/vantis-labs/expedition/internal/world"
)

// Availability is the console-facing state of one map template.
type Availability int

const (
	// Locked: prerequisites not yet completed.
	Locked Availability = iota
	// Available: unlocked and ready to generate.
	Available
	// InProgress: an instance is generating or active right now.
	InProgress
	// Explored: completed at least once and currently idle.
	Explored
)

func (a Availability) String() string {
	switch a {
	case Locked:
		return "locked"
	case Available:
		return "available"
	case InProgress:
		return "in-progress"
	case Explored:
		return "explored"
	default:
		return "unknown"
	}
}

// ActiveInstance is one live generated map tracked by the registry.
// Multiple instances may exist per template, each independently seeded.
type ActiveInstance struct {
	TemplateID string
	Name       string
	Seed       uint64
	Level      int
	Space      world.SpaceID
	Portal     world.EntityID
	CreatedAt  time.Time
}

// ConsoleState is the snapshot pushed to console listeners whenever the
// registry changes: availability per template, active instance names for the
// reconnect affordance, and level progression.
type ConsoleState struct {
	Availability map[string]Availability
	// Instances lists active display names per template.
	Instances map[string][]string
	// HighestLevels records the best completed level per template.
	HighestLevels map[string]int
	// MaxLevel is the highest level any template may be started at:
	// best completed level overall plus one, or zero before any completion.
	MaxLevel int
}

// Listener receives console state pushes.
type Listener func(ConsoleState)

// ProgressStore persists station progression across restarts. Active and
// in-flight instances are deliberately not persisted; only unlocks and
// completed levels survive.
type ProgressStore interface {
	Load(ctx context.Context, stationID string) (unlocked []string, highest map[string]int, err error)
	SaveUnlock(ctx context.Context, stationID, templateID string) error
	SaveCompletion(ctx context.Context, stationID, templateID string, level int) error
}

// Package content holds the static tables expedition generation draws from:
// map templates, difficulty tiers, hostile factions, and loot tables.
// Tables are in-code defaults optionally overridden from a YAML file, and are
// injected into the systems that need them rather than looked up globally.
package content

import (
	"errors"
	"time"
)

// Sentinel errors for table validation.
var (
	ErrEmptyID           = errors.New("empty id")
	ErrEmptyName         = errors.New("empty template name")
	ErrUnknownTier       = errors.New("unknown difficulty tier")
	ErrUnknownFaction    = errors.New("unknown faction")
	ErrUnknownLootTable  = errors.New("unknown loot table")
	ErrUnknownPrereq     = errors.New("unknown prerequisite template")
	ErrNegativeBudget    = errors.New("negative budget")
	ErrInvalidSpawnEntry = errors.New("spawn entry needs positive cost")
)

// MapTemplate describes one kind of expedition map a station can open.
type MapTemplate struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`

	// Progression.
	MinLevel          int      `yaml:"min_level"`
	UnlockedByDefault bool     `yaml:"unlocked_by_default"`
	Prerequisites     []string `yaml:"prerequisites"`
	Unlocks           []string `yaml:"unlocks"`

	// Environment. An empty biome yields a vacuum map: the atmosphere and
	// lighting steps are skipped during generation.
	Biome       string  `yaml:"biome"`
	Atmosphere  string  `yaml:"atmosphere"`
	Temperature float64 `yaml:"temperature"`

	Difficulty string `yaml:"difficulty"`
	Faction    string `yaml:"faction"`
	LootTable  string `yaml:"loot_table"`

	// FixedSeed pins generation to one layout. Zero means a fresh seed is
	// derived per instance.
	FixedSeed uint64 `yaml:"fixed_seed"`
}

// Validate checks that template fields are sensible.
func (t *MapTemplate) Validate() error {
	if t.ID == "" {
		return ErrEmptyID
	}
	if t.Name == "" {
		return ErrEmptyName
	}
	return nil
}

// DifficultyTier is a named bundle of generation budgets and ambient
// parameters shared by every map of that difficulty.
type DifficultyTier struct {
	ID         string        `yaml:"id"`
	MobBudget  float64       `yaml:"mob_budget"`
	LootBudget float64       `yaml:"loot_budget"`
	Duration   time.Duration `yaml:"duration"`
	LightColor string        `yaml:"light_color"`
}

// Validate checks tier budgets.
func (d *DifficultyTier) Validate() error {
	if d.ID == "" {
		return ErrEmptyID
	}
	if d.MobBudget < 0 || d.LootBudget < 0 {
		return ErrNegativeBudget
	}
	return nil
}

// SpawnEntry is one weighted candidate in a budget draw: a mob group or a
// reward loot entry. Weight drives selection probability, Cost depletes the
// pass budget when the entry is drawn.
type SpawnEntry struct {
	Proto  string  `yaml:"proto"`
	Weight float64 `yaml:"weight"`
	Cost   float64 `yaml:"cost"`
}

// Validate checks the entry can participate in budget draws.
func (e SpawnEntry) Validate() error {
	if e.Proto == "" {
		return ErrEmptyID
	}
	if e.Cost <= 0 {
		return ErrInvalidSpawnEntry
	}
	return nil
}

// Faction is a set of weighted mob groups hostile spawns are drawn from.
type Faction struct {
	ID        string       `yaml:"id"`
	MobGroups []SpawnEntry `yaml:"mob_groups"`
}

// GuaranteedRule is a loot rule applied regardless of budget, mainly used
// for ore layers stamped into the biome.
type GuaranteedRule struct {
	// Kind selects how the rule is applied: "biome-marker" adds a resource
	// marker layer, "biome-template" overlays a whole loot template.
	Kind  string `yaml:"kind"`
	Proto string `yaml:"proto"`
}

// LootTable holds the guaranteed rules and the weighted reward entries for
// one tier of expedition loot.
type LootTable struct {
	ID         string           `yaml:"id"`
	Guaranteed []GuaranteedRule `yaml:"guaranteed"`
	Entries    []SpawnEntry     `yaml:"entries"`
}

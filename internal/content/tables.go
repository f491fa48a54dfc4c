package content

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Tables is the loaded content registry.
type Tables struct {
	maps     map[string]*MapTemplate
	tiers    map[string]*DifficultyTier
	factions map[string]*Faction
	loot     map[string]*LootTable

	// Stable iteration order for availability snapshots.
	mapOrder []string
}

// tablesFile mirrors the YAML layout of a content override file.
type tablesFile struct {
	Maps     []MapTemplate    `yaml:"maps"`
	Tiers    []DifficultyTier `yaml:"tiers"`
	Factions []Faction        `yaml:"factions"`
	Loot     []LootTable      `yaml:"loot"`
}

// Load reads content tables from a YAML file. A missing file yields the
// built-in defaults, matching how server config loading behaves.
func Load(path string) (*Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Defaults()
		}
		return nil, fmt.Errorf("reading content tables %s: %w", path, err)
	}

	var f tablesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing content tables %s: %w", path, err)
	}
	return build(f)
}

func build(f tablesFile) (*Tables, error) {
	t := &Tables{
		maps:     make(map[string]*MapTemplate, len(f.Maps)),
		tiers:    make(map[string]*DifficultyTier, len(f.Tiers)),
		factions: make(map[string]*Faction, len(f.Factions)),
		loot:     make(map[string]*LootTable, len(f.Loot)),
	}

	for i := range f.Tiers {
		tier := &f.Tiers[i]
		if err := tier.Validate(); err != nil {
			return nil, fmt.Errorf("tier %q: %w", tier.ID, err)
		}
		t.tiers[tier.ID] = tier
	}
	for i := range f.Factions {
		fac := &f.Factions[i]
		if fac.ID == "" {
			return nil, fmt.Errorf("faction %d: %w", i, ErrEmptyID)
		}
		for _, e := range fac.MobGroups {
			if err := e.Validate(); err != nil {
				return nil, fmt.Errorf("faction %q entry %q: %w", fac.ID, e.Proto, err)
			}
		}
		t.factions[fac.ID] = fac
	}
	for i := range f.Loot {
		lt := &f.Loot[i]
		if lt.ID == "" {
			return nil, fmt.Errorf("loot table %d: %w", i, ErrEmptyID)
		}
		for _, e := range lt.Entries {
			if err := e.Validate(); err != nil {
				return nil, fmt.Errorf("loot table %q entry %q: %w", lt.ID, e.Proto, err)
			}
		}
		t.loot[lt.ID] = lt
	}
	for i := range f.Maps {
		m := &f.Maps[i]
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("map template %q: %w", m.ID, err)
		}
		if _, ok := t.tiers[m.Difficulty]; !ok {
			return nil, fmt.Errorf("map template %q tier %q: %w", m.ID, m.Difficulty, ErrUnknownTier)
		}
		if _, ok := t.factions[m.Faction]; !ok {
			return nil, fmt.Errorf("map template %q faction %q: %w", m.ID, m.Faction, ErrUnknownFaction)
		}
		if m.LootTable != "" {
			if _, ok := t.loot[m.LootTable]; !ok {
				return nil, fmt.Errorf("map template %q loot %q: %w", m.ID, m.LootTable, ErrUnknownLootTable)
			}
		}
		t.maps[m.ID] = m
		t.mapOrder = append(t.mapOrder, m.ID)
	}

	// Prerequisite graph must only name known maps.
	for _, m := range t.maps {
		for _, p := range m.Prerequisites {
			if _, ok := t.maps[p]; !ok {
				return nil, fmt.Errorf("map template %q prerequisite %q: %w", m.ID, p, ErrUnknownPrereq)
			}
		}
	}

	slog.Info("content tables loaded",
		"maps", len(t.maps),
		"tiers", len(t.tiers),
		"factions", len(t.factions),
		"loot_tables", len(t.loot))
	return t, nil
}

// Map returns a map template by ID, or nil.
func (t *Tables) Map(id string) *MapTemplate { return t.maps[id] }

// MapIDs returns all map template IDs in declaration order.
func (t *Tables) MapIDs() []string { return t.mapOrder }

// Tier returns a difficulty tier by ID, or nil.
func (t *Tables) Tier(id string) *DifficultyTier { return t.tiers[id] }

// Faction returns a faction by ID, or nil.
func (t *Tables) Faction(id string) *Faction { return t.factions[id] }

// Loot returns a loot table by ID, or nil.
func (t *Tables) Loot(id string) *LootTable { return t.loot[id] }

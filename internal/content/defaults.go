package content

import "time"

// Defaults returns the built-in content tables. These are the shipped maps;
// a server override file can replace them wholesale.
func Defaults() (*Tables, error) {
	return build(tablesFile{
		Tiers: []DifficultyTier{
			{ID: "Minor", MobBudget: 6, LootBudget: 6, Duration: 25 * time.Minute, LightColor: "#9ec2ff"},
			{ID: "Moderate", MobBudget: 10, LootBudget: 8, Duration: 25 * time.Minute, LightColor: "#ffd59e"},
			{ID: "Hazardous", MobBudget: 16, LootBudget: 12, Duration: 30 * time.Minute, LightColor: "#ff9e9e"},
			{ID: "Extreme", MobBudget: 24, LootBudget: 16, Duration: 30 * time.Minute, LightColor: "#c89eff"},
		},
		Factions: []Faction{
			{ID: "Scrappers", MobGroups: []SpawnEntry{
				{Proto: "MobScrapjack", Weight: 3, Cost: 2},
				{Proto: "MobScrapHound", Weight: 2, Cost: 3},
				{Proto: "MobScrapBrute", Weight: 1, Cost: 5},
			}},
			{ID: "Carps", MobGroups: []SpawnEntry{
				{Proto: "MobCarp", Weight: 4, Cost: 2},
				{Proto: "MobCarpMagic", Weight: 1, Cost: 4},
			}},
			{ID: "Wendigo", MobGroups: []SpawnEntry{
				{Proto: "MobSnowTroll", Weight: 2, Cost: 4},
				{Proto: "MobWendigo", Weight: 1, Cost: 8},
			}},
		},
		Loot: []LootTable{
			{
				ID: "StandardExpeditionLoot",
				Guaranteed: []GuaranteedRule{
					{Kind: "biome-marker", Proto: "OreIron"},
					{Kind: "biome-marker", Proto: "OreQuartz"},
					{Kind: "biome-template", Proto: "LootSurfaceScatter"},
				},
				Entries: []SpawnEntry{
					{Proto: "CrateSalvageEquipment", Weight: 3, Cost: 2},
					{Proto: "CrateSalvageMaterials", Weight: 3, Cost: 2},
					{Proto: "CrateSalvageArmory", Weight: 1, Cost: 4},
				},
			},
		},
		Maps: []MapTemplate{
			{
				ID: "verdant", Name: "Verdant Reach",
				UnlockedByDefault: true,
				Unlocks:           []string{"caverns", "glacier"},
				Biome:             "Grasslands",
				Atmosphere:        "Breathable",
				Temperature:       293.15,
				Difficulty:        "Minor",
				Faction:           "Scrappers",
				LootTable:         "StandardExpeditionLoot",
			},
			{
				ID: "caverns", Name: "Howling Caverns",
				MinLevel:      5,
				Prerequisites: []string{"verdant"},
				Unlocks:       []string{"ashfall"},
				Biome:         "Caves",
				Atmosphere:    "Breathable",
				Temperature:   283.15,
				Difficulty:    "Moderate",
				Faction:       "Carps",
				LootTable:     "StandardExpeditionLoot",
			},
			{
				ID: "glacier", Name: "Pale Glacier",
				MinLevel:      5,
				Prerequisites: []string{"verdant"},
				Biome:         "Snow",
				Atmosphere:    "Thin",
				Temperature:   233.15,
				Difficulty:    "Moderate",
				Faction:       "Wendigo",
				LootTable:     "StandardExpeditionLoot",
			},
			{
				ID: "ashfall", Name: "Ashfall Core",
				MinLevel:      15,
				Prerequisites: []string{"caverns"},
				Biome:         "Lava",
				Atmosphere:    "Toxic",
				Temperature:   353.15,
				Difficulty:    "Hazardous",
				Faction:       "Scrappers",
				LootTable:     "StandardExpeditionLoot",
			},
			{
				// Airless derelict field: no biome, so generation skips the
				// atmosphere and lighting passes entirely.
				ID: "derelict", Name: "Derelict Belt",
				MinLevel:      25,
				Prerequisites: []string{"ashfall"},
				Difficulty:    "Extreme",
				Faction:       "Carps",
				LootTable:     "StandardExpeditionLoot",
			},
		},
	})
}

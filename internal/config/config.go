// Package config loads the expedition server configuration from YAML,
// falling back to built-in defaults when no file is present.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Server holds all configuration for the expedition server.
type Server struct {
	// Logging: "debug", "info", "warn" or "error".
	LogLevel string `yaml:"log_level"`

	// Simulation tick.
	TickIntervalMs int `yaml:"tick_interval_ms"`

	// Scheduler budgets.
	JobSliceMs   int `yaml:"job_slice_ms"`
	TickBudgetMs int `yaml:"tick_budget_ms"`

	// Generation.
	LandingPadRadius    int32   `yaml:"landing_pad_radius"`
	LandingTileType     uint16  `yaml:"landing_tile_type"`
	DungeonOffsetSpread int32   `yaml:"dungeon_offset_spread"`
	HealthCoefficient   float64 `yaml:"health_coefficient"`
	DamageCoefficient   float64 `yaml:"damage_coefficient"`
	ScalingExponent     float64 `yaml:"scaling_exponent"`
	MaxScaleMultiplier  float64 `yaml:"max_scale_multiplier"`

	// ContentPath optionally overrides the built-in content tables.
	ContentPath string `yaml:"content_path"`

	// Portal lifetime after activation.
	PortalClearDelaySec int `yaml:"portal_clear_delay_sec"`

	// Instance policy: "multi" (fresh instance per request) or "single"
	// (reuse the template's existing instance).
	InstancePolicy string `yaml:"instance_policy"`

	// Station layout.
	Station Station `yaml:"station"`

	// Database. Progression persistence is skipped when disabled.
	Database DatabaseConfig `yaml:"database"`
}

// TickInterval returns the simulation tick period.
func (s Server) TickInterval() time.Duration {
	return time.Duration(s.TickIntervalMs) * time.Millisecond
}

// JobSlice returns the per-job time slice for generation jobs.
func (s Server) JobSlice() time.Duration {
	return time.Duration(s.JobSliceMs) * time.Millisecond
}

// TickBudget returns the whole-tick wall budget for the job scheduler.
func (s Server) TickBudget() time.Duration {
	return time.Duration(s.TickBudgetMs) * time.Millisecond
}

// PortalClearDelay returns how long a pad portal stays open.
func (s Server) PortalClearDelay() time.Duration {
	return time.Duration(s.PortalClearDelaySec) * time.Second
}

// Station describes the host station and its expedition pads.
type Station struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	// Seed feeds the station's mission-seed stream. Zero draws a random
	// seed at startup.
	Seed uint64 `yaml:"seed"`
	Pads []Pad  `yaml:"pads"`
}

// Pad is one expedition pad position on the station.
type Pad struct {
	ID string `yaml:"id"`
	X  int32  `yaml:"x"`
	Y  int32  `yaml:"y"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// Default returns Server config with sensible defaults.
func Default() Server {
	return Server{
		LogLevel:            "info",
		TickIntervalMs:      50,
		JobSliceMs:          2,
		TickBudgetMs:        5,
		LandingPadRadius:    6,
		LandingTileType:     1,
		DungeonOffsetSpread: 12,
		HealthCoefficient:   0.2,
		DamageCoefficient:   0.2,
		ScalingExponent:     1.5,
		MaxScaleMultiplier:  100,
		PortalClearDelaySec: 300,
		InstancePolicy:      "multi",
		Station: Station{
			ID:   "outpost-9",
			Name: "Outpost 9",
			Pads: []Pad{
				{ID: "pad-a", X: 3, Y: 5},
				{ID: "pad-b", X: 9, Y: 5},
			},
		},
		Database: DatabaseConfig{
			Host:     "127.0.0.1",
			Port:     5432,
			User:     "expedition",
			Password: "expedition",
			DBName:   "expedition",
			SSLMode:  "disable",
		},
	}
}

// Load loads server config from a YAML file.
// If the file doesn't exist, returns defaults.
func Load(path string) (Server, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

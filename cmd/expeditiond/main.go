package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vantis-labs/expedition/internal/config"
	"github.com/vantis-labs/expedition/internal/content"
	"github.com/vantis-labs/expedition/internal/db"
	"github.com/vantis-labs/expedition/internal/expedition"
	"github.com/vantis-labs/expedition/internal/gen"
	"github.com/vantis-labs/expedition/internal/portal"
	"github.com/vantis-labs/expedition/internal/sched"
	"github.com/vantis-labs/expedition/internal/world"
)

const ConfigPath = "config/expedition.yaml"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfgPath := ConfigPath
	if p := os.Getenv("EXPEDITION_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	})))
	slog.Info("expedition server starting",
		"station", cfg.Station.ID,
		"tick", cfg.TickInterval(),
		"policy", cfg.InstancePolicy)

	tables, err := loadTables(cfg)
	if err != nil {
		return fmt.Errorf("loading content tables: %w", err)
	}
	slog.Info("content tables loaded", "maps", len(tables.MapIDs()))

	var progress expedition.ProgressStore
	if cfg.Database.Enabled {
		database, err := db.New(ctx, cfg.Database.DSN())
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer database.Close()
		if err := db.RunMigrations(ctx, cfg.Database.DSN()); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		progress = db.NewPostgresProgressRepository(database.Pool())
		slog.Info("database connected, migrations applied")
	}

	w := world.New()
	station := w.CreateSpace(cfg.Station.Name)

	params := gen.DefaultParams()
	params.LandingPadRadius = cfg.LandingPadRadius
	params.LandingTileType = cfg.LandingTileType
	params.DungeonOffsetSpread = cfg.DungeonOffsetSpread
	params.Scaling = gen.ScalingParams{
		HealthCoefficient: cfg.HealthCoefficient,
		DamageCoefficient: cfg.DamageCoefficient,
		Exponent:          cfg.ScalingExponent,
		MaxMultiplier:     cfg.MaxScaleMultiplier,
	}

	generator := gen.NewGenerator(w, tables, params)
	scheduler := sched.NewScheduler(cfg.JobSlice(), cfg.TickBudget())
	portals := portal.NewLifecycle(w, cfg.PortalClearDelay())

	for _, pad := range cfg.Station.Pads {
		if _, err := portals.RegisterPad(pad.ID, station.ID(), world.Vec2i{X: pad.X, Y: pad.Y}); err != nil {
			return fmt.Errorf("registering pad: %w", err)
		}
	}

	seed := cfg.Station.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	facade := expedition.NewFacade(expedition.Config{
		StationID: cfg.Station.ID,
		World:     w,
		Tables:    tables,
		Generator: generator,
		Scheduler: scheduler,
		Portals:   portals,
		Progress:  progress,
		Policy:    policy(cfg.InstancePolicy),
		Seed:      seed,
	})
	if err := facade.Restore(ctx); err != nil {
		return fmt.Errorf("restoring progress: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ticker := time.NewTicker(cfg.TickInterval())
		defer ticker.Stop()
		slog.Info("tick loop started")
		for {
			select {
			case <-gctx.Done():
				facade.TerminateAll()
				return nil
			case <-ticker.C:
				facade.Tick()
			}
		}
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	slog.Info("expedition server stopped")
	return nil
}

func loadTables(cfg config.Server) (*content.Tables, error) {
	if cfg.ContentPath != "" {
		return content.Load(cfg.ContentPath)
	}
	return content.Defaults()
}

func policy(name string) expedition.Policy {
	if name == "single" {
		return expedition.PolicySingleInstance
	}
	return expedition.PolicyMultiInstance
}

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

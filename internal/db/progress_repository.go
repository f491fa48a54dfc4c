package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresProgressRepository stores station progression in PostgreSQL.
// It satisfies expedition.ProgressStore.
type PostgresProgressRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresProgressRepository creates a repository over the given pool.
func NewPostgresProgressRepository(pool *pgxpool.Pool) *PostgresProgressRepository {
	return &PostgresProgressRepository{pool: pool}
}

// Load returns the station's unlocked templates and highest completed level
// per template. A station with no rows yields empty results, not an error.
func (r *PostgresProgressRepository) Load(ctx context.Context, stationID string) ([]string, map[string]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT template_id FROM station_unlocks WHERE station_id = $1`, stationID)
	if err != nil {
		return nil, nil, fmt.Errorf("querying unlocks for %q: %w", stationID, err)
	}
	defer rows.Close()

	var unlocked []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, nil, fmt.Errorf("scanning unlock for %q: %w", stationID, err)
		}
		unlocked = append(unlocked, id)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("reading unlocks for %q: %w", stationID, err)
	}

	levelRows, err := r.pool.Query(ctx,
		`SELECT template_id, level FROM station_map_levels WHERE station_id = $1`, stationID)
	if err != nil {
		return nil, nil, fmt.Errorf("querying levels for %q: %w", stationID, err)
	}
	defer levelRows.Close()

	highest := make(map[string]int)
	for levelRows.Next() {
		var id string
		var lvl int
		if err := levelRows.Scan(&id, &lvl); err != nil {
			return nil, nil, fmt.Errorf("scanning level for %q: %w", stationID, err)
		}
		highest[id] = lvl
	}
	if err := levelRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("reading levels for %q: %w", stationID, err)
	}

	return unlocked, highest, nil
}

// SaveUnlock records an unlocked template. Re-unlocking is a no-op.
func (r *PostgresProgressRepository) SaveUnlock(ctx context.Context, stationID, templateID string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO station_unlocks (station_id, template_id, unlocked_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (station_id, template_id) DO NOTHING`,
		stationID, templateID, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("saving unlock %q/%q: %w", stationID, templateID, err)
	}
	return nil
}

// SaveCompletion records a completed level, keeping the highest seen.
func (r *PostgresProgressRepository) SaveCompletion(ctx context.Context, stationID, templateID string, level int) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO station_map_levels (station_id, template_id, level, completed_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (station_id, template_id)
		 DO UPDATE SET level = GREATEST(station_map_levels.level, EXCLUDED.level),
		               completed_at = EXCLUDED.completed_at`,
		stationID, templateID, level, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("saving completion %q/%q: %w", stationID, templateID, err)
	}
	return nil
}

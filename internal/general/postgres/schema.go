package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS tracks (
			name          TEXT PRIMARY KEY,
			latitude      DOUBLE PRECISION NOT NULL CHECK (latitude BETWEEN -90 AND 90),
			longitude     DOUBLE PRECISION NOT NULL CHECK (longitude BETWEEN -180 AND 180),
			radius_meters DOUBLE PRECISION NOT NULL CHECK (radius_meters > 0),
			created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	`CREATE TABLE IF NOT EXISTS laps (
			id              BIGSERIAL PRIMARY KEY,
			race_id         TEXT NOT NULL,
			competitor_id   TEXT NOT NULL,
			competitor_name TEXT NOT NULL DEFAULT '',
			lap_number      INTEGER NOT NULL CHECK (lap_number >= 1),
			lap_seconds     DOUBLE PRECISION NOT NULL CHECK (lap_seconds >= 0),
			completed_at    TIMESTAMPTZ NOT NULL,
			UNIQUE (race_id, competitor_id, lap_number, completed_at)
		)`,
	`CREATE INDEX IF NOT EXISTS laps_race_completed_idx ON laps (race_id, completed_at DESC)`,
}

// EnsureSchema creates the track catalog and lap archive when they do not exist yet.
// Live race sessions are never stored.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

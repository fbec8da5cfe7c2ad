package postgres

import (
	"context"

	"racegap/internal/domain/race"
	"racegap/internal/ports"
)

// LapRepo archives completed laps using pgx and plain SQL.
type LapRepo struct{}

// NewLapRepo constructs a new LapRepo.
func NewLapRepo() ports.LapRepository {
	return &LapRepo{}
}

// Append inserts a new laps row.
func (repo *LapRepo) Append(ctx context.Context, ev race.LapEvent) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	if err := ev.Validate(); err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO laps (race_id, competitor_id, competitor_name, lap_number, lap_seconds, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (race_id, competitor_id, lap_number, completed_at) DO NOTHING
	`,
		ev.RaceID,
		ev.CompetitorID,
		ev.Name,
		ev.Lap,
		ev.LapSeconds,
		ev.At.UTC(),
	)
	return err
}

// ListByRace returns the newest laps of a race first, at most limit rows.
func (repo *LapRepo) ListByRace(ctx context.Context, raceID string, limit int) ([]race.LapEvent, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT race_id, competitor_id, competitor_name, lap_number, lap_seconds, completed_at
		FROM laps
		WHERE race_id = $1
		ORDER BY completed_at DESC, id DESC
		LIMIT $2
	`, raceID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]race.LapEvent, 0, limit)
	for rows.Next() {
		var ev race.LapEvent
		if err := rows.Scan(&ev.RaceID, &ev.CompetitorID, &ev.Name, &ev.Lap, &ev.LapSeconds, &ev.At); err != nil {
			return nil, err
		}
		ev.At = ev.At.UTC()
		out = append(out, ev)
	}
	return out, rows.Err()
}

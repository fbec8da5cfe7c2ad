package postgres

import (
	"context"
	"errors"

	"racegap/internal/domain/geo"
	"racegap/internal/domain/track"
	"racegap/internal/ports"

	"github.com/jackc/pgx/v5"
)

// TrackRepo persists the start/finish line catalog using pgx and plain SQL.
type TrackRepo struct{}

// NewTrackRepo constructs a new TrackRepo.
func NewTrackRepo() ports.TrackRepository {
	return &TrackRepo{}
}

// Upsert inserts a track or replaces the line of an existing one.
func (repo *TrackRepo) Upsert(ctx context.Context, t *track.Track) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	if err := t.Validate(); err != nil {
		return err
	}

	return tx.QueryRow(ctx, `
		INSERT INTO tracks (name, latitude, longitude, radius_meters)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE
		SET latitude = EXCLUDED.latitude,
		    longitude = EXCLUDED.longitude,
		    radius_meters = EXCLUDED.radius_meters,
		    updated_at = now()
		RETURNING created_at, updated_at
	`,
		t.Name,
		t.Center.Latitude,
		t.Center.Longitude,
		t.RadiusMeters,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
}

// GetByName returns track.ErrTrackNotFound when no row matches.
func (repo *TrackRepo) GetByName(ctx context.Context, name string) (*track.Track, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, `
		SELECT name, latitude, longitude, radius_meters, created_at, updated_at
		FROM tracks
		WHERE name = $1
	`, track.NormalizeName(name))

	t, err := scanTrack(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, track.ErrTrackNotFound
	}
	return t, err
}

// List returns the whole catalog ordered by name.
func (repo *TrackRepo) List(ctx context.Context) ([]*track.Track, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT name, latitude, longitude, radius_meters, created_at, updated_at
		FROM tracks
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*track.Track
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTrack(row pgx.Row) (*track.Track, error) {
	var (
		t        track.Track
		lat, lng float64
	)
	if err := row.Scan(&t.Name, &lat, &lng, &t.RadiusMeters, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Center = geo.Coordinate{Latitude: lat, Longitude: lng}
	return &t, nil
}

package ports

import (
	"context"

	"racegap/internal/domain/race"
	"racegap/internal/domain/track"
)

// UnitOfWork interface is used to manage transactions across multiple repository operations.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// TrackRepository stores the catalog of named start/finish lines.
type TrackRepository interface {
	Upsert(ctx context.Context, t *track.Track) error
	GetByName(ctx context.Context, name string) (*track.Track, error)
	List(ctx context.Context) ([]*track.Track, error)
}

// LapRepository archives completed laps. Live sessions are never read back from it.
type LapRepository interface {
	Append(ctx context.Context, ev race.LapEvent) error
	ListByRace(ctx context.Context, raceID string, limit int) ([]race.LapEvent, error)
}

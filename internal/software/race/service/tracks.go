package service

import (
	"context"

	"racegap/internal/domain/geo"
	"racegap/internal/domain/track"
)

// RegisterTrack adds or replaces a named start/finish line in the catalog.
func (svc *raceService) RegisterTrack(ctx context.Context, name string, center geo.Coordinate, radiusMeters float64) (*track.Track, error) {
	t, err := track.NewTrack(name, center, radiusMeters)
	if err != nil {
		return nil, err
	}

	if err := svc.uow.WithinTx(ctx, func(ctx context.Context) error {
		return svc.tracks.Upsert(ctx, t)
	}); err != nil {
		svc.logger.Error(ctx, "track_upsert_failed", "Failed to store track", err, map[string]any{"track": t.Name})
		return nil, err
	}

	svc.logger.Info(ctx, "track_registered", "Track stored in catalog", map[string]any{
		"track":         t.Name,
		"radius_meters": t.RadiusMeters,
	})
	return t, nil
}

// ListTracks returns the catalog.
func (svc *raceService) ListTracks(ctx context.Context) ([]*track.Track, error) {
	var out []*track.Track
	err := svc.uow.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		out, err = svc.tracks.List(ctx)
		return err
	})
	return out, err
}

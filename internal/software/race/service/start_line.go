package service

import (
	"context"
	"fmt"
	"strings"

	"racegap/internal/domain/geo"
	"racegap/internal/domain/race"
	"racegap/internal/domain/track"
	"racegap/internal/general/contracts"
)

// SetStartLine configures the race's start/finish geofence once.
func (svc *raceService) SetStartLine(ctx context.Context, raceID string, center geo.Coordinate, radiusMeters float64) (contracts.StartLineSet, error) {
	raceID = strings.TrimSpace(raceID)
	if raceID == "" {
		return contracts.StartLineSet{}, race.ErrEmptyRaceID
	}
	ctx = svc.logger.WithRaceID(ctx, raceID)

	h, err := svc.registry.GetOrCreate(raceID)
	if err != nil {
		return contracts.StartLineSet{}, err
	}

	set := contracts.StartLineSet{
		RaceID:       raceID,
		Lat:          center.Latitude,
		Lng:          center.Longitude,
		RadiusMeters: radiusMeters,
	}
	err = h.Do(func(s *race.Session) error {
		if err := s.SetStartLine(center, radiusMeters); err != nil {
			return err
		}
		svc.broadcaster.Broadcast(raceID, contracts.WSOutbound{Type: contracts.TypeStartLineSet, Data: set})
		return nil
	})
	if err != nil {
		svc.logger.Error(ctx, "start_line_rejected", "Start line configuration rejected", err, map[string]any{
			"lat":           center.Latitude,
			"lng":           center.Longitude,
			"radius_meters": radiusMeters,
		})
		return contracts.StartLineSet{}, err
	}

	svc.logger.Info(ctx, "start_line_set", "Start line configured", map[string]any{
		"lat":           center.Latitude,
		"lng":           center.Longitude,
		"radius_meters": radiusMeters,
	})
	return set, nil
}

// SetStartLineFromTrack configures the start line from a catalog entry.
func (svc *raceService) SetStartLineFromTrack(ctx context.Context, raceID, trackName string) (contracts.StartLineSet, error) {
	var t *track.Track
	err := svc.uow.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		t, err = svc.tracks.GetByName(ctx, trackName)
		return err
	})
	if err != nil {
		return contracts.StartLineSet{}, fmt.Errorf("lookup track %q: %w", trackName, err)
	}
	return svc.SetStartLine(ctx, raceID, t.Center, t.RadiusMeters)
}

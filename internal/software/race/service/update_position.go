package service

import (
	"context"
	"errors"

	"racegap/internal/domain/geo"
	"racegap/internal/domain/race"
	"racegap/internal/general/contracts"
)

// UpdatePosition applies a telemetry sample to every race the competitor has
// joined. Each race runs update, lap detection, ranking and broadcast under
// its own lock before the next sample for that race is handled.
func (svc *raceService) UpdatePosition(ctx context.Context, competitorID string, position geo.Coordinate, speed float64) error {
	races := svc.racesOf(competitorID)
	if len(races) == 0 {
		return race.ErrUnknownCompetitor
	}

	applied := 0
	for _, raceID := range races {
		h, ok := svc.registry.Get(raceID)
		if !ok {
			continue
		}
		raceCtx := svc.logger.WithRaceID(ctx, raceID)

		err := h.Do(func(s *race.Session) error {
			res, err := s.ApplyPosition(competitorID, position, speed)
			if err != nil {
				return err
			}
			if res.Lap != nil {
				svc.emitLap(raceCtx, *res.Lap)
			}
			svc.emitLeaderboard(raceCtx, s)
			return nil
		})
		switch {
		case errors.Is(err, race.ErrUnknownCompetitor):
			// left concurrently; drop the stale membership
			svc.removeMembership(competitorID, raceID)
		case err != nil:
			return err
		default:
			applied++
		}
	}

	if applied == 0 {
		return race.ErrUnknownCompetitor
	}

	svc.logger.Debug(ctx, "position_applied", "Telemetry applied", map[string]any{
		"competitor_id": competitorID,
		"races":         applied,
		"lat":           position.Latitude,
		"lng":           position.Longitude,
		"speed":         speed,
	})
	return nil
}

// emitLeaderboard ranks the session and fans the result out. Callers hold the session lock.
func (svc *raceService) emitLeaderboard(ctx context.Context, s *race.Session) {
	msg := contracts.NewLeaderboardMessage(s.Leaderboard())
	msg.Envelope = svc.envelope(ctx)

	svc.broadcaster.Broadcast(s.RaceID, contracts.WSOutbound{Type: contracts.TypeLeaderboard, Data: msg})
	svc.publisher.PublishLeaderboard(ctx, msg)
}

// emitLap announces a completed lap. Callers hold the session lock.
func (svc *raceService) emitLap(ctx context.Context, ev race.LapEvent) {
	msg := contracts.NewLapMessage(ev)
	msg.Envelope = svc.envelope(ctx)

	svc.logger.Info(ctx, "lap_recorded", "Lap completed", map[string]any{
		"competitor_id": ev.CompetitorID,
		"lap":           ev.Lap,
		"lap_sec":       msg.LapSec,
	})

	svc.broadcaster.Broadcast(ev.RaceID, contracts.WSOutbound{Type: contracts.TypeLapCompleted, Data: msg})
	svc.publisher.PublishLap(ctx, msg)
	if svc.archive != nil {
		svc.archive.Record(ctx, ev)
	}
}

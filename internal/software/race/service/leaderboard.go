package service

import (
	"context"
	"errors"
	"strings"

	"racegap/internal/domain/race"
	"racegap/internal/general/contracts"
)

// Leaderboard returns the current ranking of an existing race.
func (svc *raceService) Leaderboard(ctx context.Context, raceID string) (contracts.LeaderboardMessage, error) {
	h, ok := svc.registry.Get(raceID)
	if !ok {
		return contracts.LeaderboardMessage{}, race.ErrUnknownRace
	}

	var msg contracts.LeaderboardMessage
	_ = h.Do(func(s *race.Session) error {
		msg = contracts.NewLeaderboardMessage(s.Leaderboard())
		return nil
	})
	msg.Envelope = svc.envelope(ctx)
	return msg, nil
}

// Watch returns the board a new spectator should start from. Unknown races
// yield an empty board without creating a session.
func (svc *raceService) Watch(ctx context.Context, raceID string) (contracts.LeaderboardMessage, error) {
	raceID = strings.TrimSpace(raceID)
	if raceID == "" {
		return contracts.LeaderboardMessage{}, race.ErrEmptyRaceID
	}
	msg, err := svc.Leaderboard(ctx, raceID)
	if errors.Is(err, race.ErrUnknownRace) {
		return contracts.LeaderboardMessage{
			RaceID:      raceID,
			Rows:        []contracts.LeaderboardRow{},
			GeneratedAt: svc.now().UTC(),
			Envelope:    svc.envelope(ctx),
		}, nil
	}
	return msg, err
}

package service

import (
	"context"
	"strings"

	"racegap/internal/domain/race"
)

// Join adds the competitor to the race, creating the session on first use.
func (svc *raceService) Join(ctx context.Context, competitorID, raceID, name string) (race.CompetitorView, error) {
	raceID = strings.TrimSpace(raceID)
	if raceID == "" {
		return race.CompetitorView{}, race.ErrEmptyRaceID
	}
	ctx = svc.logger.WithRaceID(ctx, raceID)

	h, err := svc.registry.GetOrCreate(raceID)
	if err != nil {
		return race.CompetitorView{}, err
	}

	var joined race.CompetitorView
	err = h.Do(func(s *race.Session) error {
		joined, err = s.Join(competitorID, name)
		if err != nil {
			return err
		}
		svc.emitLeaderboard(ctx, s)
		return nil
	})
	if err != nil {
		svc.logger.Error(ctx, "competitor_join_failed", "Failed to join race", err, map[string]any{
			"competitor_id": competitorID,
		})
		return race.CompetitorView{}, err
	}

	svc.addMembership(joined.ID, raceID)

	svc.logger.Info(ctx, "competitor_joined", "Competitor joined race", map[string]any{
		"competitor_id": joined.ID,
		"name":          joined.Name,
	})
	return joined, nil
}

// Leave removes the competitor from one race. It is idempotent.
func (svc *raceService) Leave(ctx context.Context, competitorID, raceID string) error {
	raceID = strings.TrimSpace(raceID)
	if raceID == "" {
		return race.ErrEmptyRaceID
	}
	ctx = svc.logger.WithRaceID(ctx, raceID)
	svc.removeMembership(competitorID, raceID)

	removed := svc.registry.Remove(raceID, competitorID, func(s *race.Session) {
		svc.emitLeaderboard(ctx, s)
	})
	if removed {
		svc.logger.Info(ctx, "competitor_left", "Competitor left race", map[string]any{
			"competitor_id": competitorID,
		})
	}
	return nil
}

// Disconnect removes the competitor from every race it joined.
func (svc *raceService) Disconnect(ctx context.Context, competitorID string) {
	for _, raceID := range svc.racesOf(competitorID) {
		_ = svc.Leave(ctx, competitorID, raceID)
	}
}

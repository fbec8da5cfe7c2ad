package service

import (
	"context"
	"fmt"
	"strings"

	"racegap/internal/domain/race"
	"racegap/internal/general/contracts"
)

const (
	DefaultLapHistoryLimit = 100
	MaxLapHistoryLimit     = 1000
)

// LapHistory returns archived laps of a race, newest first. A limit <= 0 uses
// the default; larger limits are capped. Races without an archive have no history.
func (svc *raceService) LapHistory(ctx context.Context, raceID string, limit int) (contracts.LapHistory, error) {
	raceID = strings.TrimSpace(raceID)
	if raceID == "" {
		return contracts.LapHistory{}, race.ErrEmptyRaceID
	}
	if limit <= 0 {
		limit = DefaultLapHistoryLimit
	}
	limit = min(limit, MaxLapHistoryLimit)

	res := contracts.LapHistory{RaceID: raceID, Laps: []contracts.LapMessage{}}
	if svc.archive == nil {
		return res, nil
	}

	laps, err := svc.archive.history(ctx, raceID, limit)
	if err != nil {
		return contracts.LapHistory{}, fmt.Errorf("list laps: %w", err)
	}
	for _, ev := range laps {
		res.Laps = append(res.Laps, contracts.NewLapMessage(ev))
	}
	return res, nil
}

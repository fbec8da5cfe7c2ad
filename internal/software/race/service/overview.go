package service

import (
	"context"

	"racegap/internal/domain/race"
	"racegap/internal/general/contracts"
)

// Overview summarizes every live race in race id order.
func (svc *raceService) Overview(ctx context.Context) contracts.RaceOverview {
	res := contracts.RaceOverview{
		Races:       []contracts.RaceSummary{},
		GeneratedAt: svc.now().UTC(),
	}
	for _, id := range svc.registry.RaceIDs() {
		h, ok := svc.registry.Get(id)
		if !ok {
			continue
		}
		_ = h.Do(func(s *race.Session) error {
			_, hasLine := s.StartLine()
			res.Races = append(res.Races, contracts.RaceSummary{
				RaceID:       s.RaceID,
				Competitors:  s.Len(),
				StartLineSet: hasLine,
				CreatedAt:    s.CreatedAt,
			})
			return nil
		})
	}
	svc.logger.Debug(ctx, "overview_built", "Race overview built", map[string]any{"races": len(res.Races)})
	return res
}

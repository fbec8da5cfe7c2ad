package memstore

import (
	"context"
	"slices"
	"sync"

	"racegap/internal/domain/race"
	"racegap/internal/ports"
)

// LapRepo is the lap archive used when Postgres is disabled.
type LapRepo struct {
	mu   sync.RWMutex
	laps map[string][]race.LapEvent // race id -> laps in arrival order
}

// NewLapRepo constructs an empty in-memory lap archive.
func NewLapRepo() *LapRepo {
	return &LapRepo{laps: make(map[string][]race.LapEvent)}
}

var _ ports.LapRepository = (*LapRepo)(nil)

func (repo *LapRepo) Append(_ context.Context, ev race.LapEvent) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.laps[ev.RaceID] = append(repo.laps[ev.RaceID], ev)
	return nil
}

// ListByRace returns the newest laps first, at most limit entries.
func (repo *LapRepo) ListByRace(_ context.Context, raceID string, limit int) ([]race.LapEvent, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()
	stored := repo.laps[raceID]
	out := make([]race.LapEvent, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		out = append(out, stored[i])
	}
	slices.SortStableFunc(out, func(a, b race.LapEvent) int { return b.At.Compare(a.At) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

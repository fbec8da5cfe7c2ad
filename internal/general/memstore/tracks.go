package memstore

import (
	"context"
	"slices"
	"strings"
	"sync"

	"racegap/internal/domain/track"
	"racegap/internal/ports"
)

// TrackRepo is the catalog used when Postgres is disabled.
type TrackRepo struct {
	mu     sync.RWMutex
	tracks map[string]track.Track
}

// NewTrackRepo constructs an empty in-memory catalog.
func NewTrackRepo() *TrackRepo {
	return &TrackRepo{tracks: make(map[string]track.Track)}
}

var _ ports.TrackRepository = (*TrackRepo)(nil)

func (repo *TrackRepo) Upsert(_ context.Context, t *track.Track) error {
	if err := t.Validate(); err != nil {
		return err
	}
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if prev, ok := repo.tracks[t.Name]; ok {
		t.CreatedAt = prev.CreatedAt
	}
	repo.tracks[t.Name] = *t
	return nil
}

func (repo *TrackRepo) GetByName(_ context.Context, name string) (*track.Track, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()
	t, ok := repo.tracks[track.NormalizeName(name)]
	if !ok {
		return nil, track.ErrTrackNotFound
	}
	return &t, nil
}

func (repo *TrackRepo) List(_ context.Context) ([]*track.Track, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()
	out := make([]*track.Track, 0, len(repo.tracks))
	for _, t := range repo.tracks {
		out = append(out, &t)
	}
	slices.SortFunc(out, func(a, b *track.Track) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

// UnitOfWork runs fn directly; the in-memory catalog needs no transaction.
type UnitOfWork struct{}

func (UnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

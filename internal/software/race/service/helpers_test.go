package service

import (
	"context"
	"fmt"
	"io"
	"math"
	"sync"
	"testing"
	"time"

	"racegap/internal/domain/geo"
	"racegap/internal/general/contracts"
	"racegap/internal/general/logger"
	"racegap/internal/general/memstore"
	"racegap/internal/ports"
)

var startLineCenter = geo.Coordinate{Latitude: 37.7749, Longitude: -122.4194}

func north(c geo.Coordinate, meters float64) geo.Coordinate {
	return geo.Coordinate{
		Latitude:  c.Latitude + meters/(geo.EarthRadiusMeters*math.Pi/180),
		Longitude: c.Longitude,
	}
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type broadcast struct {
	raceID string
	msg    contracts.WSOutbound
}

type recordingBroadcaster struct {
	mu   sync.Mutex
	sent []broadcast
}

func (b *recordingBroadcaster) Broadcast(raceID string, msg any) {
	out, _ := msg.(contracts.WSOutbound)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, broadcast{raceID: raceID, msg: out})
}

func (b *recordingBroadcaster) ofType(typ string) []broadcast {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []broadcast
	for _, s := range b.sent {
		if s.msg.Type == typ {
			out = append(out, s)
		}
	}
	return out
}

func (b *recordingBroadcaster) lastBoard(t *testing.T, raceID string) contracts.LeaderboardMessage {
	t.Helper()
	boards := b.ofType(contracts.TypeLeaderboard)
	for i := len(boards) - 1; i >= 0; i-- {
		if boards[i].raceID == raceID {
			return boards[i].msg.Data.(contracts.LeaderboardMessage)
		}
	}
	t.Fatalf("no leaderboard broadcast for race %q", raceID)
	return contracts.LeaderboardMessage{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	boards []contracts.LeaderboardMessage
	laps   []contracts.LapMessage
}

func (p *recordingPublisher) PublishLeaderboard(_ context.Context, msg contracts.LeaderboardMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.boards = append(p.boards, msg)
}

func (p *recordingPublisher) PublishLap(_ context.Context, msg contracts.LapMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.laps = append(p.laps, msg)
}

type testEnv struct {
	svc         ports.RaceService
	registry    *Registry
	tracks      *memstore.TrackRepo
	broadcaster *recordingBroadcaster
	publisher   *recordingPublisher
	archive     *LapArchive
	clock       *fakeClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	clock := newFakeClock()
	var (
		idMu sync.Mutex
		next int
	)
	log := logger.NewWithWriter("race-service", io.Discard)
	env := &testEnv{
		registry:    NewRegistry(clock.Now),
		tracks:      memstore.NewTrackRepo(),
		broadcaster: &recordingBroadcaster{},
		publisher:   &recordingPublisher{},
		archive:     NewLapArchive(log, memstore.UnitOfWork{}, memstore.NewLapRepo(), 16),
		clock:       clock,
	}
	env.svc = NewRaceService(
		log,
		env.registry,
		memstore.UnitOfWork{},
		env.tracks,
		env.broadcaster,
		env.publisher,
		WithClock(clock.Now),
		WithLapArchive(env.archive),
		WithIDGenerator(func() string {
			idMu.Lock()
			defer idMu.Unlock()
			next++
			return fmt.Sprintf("c%d", next)
		}),
	)
	return env
}

// driveLap moves a joined competitor out of the 10 m line at startLineCenter
// and back in twice, closing one 60 s lap.
func driveLap(t *testing.T, env *testEnv, competitorID string) {
	t.Helper()
	steps := []struct {
		meters  float64
		advance time.Duration
	}{
		{50, 0},
		{3, time.Second},
		{40, 30 * time.Second},
		{5, 30 * time.Second},
	}
	for _, s := range steps {
		env.clock.Advance(s.advance)
		if err := env.svc.UpdatePosition(context.Background(), competitorID, north(startLineCenter, s.meters), 12); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
}

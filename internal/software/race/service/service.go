package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"racegap/internal/general/contracts"
	"racegap/internal/general/logger"
	"racegap/internal/ports"

	"github.com/google/uuid"
)

const producerName = "race-service"

// raceService holds all dependencies required by the race service.
type raceService struct {
	logger      *logger.Logger
	registry    *Registry
	uow         ports.UnitOfWork
	tracks      ports.TrackRepository
	broadcaster ports.Broadcaster
	publisher   ports.EventPublisher
	archive     *LapArchive
	now         func() time.Time
	newID       func() string

	mu          sync.RWMutex
	memberships map[string]map[string]struct{} // competitor id -> race ids
	devices     map[string]string              // device id -> competitor id
}

// Option tweaks a race service at construction time.
type Option func(*raceService)

// WithClock overrides the wall clock used for envelopes.
func WithClock(clock func() time.Time) Option {
	return func(s *raceService) { s.now = clock }
}

// WithIDGenerator overrides competitor id generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *raceService) { s.newID = gen }
}

// WithLapArchive stores every completed lap through the given archive.
func WithLapArchive(archive *LapArchive) Option {
	return func(s *raceService) { s.archive = archive }
}

// NewRaceService constructs the service with required dependencies.
func NewRaceService(
	logger *logger.Logger,
	registry *Registry,
	uow ports.UnitOfWork,
	tracks ports.TrackRepository,
	broadcaster ports.Broadcaster,
	publisher ports.EventPublisher,
	opts ...Option,
) ports.RaceService {
	svc := &raceService{
		logger:      logger,
		registry:    registry,
		uow:         uow,
		tracks:      tracks,
		broadcaster: broadcaster,
		publisher:   publisher,
		now:         time.Now,
		newID:       uuid.NewString,
		memberships: make(map[string]map[string]struct{}),
		devices:     make(map[string]string),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// NewCompetitorID returns a session-scoped competitor id that is independent of any transport.
func (svc *raceService) NewCompetitorID() string {
	return svc.newID()
}

// envelope stamps outbound messages.
func (svc *raceService) envelope(ctx context.Context) contracts.Envelope {
	return contracts.Envelope{
		CorrelationID: logger.RequestIDFrom(ctx),
		Producer:      producerName,
		SentAt:        svc.now().UTC(),
	}
}

// ----- membership index -----

func (svc *raceService) addMembership(competitorID, raceID string) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	races, ok := svc.memberships[competitorID]
	if !ok {
		races = make(map[string]struct{})
		svc.memberships[competitorID] = races
	}
	races[raceID] = struct{}{}
}

func (svc *raceService) removeMembership(competitorID, raceID string) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	races, ok := svc.memberships[competitorID]
	if !ok {
		return
	}
	delete(races, raceID)
	if len(races) == 0 {
		delete(svc.memberships, competitorID)
	}
}

// racesOf returns a copy of the races a competitor has joined.
func (svc *raceService) racesOf(competitorID string) []string {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	races := svc.memberships[competitorID]
	out := make([]string, 0, len(races))
	for id := range races {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

package race

import (
	"errors"
	"math"
	"strings"
	"time"

	"racegap/internal/domain/geo"
)

// Session is the live state of one race. It is not safe for concurrent use;
// the registry serializes every call for a given race id.
type Session struct {
	RaceID      string
	CreatedAt   time.Time
	startLine   *geo.Geofence
	competitors map[string]*Competitor
	nextJoin    uint64
	now         func() time.Time
}

// PositionUpdate is the outcome of an accepted telemetry sample.
type PositionUpdate struct {
	Competitor CompetitorView
	Crossed    bool      // a lap-crossing event fired on this sample
	Lap        *LapEvent // non-nil when the crossing closed a lap
}

// NewSession creates an empty session. A nil clock defaults to time.Now.
func NewSession(raceID string, clock func() time.Time) (*Session, error) {
	if raceID = strings.TrimSpace(raceID); raceID == "" {
		return nil, ErrEmptyRaceID
	}
	if clock == nil {
		clock = time.Now
	}
	return &Session{
		RaceID:      raceID,
		CreatedAt:   clock().UTC(),
		competitors: make(map[string]*Competitor),
		now:         clock,
	}, nil
}

// SetStartLine configures the start/finish geofence. It succeeds at most once.
func (s *Session) SetStartLine(center geo.Coordinate, radiusMeters float64) error {
	if s.startLine != nil {
		return ErrStartLineAlreadySet
	}
	fence, err := geo.NewGeofence(center, radiusMeters)
	if err != nil {
		if errors.Is(err, geo.ErrInvalidRadius) {
			return ErrInvalidRadius
		}
		return errors.Join(ErrInvalidStartLine, err)
	}
	s.startLine = &fence
	return nil
}

// StartLine returns the configured geofence, if any.
func (s *Session) StartLine() (geo.Geofence, bool) {
	if s.startLine == nil {
		return geo.Geofence{}, false
	}
	return *s.startLine, true
}

// Join adds a competitor. Re-joining with a known id only updates the name.
func (s *Session) Join(competitorID, name string) (CompetitorView, error) {
	if competitorID = strings.TrimSpace(competitorID); competitorID == "" {
		return CompetitorView{}, ErrEmptyCompetitorID
	}
	name = strings.TrimSpace(name)

	if c, ok := s.competitors[competitorID]; ok {
		c.Name = name
		return c.view(), nil
	}

	s.nextJoin++
	c := &Competitor{
		ID:        competitorID,
		Name:      name,
		joinOrder: s.nextJoin,
	}
	s.competitors[competitorID] = c
	return c.view(), nil
}

// ApplyPosition records a telemetry sample and runs the lap detector.
func (s *Session) ApplyPosition(competitorID string, position geo.Coordinate, speed float64) (PositionUpdate, error) {
	c, ok := s.competitors[competitorID]
	if !ok {
		return PositionUpdate{}, ErrUnknownCompetitor
	}
	if err := position.Validate(); err != nil {
		return PositionUpdate{}, err
	}
	if math.IsNaN(speed) || math.IsInf(speed, 0) || speed < 0 {
		return PositionUpdate{}, ErrInvalidSpeed
	}

	now := s.now()
	c.Position = position
	c.HasPosition = true
	c.Speed = speed
	c.LastUpdate = now

	var out PositionUpdate
	if s.startLine != nil {
		next, fired := NextCrossing(c.Crossing, *s.startLine, position)
		c.Crossing = next
		if fired {
			out.Crossed = true
			if lap, recorded := c.recordCrossing(now); recorded {
				out.Lap = &LapEvent{
					RaceID:       s.RaceID,
					CompetitorID: c.ID,
					Name:         c.Name,
					Lap:          c.LapCount(),
					LapSeconds:   lap,
					At:           now,
				}
			}
		}
	}

	out.Competitor = c.view()
	return out, nil
}

// Leave removes a competitor and reports whether it was present.
func (s *Session) Leave(competitorID string) bool {
	if _, ok := s.competitors[competitorID]; !ok {
		return false
	}
	delete(s.competitors, competitorID)
	return true
}

// Competitor returns a copy of one competitor's state.
func (s *Session) Competitor(competitorID string) (CompetitorView, bool) {
	c, ok := s.competitors[competitorID]
	if !ok {
		return CompetitorView{}, false
	}
	return c.view(), true
}

// Len returns the number of competitors.
func (s *Session) Len() int { return len(s.competitors) }

// Snapshot copies every competitor in join order.
func (s *Session) Snapshot() []CompetitorView {
	out := make([]CompetitorView, 0, len(s.competitors))
	for _, c := range s.competitors {
		out = append(out, c.view())
	}
	sortByJoinOrder(out)
	return out
}

// Leaderboard ranks the current snapshot.
func (s *Session) Leaderboard() Leaderboard {
	return Rank(s.RaceID, s.Snapshot(), s.now())
}

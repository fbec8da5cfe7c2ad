package race

import (
	"time"

	"racegap/internal/domain/geo"
)

// Competitor is the live state of one participant inside a session.
type Competitor struct {
	ID          string
	Name        string
	Position    geo.Coordinate
	HasPosition bool // false until the first accepted fix
	Speed       float64
	LastUpdate  time.Time

	Crossing     CrossingState
	LapStartTime time.Time // zero until the first line crossing
	LapTimes     []float64 // completed lap durations in seconds, append-only

	joinOrder uint64
}

// LapEvent is emitted when a crossing completes a lap.
type LapEvent struct {
	RaceID       string
	CompetitorID string
	Name         string
	Lap          int
	LapSeconds   float64
	At           time.Time
}

// LapCount is derived from the recorded lap times.
func (c *Competitor) LapCount() int { return len(c.LapTimes) }

// recordCrossing handles a lap-crossing event at now. The first crossing only
// starts the clock; every later one closes the running lap.
func (c *Competitor) recordCrossing(now time.Time) (float64, bool) {
	if c.LapStartTime.IsZero() {
		c.LapStartTime = now
		return 0, false
	}
	lap := now.Sub(c.LapStartTime).Seconds()
	c.LapTimes = append(c.LapTimes, lap)
	c.LapStartTime = now
	return lap, true
}

// CompetitorView is an immutable copy of a competitor taken under the session lock.
type CompetitorView struct {
	ID           string
	Name         string
	Position     geo.Coordinate
	HasPosition  bool
	Speed        float64
	LastUpdate   time.Time
	Crossing     CrossingState
	LapStartTime time.Time
	LapTimes     []float64
	JoinOrder    uint64
}

// LapCount is derived from the recorded lap times.
func (v CompetitorView) LapCount() int { return len(v.LapTimes) }

func (c *Competitor) view() CompetitorView {
	laps := make([]float64, len(c.LapTimes))
	copy(laps, c.LapTimes)
	return CompetitorView{
		ID:           c.ID,
		Name:         c.Name,
		Position:     c.Position,
		HasPosition:  c.HasPosition,
		Speed:        c.Speed,
		LastUpdate:   c.LastUpdate,
		Crossing:     c.Crossing,
		LapStartTime: c.LapStartTime,
		LapTimes:     laps,
		JoinOrder:    c.joinOrder,
	}
}

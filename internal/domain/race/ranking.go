package race

import (
	"slices"
	"time"

	"racegap/internal/domain/geo"
)

// Row is one leaderboard line.
type Row struct {
	Rank             int
	CompetitorID     string
	Name             string
	Position         geo.Coordinate
	HasFix           bool
	Speed            float64
	DistanceToLeader float64 // meters
	GapSeconds       float64 // distance / own speed, 0 when speed is 0
	Laps             int
	LastLapSeconds   float64
	BestLapSeconds   float64
}

// Leaderboard is an ordered ranking of one session at a point in time.
type Leaderboard struct {
	RaceID      string
	GeneratedAt time.Time
	Rows        []Row
}

// Leader returns the first row, if any.
func (lb Leaderboard) Leader() (Row, bool) {
	if len(lb.Rows) == 0 {
		return Row{}, false
	}
	return lb.Rows[0], true
}

// Rank orders a snapshot and computes distance and gap to the leader.
//
// The reference competitor is the one with the most completed laps, then the
// one whose running lap started first, then the earliest to join. Positioned
// competitors are sorted by ascending distance to it (ties keep join order),
// so the reference always lands first with a zero distance. Competitors with
// no fix yet trail the board in join order.
func Rank(raceID string, snapshot []CompetitorView, at time.Time) Leaderboard {
	lb := Leaderboard{RaceID: raceID, GeneratedAt: at, Rows: make([]Row, 0, len(snapshot))}

	views := slices.Clone(snapshot)
	sortByJoinOrder(views)

	var positioned, pending []CompetitorView
	for _, v := range views {
		if v.HasPosition {
			positioned = append(positioned, v)
		} else {
			pending = append(pending, v)
		}
	}

	type ranked struct {
		view CompetitorView
		dist float64
	}
	ordered := make([]ranked, 0, len(positioned))
	if ref, ok := reference(positioned); ok {
		for _, v := range positioned {
			d := 0.0
			if v.ID != ref.ID {
				d = geo.DistanceMeters(ref.Position, v.Position)
			}
			ordered = append(ordered, ranked{view: v, dist: d})
		}
		slices.SortStableFunc(ordered, func(a, b ranked) int {
			switch {
			case a.view.ID == ref.ID:
				return -1
			case b.view.ID == ref.ID:
				return 1
			case a.dist < b.dist:
				return -1
			case a.dist > b.dist:
				return 1
			}
			return 0
		})
	}

	for i, r := range ordered {
		row := newRow(r.view)
		if i > 0 {
			row.DistanceToLeader = r.dist
			row.GapSeconds = gapSeconds(r.dist, r.view.Speed)
		}
		lb.Rows = append(lb.Rows, row)
	}
	for _, v := range pending {
		lb.Rows = append(lb.Rows, newRow(v))
	}
	for i := range lb.Rows {
		lb.Rows[i].Rank = i + 1
	}
	return lb
}

// gapSeconds is an instantaneous estimate, not a measured elapsed-time delta.
func gapSeconds(dist, speed float64) float64 {
	if speed <= 0 {
		return 0
	}
	return dist / speed
}

func reference(positioned []CompetitorView) (CompetitorView, bool) {
	if len(positioned) == 0 {
		return CompetitorView{}, false
	}
	best := positioned[0]
	for _, v := range positioned[1:] {
		if ahead(v, best) {
			best = v
		}
	}
	return best, true
}

// ahead reports whether a has made more progress than b.
func ahead(a, b CompetitorView) bool {
	if a.LapCount() != b.LapCount() {
		return a.LapCount() > b.LapCount()
	}
	switch {
	case a.LapStartTime.IsZero() && b.LapStartTime.IsZero():
	case a.LapStartTime.IsZero():
		return false
	case b.LapStartTime.IsZero():
		return true
	case !a.LapStartTime.Equal(b.LapStartTime):
		return a.LapStartTime.Before(b.LapStartTime)
	}
	return a.JoinOrder < b.JoinOrder
}

func newRow(v CompetitorView) Row {
	row := Row{
		CompetitorID: v.ID,
		Name:         v.Name,
		Position:     v.Position,
		HasFix:       v.HasPosition,
		Speed:        v.Speed,
		Laps:         v.LapCount(),
	}
	if n := len(v.LapTimes); n > 0 {
		row.LastLapSeconds = v.LapTimes[n-1]
		row.BestLapSeconds = slices.Min(v.LapTimes)
	}
	return row
}

func sortByJoinOrder(views []CompetitorView) {
	slices.SortFunc(views, func(a, b CompetitorView) int {
		switch {
		case a.JoinOrder < b.JoinOrder:
			return -1
		case a.JoinOrder > b.JoinOrder:
			return 1
		}
		return 0
	})
}

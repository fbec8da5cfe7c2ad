package race

import (
	"math"
	"reflect"
	"testing"
	"time"
)

func view(id string, order uint64, meters, speed float64) CompetitorView {
	return CompetitorView{
		ID:          id,
		Name:        "Car " + id,
		Position:    north(startLineCenter, meters),
		HasPosition: true,
		Speed:       speed,
		JoinOrder:   order,
	}
}

func TestRankLeaderHasZeroDistanceAndGap(t *testing.T) {
	snapshot := []CompetitorView{
		view("a", 1, 0, 10),
		view("b", 2, 100, 10),
	}

	lb := Rank("race123", snapshot, time.Time{})
	if len(lb.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(lb.Rows))
	}

	leader, _ := lb.Leader()
	if leader.CompetitorID != "a" || leader.DistanceToLeader != 0 || leader.GapSeconds != 0 || leader.Rank != 1 {
		t.Fatalf("unexpected leader row: %+v", leader)
	}

	follower := lb.Rows[1]
	if follower.CompetitorID != "b" || follower.Rank != 2 {
		t.Fatalf("unexpected follower row: %+v", follower)
	}
	if math.Abs(follower.DistanceToLeader-100) > 1e-6 {
		t.Fatalf("expected 100m, got %v", follower.DistanceToLeader)
	}
	if math.Abs(follower.GapSeconds-10) > 1e-6 {
		t.Fatalf("expected gap of 10s, got %v", follower.GapSeconds)
	}
}

func TestRankZeroSpeedCollapsesGap(t *testing.T) {
	lb := Rank("race123", []CompetitorView{
		view("a", 1, 0, 10),
		view("b", 2, 250, 0),
	}, time.Time{})

	gap := lb.Rows[1].GapSeconds
	if gap != 0 || math.IsNaN(gap) || math.IsInf(gap, 0) {
		t.Fatalf("expected gap 0 for a stopped follower, got %v", gap)
	}
}

func TestRankOrdersByDistanceToLeader(t *testing.T) {
	lb := Rank("race123", []CompetitorView{
		view("a", 1, 0, 10),
		view("far", 2, 300, 10),
		view("near", 3, 50, 10),
		view("mid", 4, 120, 10),
	}, time.Time{})

	var got []string
	for _, r := range lb.Rows {
		got = append(got, r.CompetitorID)
	}
	want := []string{"a", "near", "mid", "far"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected order %v, got %v", want, got)
	}
}

func TestRankIsStable(t *testing.T) {
	// b and c sit on the same spot; join order must decide between them
	snapshot := []CompetitorView{
		view("c", 3, 80, 5),
		view("a", 1, 0, 5),
		view("b", 2, 80, 5),
	}

	first := Rank("race123", snapshot, time.Time{})
	for i := 0; i < 10; i++ {
		again := Rank("race123", snapshot, time.Time{})
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("expected identical ranking on rerun")
		}
	}
	if first.Rows[1].CompetitorID != "b" || first.Rows[2].CompetitorID != "c" {
		t.Fatalf("expected ties broken by join order, got %s then %s", first.Rows[1].CompetitorID, first.Rows[2].CompetitorID)
	}
}

func TestRankReferenceIsMostLaps(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	a := view("a", 1, 0, 10)
	a.LapStartTime = t0
	b := view("b", 2, 200, 10)
	b.LapTimes = []float64{70, 65}
	b.LapStartTime = t0.Add(time.Minute)

	lb := Rank("race123", []CompetitorView{a, b}, t0)
	leader, _ := lb.Leader()
	if leader.CompetitorID != "b" {
		t.Fatalf("expected the competitor with more laps to lead, got %s", leader.CompetitorID)
	}
	if leader.Laps != 2 || leader.LastLapSeconds != 65 || leader.BestLapSeconds != 65 {
		t.Fatalf("unexpected lap columns: %+v", leader)
	}
	if math.Abs(lb.Rows[1].DistanceToLeader-200) > 1e-6 {
		t.Fatalf("expected 200m behind, got %v", lb.Rows[1].DistanceToLeader)
	}
}

func TestRankEqualLapsEarlierLineCrossingLeads(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	a := view("a", 1, 0, 10)
	a.LapStartTime = t0.Add(5 * time.Second)
	b := view("b", 2, 30, 10)
	b.LapStartTime = t0

	lb := Rank("race123", []CompetitorView{a, b}, t0)
	if leader, _ := lb.Leader(); leader.CompetitorID != "b" {
		t.Fatalf("expected b to lead after crossing the line first, got %s", leader.CompetitorID)
	}
}

func TestRankCompetitorsWithoutFixTrail(t *testing.T) {
	pending := CompetitorView{ID: "p", Name: "Pending", JoinOrder: 1}
	lb := Rank("race123", []CompetitorView{
		pending,
		view("a", 2, 0, 10),
		view("b", 3, 40, 8),
	}, time.Time{})

	if len(lb.Rows) != 3 {
		t.Fatalf("expected one row per competitor, got %d", len(lb.Rows))
	}
	last := lb.Rows[2]
	if last.CompetitorID != "p" || last.HasFix || last.Rank != 3 {
		t.Fatalf("expected pending competitor last without a fix, got %+v", last)
	}
	if last.DistanceToLeader != 0 || last.GapSeconds != 0 {
		t.Fatalf("expected zero distance and gap without a fix, got %+v", last)
	}
	if lb.Rows[0].CompetitorID != "a" {
		t.Fatalf("expected a to lead, got %s", lb.Rows[0].CompetitorID)
	}
}

func TestRankEmptySnapshot(t *testing.T) {
	lb := Rank("race123", nil, time.Time{})
	if len(lb.Rows) != 0 {
		t.Fatalf("expected no rows, got %d", len(lb.Rows))
	}
	if _, ok := lb.Leader(); ok {
		t.Fatalf("expected no leader")
	}
}

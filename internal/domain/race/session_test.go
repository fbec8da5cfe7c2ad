package race

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"racegap/internal/domain/geo"
)

func newTestSession(t *testing.T, clock *fakeClock) *Session {
	t.Helper()
	s, err := NewSession("race123", clock.Now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return s
}

func TestSessionSetStartLine(t *testing.T) {
	s := newTestSession(t, newFakeClock())

	if err := s.SetStartLine(startLineCenter, 0); !errors.Is(err, ErrInvalidRadius) {
		t.Fatalf("expected ErrInvalidRadius, got %v", err)
	}
	if !errors.Is(ErrInvalidRadius, ErrConfiguration) {
		t.Fatalf("expected ErrInvalidRadius to be a configuration error")
	}
	if _, ok := s.StartLine(); ok {
		t.Fatalf("rejected radius must not configure the line")
	}
	if err := s.SetStartLine(geo.Coordinate{Latitude: 100}, 10); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected configuration error for a bad center, got %v", err)
	}

	if err := s.SetStartLine(startLineCenter, 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.SetStartLine(north(startLineCenter, 100), 20); !errors.Is(err, ErrStartLineAlreadySet) {
		t.Fatalf("expected ErrStartLineAlreadySet, got %v", err)
	}

	line, ok := s.StartLine()
	if !ok || line.Center != startLineCenter || line.RadiusMeters != 10 {
		t.Fatalf("expected original start line to be kept, got %+v", line)
	}
}

func TestSessionJoinIsIdempotent(t *testing.T) {
	s := newTestSession(t, newFakeClock())

	if _, err := s.Join("a", "Car A"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.Join("a", "Car A2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 competitor, got %d", s.Len())
	}
	c, _ := s.Competitor("a")
	if c.Name != "Car A2" {
		t.Fatalf("expected name to be updated, got %q", c.Name)
	}
	if c.HasPosition || c.Speed != 0 {
		t.Fatalf("expected unset position and zero speed, got %+v", c)
	}
	if _, err := s.Join("  ", "nobody"); !errors.Is(err, ErrEmptyCompetitorID) {
		t.Fatalf("expected ErrEmptyCompetitorID, got %v", err)
	}
}

func TestSessionApplyPositionUnknownCompetitor(t *testing.T) {
	s := newTestSession(t, newFakeClock())
	if _, err := s.Join("a", "Car A"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	before := s.Snapshot()

	_, err := s.ApplyPosition("ghost", startLineCenter, 10)
	if !errors.Is(err, ErrUnknownCompetitor) {
		t.Fatalf("expected ErrUnknownCompetitor, got %v", err)
	}

	after := s.Snapshot()
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("expected competitors to be unchanged\nbefore: %+v\nafter:  %+v", before, after)
	}
}

func TestSessionApplyPositionRejectsBadSamples(t *testing.T) {
	s := newTestSession(t, newFakeClock())
	if _, err := s.Join("a", "Car A"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := s.ApplyPosition("a", startLineCenter, -1); !errors.Is(err, ErrInvalidSpeed) {
		t.Fatalf("expected ErrInvalidSpeed, got %v", err)
	}
	if _, err := s.ApplyPosition("a", geo.Coordinate{Latitude: 0, Longitude: 200}, 1); !errors.Is(err, geo.ErrInvalidLongitude) {
		t.Fatalf("expected ErrInvalidLongitude, got %v", err)
	}
	c, _ := s.Competitor("a")
	if c.HasPosition {
		t.Fatalf("rejected samples must not be applied")
	}
}

func TestSessionLapScenario(t *testing.T) {
	clock := newFakeClock()
	s := newTestSession(t, clock)
	if err := s.SetStartLine(startLineCenter, 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.Join("a", "Car A"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	steps := []struct {
		meters      float64
		wantCrossed bool
		wantLap     bool
		wantLaps    int
	}{
		{50, false, false, 0}, // approach
		{3, true, false, 0},   // entry #1 arms the clock
		{40, false, false, 0}, // exit
		{5, true, true, 1},    // entry #2 records a lap
	}

	crossings := 0
	for i, step := range steps {
		clock.Advance(30 * time.Second)
		res, err := s.ApplyPosition("a", north(startLineCenter, step.meters), 20)
		if err != nil {
			t.Fatalf("step %d: unexpected error: %v", i, err)
		}
		if res.Crossed {
			crossings++
		}
		if res.Crossed != step.wantCrossed {
			t.Fatalf("step %d: expected crossed=%v, got %v", i, step.wantCrossed, res.Crossed)
		}
		if (res.Lap != nil) != step.wantLap {
			t.Fatalf("step %d: expected lap=%v, got %+v", i, step.wantLap, res.Lap)
		}
		if res.Competitor.LapCount() != step.wantLaps {
			t.Fatalf("step %d: expected %d laps, got %d", i, step.wantLaps, res.Competitor.LapCount())
		}
	}

	if crossings != 2 {
		t.Fatalf("expected 2 crossing events, got %d", crossings)
	}

	c, _ := s.Competitor("a")
	if len(c.LapTimes) != 1 || c.LapTimes[0] != 60 {
		t.Fatalf("expected one 60s lap, got %v", c.LapTimes)
	}
}

func TestSessionDwellInsideRecordsAtMostOneCrossing(t *testing.T) {
	clock := newFakeClock()
	s := newTestSession(t, clock)
	if err := s.SetStartLine(startLineCenter, 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.Join("a", "Car A"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	crossings := 0
	for i := 0; i < 25; i++ {
		clock.Advance(time.Second)
		res, err := s.ApplyPosition("a", north(startLineCenter, float64(i%9)), 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Crossed {
			crossings++
		}
		if res.Competitor.LapCount() != len(res.Competitor.LapTimes) {
			t.Fatalf("lap count diverged from lap times")
		}
	}
	if crossings != 1 {
		t.Fatalf("expected at most one crossing, got %d", crossings)
	}
}

func TestSessionLapCountMatchesLapTimes(t *testing.T) {
	clock := newFakeClock()
	s := newTestSession(t, clock)
	if err := s.SetStartLine(startLineCenter, 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.Join("a", "Car A"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// alternate in/out with irregular spacing
	pattern := []float64{100, 2, 2, 60, 9, 9.9, 12, 1, 500, 0}
	for round := 0; round < 5; round++ {
		for i, m := range pattern {
			clock.Advance(time.Duration(i+1) * time.Second)
			res, err := s.ApplyPosition("a", north(startLineCenter, m), 15)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Competitor.LapCount() != len(res.Competitor.LapTimes) {
				t.Fatalf("lap count diverged from lap times")
			}
		}
	}

	// per pattern: entries at 2, 9, 1, 0 => 4 crossings per round, 20 total, first only arms
	c, _ := s.Competitor("a")
	if c.LapCount() != 19 {
		t.Fatalf("expected 19 laps, got %d", c.LapCount())
	}
}

func TestSessionWithoutStartLineSkipsDetection(t *testing.T) {
	s := newTestSession(t, newFakeClock())
	if _, err := s.Join("a", "Car A"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res, err := s.ApplyPosition("a", startLineCenter, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Crossed || res.Competitor.Crossing != Outside {
		t.Fatalf("expected no crossing without a start line, got %+v", res)
	}
}

func TestSessionLeave(t *testing.T) {
	s := newTestSession(t, newFakeClock())
	if _, err := s.Join("a", "Car A"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.Leave("a") {
		t.Fatalf("expected first leave to remove the competitor")
	}
	if s.Leave("a") {
		t.Fatalf("expected duplicate leave to be a no-op")
	}
	if _, err := s.ApplyPosition("a", startLineCenter, 1); !errors.Is(err, ErrUnknownCompetitor) {
		t.Fatalf("expected ErrUnknownCompetitor after leave, got %v", err)
	}
}

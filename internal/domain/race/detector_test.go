package race

import (
	"testing"

	"racegap/internal/domain/geo"
)

func TestNextCrossing(t *testing.T) {
	line := geo.Geofence{Center: startLineCenter, RadiusMeters: 10}

	tests := []struct {
		name      string
		prior     CrossingState
		meters    float64
		wantState CrossingState
		wantFired bool
	}{
		{"outside stays outside", Outside, 50, Outside, false},
		{"entry fires", Outside, 3, Inside, true},
		{"dwell does not refire", Inside, 5, Inside, false},
		{"exit re-arms", Inside, 25, Outside, false},
		{"exactly on the radius is outside", Inside, 10.001, Outside, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, fired := NextCrossing(tt.prior, line, north(startLineCenter, tt.meters))
			if state != tt.wantState {
				t.Fatalf("expected state %s, got %s", tt.wantState, state)
			}
			if fired != tt.wantFired {
				t.Fatalf("expected fired=%v, got %v", tt.wantFired, fired)
			}
		})
	}
}

func TestNextCrossingDwellFiresOnce(t *testing.T) {
	line := geo.Geofence{Center: startLineCenter, RadiusMeters: 10}

	state := Outside
	events := 0
	for i := 0; i < 20; i++ {
		var fired bool
		state, fired = NextCrossing(state, line, north(startLineCenter, float64(i%8)))
		if fired {
			events++
		}
	}
	if events != 1 {
		t.Fatalf("expected exactly one crossing while dwelling inside, got %d", events)
	}
}

package race

import "racegap/internal/domain/geo"

// CrossingState tells whether a competitor is currently inside the start/finish geofence.
type CrossingState int

const (
	Outside CrossingState = iota
	Inside
)

func (s CrossingState) String() string {
	if s == Inside {
		return "INSIDE"
	}
	return "OUTSIDE"
}

// NextCrossing is the lap detector transition function. It returns the next
// state and whether a lap-crossing event fired. Only OUTSIDE -> INSIDE fires;
// staying inside does not, and any sample on or beyond the radius re-arms.
func NextCrossing(prior CrossingState, line geo.Geofence, p geo.Coordinate) (CrossingState, bool) {
	if !line.Contains(p) {
		return Outside, false
	}
	if prior == Outside {
		return Inside, true
	}
	return Inside, false
}

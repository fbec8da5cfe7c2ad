package race

import (
	"fmt"
	"math"
	"strings"
)

// Validate checks a lap event before it is archived.
func (ev LapEvent) Validate() error {
	if strings.TrimSpace(ev.RaceID) == "" {
		return ErrEmptyRaceID
	}
	if strings.TrimSpace(ev.CompetitorID) == "" {
		return ErrEmptyCompetitorID
	}
	if ev.Lap < 1 {
		return fmt.Errorf("%w: lap number %d", ErrInvalidLap, ev.Lap)
	}
	if math.IsNaN(ev.LapSeconds) || math.IsInf(ev.LapSeconds, 0) || ev.LapSeconds < 0 {
		return fmt.Errorf("%w: lap time %v", ErrInvalidLap, ev.LapSeconds)
	}
	if ev.At.IsZero() {
		return fmt.Errorf("%w: missing completion time", ErrInvalidLap)
	}
	return nil
}

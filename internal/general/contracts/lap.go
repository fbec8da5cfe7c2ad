package contracts

import (
	"time"

	"racegap/internal/domain/race"
)

// LapMessage announces a completed lap.
// Routing key: "race.lap.{race_id}" on ExchangeRaceTopic.
type LapMessage struct {
	RaceID       string    `json:"race_id"`
	CompetitorID string    `json:"competitor_id"`
	Name         string    `json:"name"`
	Lap          int       `json:"lap"`
	LapSec       float64   `json:"lap_sec"`
	CompletedAt  time.Time `json:"completed_at"`
	Envelope
}

// NewLapMessage converts a lap event into its wire form.
func NewLapMessage(ev race.LapEvent) LapMessage {
	return LapMessage{
		RaceID:       ev.RaceID,
		CompetitorID: ev.CompetitorID,
		Name:         ev.Name,
		Lap:          ev.Lap,
		LapSec:       roundTo(ev.LapSeconds, 3),
		CompletedAt:  ev.At.UTC(),
	}
}

// LapHistory is the archived lap list of one race, newest first.
type LapHistory struct {
	RaceID string       `json:"race_id"`
	Laps   []LapMessage `json:"laps"`
}

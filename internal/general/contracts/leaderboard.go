package contracts

import (
	"math"
	"time"

	"racegap/internal/domain/race"
)

// LeaderboardRow is one competitor line as seen by clients.
type LeaderboardRow struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	Speed      float64 `json:"speed"`  // m/s
	Dist       int64   `json:"dist"`   // meters to the leader, rounded
	GapSec     float64 `json:"gapSec"` // one decimal
	Rank       int     `json:"rank"`
	Laps       int     `json:"laps"`
	LastLapSec float64 `json:"lastLapSec"` // meaningful only when Laps > 0
	BestLapSec float64 `json:"bestLapSec"`
	HasFix     bool    `json:"hasFix"`
}

// LeaderboardMessage is broadcast to race subscribers on every re-rank.
// Routing key: "race.leaderboard.{race_id}" on ExchangeRaceTopic.
type LeaderboardMessage struct {
	RaceID      string           `json:"race_id"`
	Rows        []LeaderboardRow `json:"rows"`
	GeneratedAt time.Time        `json:"generated_at"`
	Envelope
}

// NewLeaderboardMessage converts a ranking into its wire form.
func NewLeaderboardMessage(lb race.Leaderboard) LeaderboardMessage {
	rows := make([]LeaderboardRow, 0, len(lb.Rows))
	for _, r := range lb.Rows {
		rows = append(rows, LeaderboardRow{
			ID:         r.CompetitorID,
			Name:       r.Name,
			Lat:        r.Position.Latitude,
			Lng:        r.Position.Longitude,
			Speed:      r.Speed,
			Dist:       int64(math.Round(r.DistanceToLeader)),
			GapSec:     roundTo(r.GapSeconds, 1),
			Rank:       r.Rank,
			Laps:       r.Laps,
			LastLapSec: roundTo(r.LastLapSeconds, 3),
			BestLapSec: roundTo(r.BestLapSeconds, 3),
			HasFix:     r.HasFix,
		})
	}
	return LeaderboardMessage{
		RaceID:      lb.RaceID,
		Rows:        rows,
		GeneratedAt: lb.GeneratedAt.UTC(),
	}
}

func roundTo(v float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Round(v*p) / p
}

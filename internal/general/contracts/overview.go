package contracts

import "time"

// RaceSummary is one live race in the overview.
type RaceSummary struct {
	RaceID       string    `json:"race_id"`
	Competitors  int       `json:"competitors"`
	StartLineSet bool      `json:"start_line_set"`
	CreatedAt    time.Time `json:"created_at"`
}

// RaceOverview lists every race the process currently holds.
type RaceOverview struct {
	Races       []RaceSummary `json:"races"`
	GeneratedAt time.Time     `json:"generated_at"`
}

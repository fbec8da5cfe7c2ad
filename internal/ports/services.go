package ports

import (
	"context"

	"racegap/internal/domain/geo"
	"racegap/internal/domain/race"
	"racegap/internal/domain/track"
	"racegap/internal/general/contracts"
)

// Broadcaster delivers a message to every subscriber of a race. It must not block.
type Broadcaster interface {
	Broadcast(raceID string, msg any)
}

// EventPublisher fans race events out to downstream consumers. It must not block.
type EventPublisher interface {
	PublishLeaderboard(ctx context.Context, msg contracts.LeaderboardMessage)
	PublishLap(ctx context.Context, msg contracts.LapMessage)
}

// ----- Race Service Interface -----

// RaceService is the application boundary used by the gateways and HTTP handlers.
type RaceService interface {
	NewCompetitorID() string
	Join(ctx context.Context, competitorID, raceID, name string) (race.CompetitorView, error)
	UpdatePosition(ctx context.Context, competitorID string, position geo.Coordinate, speed float64) error
	Leave(ctx context.Context, competitorID, raceID string) error
	Disconnect(ctx context.Context, competitorID string)
	Watch(ctx context.Context, raceID string) (contracts.LeaderboardMessage, error)

	SetStartLine(ctx context.Context, raceID string, center geo.Coordinate, radiusMeters float64) (contracts.StartLineSet, error)
	SetStartLineFromTrack(ctx context.Context, raceID, trackName string) (contracts.StartLineSet, error)
	Leaderboard(ctx context.Context, raceID string) (contracts.LeaderboardMessage, error)
	Overview(ctx context.Context) contracts.RaceOverview
	LapHistory(ctx context.Context, raceID string, limit int) (contracts.LapHistory, error)

	RegisterTrack(ctx context.Context, name string, center geo.Coordinate, radiusMeters float64) (*track.Track, error)
	ListTracks(ctx context.Context) ([]*track.Track, error)

	HandleDeviceTelemetry(ctx context.Context, msg contracts.TelemetryMessage) error
}

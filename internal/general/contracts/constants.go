package contracts

// Exchanges
const (
	ExchangeRaceTopic      = "race_topic"
	ExchangeTelemetryTopic = "telemetry_topic"
)

// Queues
const (
	QueueRaceEvents    = "race_events"
	QueueRaceTelemetry = "race_telemetry"
)

// Routing patterns
const (
	RouteLeaderboardPrefix = "race.leaderboard." // {race_id}
	RouteLapPrefix         = "race.lap."         // {race_id}
	RouteTelemetryPrefix   = "telemetry."        // {race_id}
)

// WebSocket message types
const (
	TypeJoinRace       = "join_race"
	TypeUpdatePosition = "update_position"
	TypeLeaveRace      = "leave_race"
	TypeWatchRace      = "watch_race"
	TypeSetStartLine   = "set_start_line"

	TypeJoined       = "joined"
	TypeLeft         = "left"
	TypeLeaderboard  = "leaderboard"
	TypeLapCompleted = "lap_completed"
	TypeStartLineSet = "start_line_set"
	TypeError        = "error"
)

// Device telemetry message types
const (
	TelemetryJoin   = "join"
	TelemetryUpdate = "update"
	TelemetryLeave  = "leave"
)

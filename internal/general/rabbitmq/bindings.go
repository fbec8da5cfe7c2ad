package rabbitmq

import (
	"fmt"

	"racegap/internal/general/contracts"

	amqp "github.com/rabbitmq/amqp091-go"
)

// raceEventsMaxLength caps the downstream queue; the broker drops the oldest events first.
const raceEventsMaxLength = 10000

func declareTopology(ch *amqp.Channel) error {
	// 1. Exchanges
	exchanges := []string{
		contracts.ExchangeRaceTopic,
		contracts.ExchangeTelemetryTopic,
	}
	for _, ex := range exchanges {
		if err := ch.ExchangeDeclare(ex, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex, err)
		}
	}

	// 2. Queues
	queues := []struct {
		name string
		args amqp.Table
	}{
		{contracts.QueueRaceEvents, amqp.Table{"x-max-length": int32(raceEventsMaxLength)}},
		{contracts.QueueRaceTelemetry, nil},
	}
	for _, q := range queues {
		if _, err := ch.QueueDeclare(q.name, true, false, false, false, q.args); err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
	}

	// 3. Bindings
	for _, b := range bindings() {
		if err := ch.QueueBind(b.queue, b.routingKey, b.exchange, false, nil); err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}

	return nil
}

type binding struct {
	queue      string
	exchange   string
	routingKey string
}

func bindings() []binding {
	return []binding{
		{contracts.QueueRaceEvents, contracts.ExchangeRaceTopic, "race.#"},
		{contracts.QueueRaceTelemetry, contracts.ExchangeTelemetryTopic, contracts.RouteTelemetryPrefix + "#"},
	}
}

// leaderboardKey is the routing key for a race's leaderboard snapshots.
func leaderboardKey(raceID string) string { return contracts.RouteLeaderboardPrefix + raceID }

// lapKey is the routing key for a race's lap events.
func lapKey(raceID string) string { return contracts.RouteLapPrefix + raceID }

package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"racegap/internal/general/contracts"
	"racegap/internal/general/logger"
	"racegap/internal/ports"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	publishTimeout = 5 * time.Second
	confirmGrace   = 2 * time.Second
)

type outbound struct {
	ctx        context.Context
	routingKey string
	body       []byte
}

// MQPublisher fans race events out to race_topic. Publishing is queued to a
// single worker so callers holding a session lock never wait on the broker.
type MQPublisher struct {
	publish func(exchange, routingKey string, body []byte) error
	logger  *logger.Logger
	queue   chan outbound
	dropped atomic.Uint64
}

var _ ports.EventPublisher = (*MQPublisher)(nil)

// NewMQPublisher constructs an MQPublisher using the provided RabbitMQ client.
func NewMQPublisher(client *Client, logger *logger.Logger, buffer int) *MQPublisher {
	return newPublisher(client.PublishMessage, logger, buffer)
}

func newPublisher(publish func(exchange, routingKey string, body []byte) error, logger *logger.Logger, buffer int) *MQPublisher {
	if buffer <= 0 {
		buffer = 1
	}
	return &MQPublisher{
		publish: publish,
		logger:  logger,
		queue:   make(chan outbound, buffer),
	}
}

// PublishLeaderboard queues a leaderboard snapshot.
func (publisher *MQPublisher) PublishLeaderboard(ctx context.Context, msg contracts.LeaderboardMessage) {
	publisher.enqueue(ctx, leaderboardKey(msg.RaceID), msg)
}

// PublishLap queues a lap event.
func (publisher *MQPublisher) PublishLap(ctx context.Context, msg contracts.LapMessage) {
	publisher.enqueue(ctx, lapKey(msg.RaceID), msg)
}

// Dropped returns how many events were discarded because the queue was full.
func (publisher *MQPublisher) Dropped() uint64 { return publisher.dropped.Load() }

func (publisher *MQPublisher) enqueue(ctx context.Context, routingKey string, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		publisher.logger.Error(ctx, "event_marshal_failed", "Failed to encode race event", err, map[string]any{
			"routing_key": routingKey,
		})
		return
	}

	select {
	case publisher.queue <- outbound{ctx: context.WithoutCancel(ctx), routingKey: routingKey, body: body}:
	default:
		publisher.dropped.Add(1)
		publisher.logger.Error(ctx, "event_publish_dropped", "Publish queue full, event dropped", errors.New("publish queue full"), map[string]any{
			"routing_key": routingKey,
		})
	}
}

// Run publishes queued events until ctx is cancelled, then drains what is left.
func (publisher *MQPublisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case ev := <-publisher.queue:
					publisher.send(ev)
				default:
					return nil
				}
			}
		case ev := <-publisher.queue:
			publisher.send(ev)
		}
	}
}

func (publisher *MQPublisher) send(ev outbound) {
	if err := publisher.publish(contracts.ExchangeRaceTopic, ev.routingKey, ev.body); err != nil {
		publisher.logger.Error(ev.ctx, "event_publish_failed", "Failed to publish race event", err, map[string]any{
			"exchange":    contracts.ExchangeRaceTopic,
			"routing_key": ev.routingKey,
		})
		return
	}
	publisher.logger.Debug(ev.ctx, "event_published", "Race event published", map[string]any{
		"routing_key": ev.routingKey,
		"size":        len(ev.body),
	})
}

// NoopPublisher is used when RabbitMQ is disabled.
type NoopPublisher struct{}

func (NoopPublisher) PublishLeaderboard(context.Context, contracts.LeaderboardMessage) {}
func (NoopPublisher) PublishLap(context.Context, contracts.LapMessage)                 {}

// PublishMessage publishes a persistent JSON message and waits for the broker
// confirm. Publishes are serialized so each confirm matches its message.
func (client *Client) PublishMessage(exchange, routingKey string, body []byte) error {
	client.mu.RLock()
	ch, conn := client.pubChan, client.conn
	client.mu.RUnlock()

	if conn == nil || conn.IsClosed() {
		return errors.New("rabbitmq: connection is not open")
	}
	if ch == nil || ch.IsClosed() {
		return errors.New("rabbitmq: publish channel is not open")
	}

	client.pubMu.Lock()
	defer client.pubMu.Unlock()
	confirms := client.pubConfirms

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	err := ch.PublishWithContext(ctx, exchange, routingKey, true /* mandatory */, false /* immediate */, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return err
	}

	select {
	case c, ok := <-confirms:
		return confirmErr(c, ok)
	case <-ctx.Done():
	}

	// drain the late confirm so the next publish does not read it
	select {
	case c, ok := <-confirms:
		if err := confirmErr(c, ok); err != nil {
			return err
		}
	case <-time.After(confirmGrace):
	}
	return ctx.Err()
}

func confirmErr(c amqp.Confirmation, ok bool) error {
	switch {
	case !ok:
		return errors.New("rabbitmq: publish channel closed before confirm")
	case !c.Ack:
		return fmt.Errorf("rabbitmq: publish %d not acknowledged", c.DeliveryTag)
	default:
		return nil
	}
}

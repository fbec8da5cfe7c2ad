package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const handlerTimeout = 30 * time.Second

// Outcome tells the consume loop how to settle a delivery.
type Outcome int

const (
	Ack     Outcome = iota // processed, or safe to forget
	Reject                 // poison: nack without requeue
	Requeue                // transient failure: nack with requeue, once
)

func (o Outcome) String() string {
	switch o {
	case Ack:
		return "ack"
	case Reject:
		return "reject"
	case Requeue:
		return "requeue"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Handler processes one delivery and decides its outcome.
type Handler func(context.Context, amqp.Delivery) Outcome

// settle acks or nacks d. A delivery that was already redelivered is never
// requeued a second time.
func settle(d amqp.Delivery, o Outcome) error {
	switch {
	case o == Ack:
		return d.Ack(false)
	case o == Requeue && !d.Redelivered:
		return d.Nack(false, true)
	default:
		return d.Nack(false, false)
	}
}

// openConsumerChannel opens a channel on the current connection with QoS applied.
func (client *Client) openConsumerChannel(prefetch int) (*amqp.Channel, error) {
	client.mu.RLock()
	conn := client.conn
	client.mu.RUnlock()

	if conn == nil || conn.IsClosed() {
		return nil, errors.New("rabbitmq: connection is not ready")
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: open channel: %w", err)
	}
	if err := ch.Qos(max(prefetch, 1), 0, false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("rabbitmq: set QoS (prefetch=%d): %w", prefetch, err)
	}
	return ch, nil
}

// Consume reads queue with manual acks until ctx ends or the channel fails.
// Each delivery is settled according to the handler's Outcome.
func (client *Client) Consume(ctx context.Context, queue, consumerTag string, prefetch int, handle Handler) error {
	ch, err := client.openConsumerChannel(prefetch)
	if err != nil {
		return err
	}
	defer ch.Close()

	deliveries, err := ch.Consume(queue, consumerTag, false /* autoAck */, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("rabbitmq: consume(%s): %w", queue, err)
	}
	closed := ch.NotifyClose(make(chan *amqp.Error, 1))

	for {
		select {
		case <-ctx.Done():
			_ = ch.Cancel(consumerTag, false)
			return nil

		case cerr := <-closed:
			if cerr != nil {
				return fmt.Errorf("rabbitmq: channel closed while consuming %s: %w", queue, cerr)
			}
			return nil

		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			hCtx, cancel := context.WithTimeout(ctx, handlerTimeout)
			outcome := handle(hCtx, d)
			cancel()

			if err := settle(d, outcome); err != nil {
				return fmt.Errorf("rabbitmq: settle delivery (%s) on %s: %w", outcome, queue, err)
			}
		}
	}
}

// ConsumeForever runs Consume and starts it again after channel failures,
// waiting with backoff while the client reconnects. It returns when ctx ends.
func (client *Client) ConsumeForever(ctx context.Context, queue, consumerTag string, prefetch int, handle Handler) error {
	backoff := initialBackoff
	for {
		err := client.Consume(ctx, queue, consumerTag, prefetch, handle)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			client.logger.Error(client.logCtx, "rabbitmq_consume_interrupted", "Consumer stopped, retrying", err, map[string]any{
				"queue":      queue,
				"backoff_ms": backoff.Milliseconds(),
			})
		} else {
			backoff = initialBackoff
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff = nextBackoff(backoff)
	}
}

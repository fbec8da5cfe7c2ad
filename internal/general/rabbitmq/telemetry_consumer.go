package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"racegap/internal/domain/race"
	"racegap/internal/general/contracts"
	"racegap/internal/general/logger"
	"racegap/internal/ports"

	amqp "github.com/rabbitmq/amqp091-go"
)

const telemetryConsumerTag = "race-service-telemetry"

// TelemetryConsumer feeds trackside device telemetry from race_telemetry into the race service.
type TelemetryConsumer struct {
	client   *Client
	svc      ports.RaceService
	logger   *logger.Logger
	prefetch int
}

func NewTelemetryConsumer(client *Client, svc ports.RaceService, logger *logger.Logger, prefetch int) *TelemetryConsumer {
	return &TelemetryConsumer{client: client, svc: svc, logger: logger, prefetch: prefetch}
}

// Run consumes until ctx is cancelled.
func (c *TelemetryConsumer) Run(ctx context.Context) error {
	c.logger.Info(ctx, "telemetry_consumer_started", "Consuming device telemetry", map[string]any{
		"queue":    contracts.QueueRaceTelemetry,
		"prefetch": c.prefetch,
	})
	return c.client.ConsumeForever(ctx, contracts.QueueRaceTelemetry, telemetryConsumerTag, c.prefetch, c.handle)
}

// handle maps the service result onto a delivery outcome: malformed or
// rejected telemetry is dropped, telemetry for a device outside any race is
// acked, and a handler that ran out of time gets one redelivery.
func (c *TelemetryConsumer) handle(ctx context.Context, d amqp.Delivery) Outcome {
	reqID := d.CorrelationId
	if reqID == "" {
		reqID = logger.NewRequestID()
	}
	ctx = c.logger.WithRequestID(ctx, reqID)

	var msg contracts.TelemetryMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		err = fmt.Errorf("%w: %v", contracts.ErrInvalidTelemetry, err)
		c.logger.Error(ctx, "telemetry_malformed", "Dropping malformed telemetry", err, map[string]any{
			"routing_key": d.RoutingKey,
			"size":        len(d.Body),
		})
		return Reject
	}
	if msg.CorrelationID != "" {
		ctx = c.logger.WithRequestID(ctx, msg.CorrelationID)
	}
	ctx = c.logger.WithRaceID(ctx, msg.RaceID)
	details := map[string]any{
		"device_id":   msg.DeviceID,
		"type":        msg.Type,
		"redelivered": d.Redelivered,
	}

	err := c.svc.HandleDeviceTelemetry(ctx, msg)
	switch {
	case err == nil:
		return Ack
	case errors.Is(err, race.ErrUnknownCompetitor):
		c.logger.Debug(ctx, "telemetry_unknown_device", "Telemetry for a device outside any race ignored", details)
		return Ack
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		c.logger.Error(ctx, "telemetry_timeout", "Telemetry handling timed out", err, details)
		return Requeue
	default:
		c.logger.Error(ctx, "telemetry_rejected", "Dropping rejected telemetry", err, details)
		return Reject
	}
}

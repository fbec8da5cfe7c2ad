package contracts

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"racegap/internal/domain/geo"
)

var ErrInvalidTelemetry = errors.New("invalid telemetry payload")

// PositionPayload is the body of an update_position message. Pointers let a
// missing field be told apart from a zero value.
type PositionPayload struct {
	Lat   *float64 `json:"lat"`
	Lng   *float64 `json:"lng"`
	Speed *float64 `json:"speed"` // m/s
}

// Parse validates the payload and returns the coordinate and speed.
func (p PositionPayload) Parse() (geo.Coordinate, float64, error) {
	if p.Lat == nil || p.Lng == nil || p.Speed == nil {
		return geo.Coordinate{}, 0, fmt.Errorf("%w: lat, lng and speed are required", ErrInvalidTelemetry)
	}
	c, err := geo.NewCoordinate(*p.Lat, *p.Lng)
	if err != nil {
		return geo.Coordinate{}, 0, fmt.Errorf("%w: %v", ErrInvalidTelemetry, err)
	}
	speed := *p.Speed
	if math.IsNaN(speed) || math.IsInf(speed, 0) || speed < 0 {
		return geo.Coordinate{}, 0, fmt.Errorf("%w: speed must be a finite value >= 0", ErrInvalidTelemetry)
	}
	return c, speed, nil
}

// TelemetryMessage is consumed from QueueRaceTelemetry.
// Routing key: "telemetry.{race_id}" on ExchangeTelemetryTopic.
type TelemetryMessage struct {
	Type     string `json:"type"` // join|update|leave
	RaceID   string `json:"race_id"`
	DeviceID string `json:"device_id"`
	Name     string `json:"name,omitempty"`
	PositionPayload
	Envelope
}

// Validate checks the fields required by the message type.
func (m TelemetryMessage) Validate() error {
	if strings.TrimSpace(m.DeviceID) == "" {
		return fmt.Errorf("%w: device_id is required", ErrInvalidTelemetry)
	}
	switch m.Type {
	case TelemetryJoin, TelemetryLeave:
		if strings.TrimSpace(m.RaceID) == "" {
			return fmt.Errorf("%w: race_id is required", ErrInvalidTelemetry)
		}
		return nil
	case TelemetryUpdate:
		_, _, err := m.Parse()
		return err
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidTelemetry, m.Type)
	}
}

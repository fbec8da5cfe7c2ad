package service

import (
	"context"

	"racegap/internal/domain/race"
	"racegap/internal/general/contracts"
)

// HandleDeviceTelemetry applies a message from a trackside device. Devices
// are keyed by their own id; each gets a generated competitor id on first join.
func (svc *raceService) HandleDeviceTelemetry(ctx context.Context, msg contracts.TelemetryMessage) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	switch msg.Type {
	case contracts.TelemetryJoin:
		competitorID := svc.deviceCompetitor(msg.DeviceID, true)
		name := msg.Name
		if name == "" {
			name = msg.DeviceID
		}
		_, err := svc.Join(ctx, competitorID, msg.RaceID, name)
		return err

	case contracts.TelemetryUpdate:
		competitorID := svc.deviceCompetitor(msg.DeviceID, false)
		if competitorID == "" {
			return race.ErrUnknownCompetitor
		}
		position, speed, err := msg.Parse()
		if err != nil {
			return err
		}
		return svc.UpdatePosition(ctx, competitorID, position, speed)

	default: // contracts.TelemetryLeave
		competitorID := svc.deviceCompetitor(msg.DeviceID, false)
		if competitorID == "" {
			return nil
		}
		if err := svc.Leave(ctx, competitorID, msg.RaceID); err != nil {
			return err
		}
		if len(svc.racesOf(competitorID)) == 0 {
			svc.mu.Lock()
			delete(svc.devices, msg.DeviceID)
			svc.mu.Unlock()
		}
		return nil
	}
}

// deviceCompetitor maps a device id to its competitor id, optionally allocating one.
func (svc *raceService) deviceCompetitor(deviceID string, create bool) string {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if id, ok := svc.devices[deviceID]; ok {
		return id
	}
	if !create {
		return ""
	}
	id := svc.newID()
	svc.devices[deviceID] = id
	return id
}

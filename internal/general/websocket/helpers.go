package websocket

import (
	"context"
	"encoding/json"
	"errors"

	"racegap/internal/domain/geo"
	"racegap/internal/domain/race"
	"racegap/internal/domain/track"
	"racegap/internal/general/contracts"
)

// reply queues a typed frame for this connection only.
func (ws *WebSocket) reply(ctx context.Context, cs *clientSession, typ string, data any) {
	payload, err := json.Marshal(contracts.WSOutbound{Type: typ, Data: data})
	if err != nil {
		ws.logger.Error(ctx, "ws_reply_marshal_failed", "Failed to encode reply", err, map[string]any{"type": typ})
		return
	}
	if !cs.enqueue(payload) {
		ws.logger.Debug(ctx, "ws_frame_dropped", "Reply dropped, send buffer full", map[string]any{
			"competitor_id": cs.CompetitorID,
			"type":          typ,
		})
	}
}

// replyError sends {"type":"error","data":{"error":msg}}; the connection stays open.
func (ws *WebSocket) replyError(ctx context.Context, cs *clientSession, msg string) {
	ws.reply(ctx, cs, contracts.TypeError, contracts.ErrorPayload{Error: msg})
}

// decode unmarshals a frame body, treating a missing body as an error.
func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return errors.New("missing data")
	}
	return json.Unmarshal(raw, v)
}

// clientError turns a service error into the text sent to the client.
func clientError(err error) string {
	switch {
	case errors.Is(err, race.ErrUnknownCompetitor):
		return "join a race first"
	case errors.Is(err, race.ErrStartLineAlreadySet):
		return "start line already set"
	case errors.Is(err, race.ErrInvalidRadius):
		return "radius_meters must be greater than 0"
	case errors.Is(err, track.ErrTrackNotFound):
		return "track not found"
	case errors.Is(err, race.ErrEmptyRaceID):
		return "race_id is required"
	case errors.Is(err, geo.ErrInvalidLatitude), errors.Is(err, geo.ErrInvalidLongitude):
		return "invalid coordinate"
	case errors.Is(err, contracts.ErrInvalidTelemetry):
		return err.Error()
	default:
		return "internal error"
	}
}

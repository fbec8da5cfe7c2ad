package websocket

import (
	"context"
	"encoding/json"
	"strings"

	"racegap/internal/domain/geo"
	"racegap/internal/general/contracts"
)

// handleJoinRace subscribes the connection to the race and adds its competitor.
func (ws *WebSocket) handleJoinRace(ctx context.Context, cs *clientSession, raw json.RawMessage) {
	var in contracts.JoinRaceRequest
	if err := decode(raw, &in); err != nil {
		ws.replyError(ctx, cs, "invalid join_race payload")
		return
	}
	raceID := strings.TrimSpace(in.RaceID)
	if raceID == "" {
		ws.replyError(ctx, cs, "race_id is required")
		return
	}

	// subscribe first so the joiner receives the leaderboard its own join produces
	added := ws.hub.Subscribe(raceID, cs)
	joined, err := ws.svc.Join(ctx, cs.CompetitorID, raceID, in.Name)
	if err != nil {
		if added {
			ws.hub.Unsubscribe(raceID, cs)
		}
		ws.replyError(ctx, cs, clientError(err))
		return
	}

	ws.reply(ctx, cs, contracts.TypeJoined, contracts.JoinedResponse{
		CompetitorID: joined.ID,
		RaceID:       raceID,
		Name:         joined.Name,
	})
}

// handleUpdatePosition applies a fix to every race the connection has joined.
func (ws *WebSocket) handleUpdatePosition(ctx context.Context, cs *clientSession, raw json.RawMessage) {
	var in contracts.PositionPayload
	if err := decode(raw, &in); err != nil {
		ws.replyError(ctx, cs, "invalid update_position payload")
		return
	}
	position, speed, err := in.Parse()
	if err != nil {
		ws.replyError(ctx, cs, clientError(err))
		return
	}
	if err := ws.svc.UpdatePosition(ctx, cs.CompetitorID, position, speed); err != nil {
		ws.replyError(ctx, cs, clientError(err))
	}
}

// handleLeaveRace removes the competitor from one race and stops its broadcasts.
func (ws *WebSocket) handleLeaveRace(ctx context.Context, cs *clientSession, raw json.RawMessage) {
	var in contracts.RaceRef
	if err := decode(raw, &in); err != nil {
		ws.replyError(ctx, cs, "invalid leave_race payload")
		return
	}
	raceID := strings.TrimSpace(in.RaceID)
	if err := ws.svc.Leave(ctx, cs.CompetitorID, raceID); err != nil {
		ws.replyError(ctx, cs, clientError(err))
		return
	}
	ws.hub.Unsubscribe(raceID, cs)
	ws.reply(ctx, cs, contracts.TypeLeft, contracts.RaceRef{RaceID: raceID})
}

// handleWatchRace subscribes a spectator and sends the current board.
func (ws *WebSocket) handleWatchRace(ctx context.Context, cs *clientSession, raw json.RawMessage) {
	var in contracts.RaceRef
	if err := decode(raw, &in); err != nil {
		ws.replyError(ctx, cs, "invalid watch_race payload")
		return
	}
	raceID := strings.TrimSpace(in.RaceID)
	if raceID == "" {
		ws.replyError(ctx, cs, "race_id is required")
		return
	}

	ws.hub.Subscribe(raceID, cs)
	board, err := ws.svc.Watch(ctx, raceID)
	if err != nil {
		ws.replyError(ctx, cs, clientError(err))
		return
	}
	ws.reply(ctx, cs, contracts.TypeLeaderboard, board)
}

// handleSetStartLine configures a race's start line by coordinates or track name.
func (ws *WebSocket) handleSetStartLine(ctx context.Context, cs *clientSession, raw json.RawMessage) {
	var in contracts.StartLineRequest
	if err := decode(raw, &in); err != nil {
		ws.replyError(ctx, cs, "invalid set_start_line payload")
		return
	}
	raceID := strings.TrimSpace(in.RaceID)

	var (
		set contracts.StartLineSet
		err error
	)
	if strings.TrimSpace(in.Track) != "" {
		set, err = ws.svc.SetStartLineFromTrack(ctx, raceID, in.Track)
	} else {
		if in.Lat == nil || in.Lng == nil {
			ws.replyError(ctx, cs, "lat and lng are required")
			return
		}
		center, cerr := geo.NewCoordinate(*in.Lat, *in.Lng)
		if cerr != nil {
			ws.replyError(ctx, cs, clientError(cerr))
			return
		}
		radius := ws.defaultRadius
		if in.RadiusMeters != nil {
			radius = *in.RadiusMeters
		}
		set, err = ws.svc.SetStartLine(ctx, raceID, center, radius)
	}
	if err != nil {
		ws.replyError(ctx, cs, clientError(err))
		return
	}

	// subscribers already got the broadcast
	if ws.hub.IsSubscribed(raceID, cs) {
		return
	}
	ws.reply(ctx, cs, contracts.TypeStartLineSet, set)
}

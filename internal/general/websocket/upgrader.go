package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"racegap/internal/general/contracts"
	"racegap/internal/general/logger"
	"racegap/internal/ports"

	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout   = 5 * time.Second
	wsCloseAckWindow = 2 * time.Second
	ctrlTimeout      = 5 * time.Second
	wsReadTimeout    = 60 * time.Second
	wsPingInterval   = 30 * time.Second
	wsReadLimit      = 1 << 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// WebSocket is the telemetry gateway: it turns socket frames into race
// service calls and delivers race broadcasts back to subscribed sockets.
type WebSocket struct {
	logger        *logger.Logger
	svc           ports.RaceService
	hub           *Hub
	defaultRadius float64
	sendBuffer    int
}

// NewWebSocket creates the gateway. defaultRadius applies to set_start_line
// requests that omit radius_meters.
func NewWebSocket(logger *logger.Logger, svc ports.RaceService, hub *Hub, defaultRadius float64, sendBuffer int) *WebSocket {
	return &WebSocket{
		logger:        logger,
		svc:           svc,
		hub:           hub,
		defaultRadius: defaultRadius,
		sendBuffer:    sendBuffer,
	}
}

// Connect handles GET /ws. Each connection gets one competitor id that it
// keeps for every race it joins.
func (ws *WebSocket) Connect(w http.ResponseWriter, r *http.Request) {
	// 1) Upgrade HTTP -> WS
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		ws.logger.Error(r.Context(), "websocket_upgrade_failed", "Failed to upgrade to WebSocket", err, nil)
		return
	}

	ctx := ws.logger.WithRequestID(context.WithoutCancel(r.Context()), logger.NewRequestID())
	cs := newClientSession(ws.svc.NewCompetitorID(), conn, ws.sendBuffer)
	ctx = ws.logger.WithCompetitorID(ctx, cs.CompetitorID)
	ws.hub.register(cs)

	// Teardown runs LIFO: drop subscriptions, leave every joined race, stop the writer, close the socket.
	defer conn.Close()
	defer cs.stop()
	defer ws.svc.Disconnect(ctx, cs.CompetitorID)
	defer ws.hub.Drop(cs)

	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(_ string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	go ws.writeLoop(ctx, cs)

	ws.logger.Info(ctx, "ws_connected", "Competitor WebSocket connected", map[string]any{
		"competitor_id": cs.CompetitorID,
	})

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				ws.logger.Error(ctx, "ws_unexpected_close", "Connection closed unexpectedly", err, map[string]any{
					"competitor_id": cs.CompetitorID,
				})
				cs.writeClose(websocket.CloseInternalServerErr, "internal error")
			} else {
				ws.logger.Info(ctx, "ws_connection_closed", "Connection closed", map[string]any{
					"competitor_id": cs.CompetitorID,
				})
				cs.writeClose(websocket.CloseNormalClosure, "bye")
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		var msg contracts.WSInbound
		if err := json.Unmarshal(payload, &msg); err != nil {
			ws.replyError(ctx, cs, "bad json")
			continue
		}
		ws.route(ctx, cs, msg)
	}
}

// writeLoop is the only goroutine writing data frames to the socket.
func (ws *WebSocket) writeLoop(ctx context.Context, cs *clientSession) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-cs.done:
			return

		case payload := <-cs.send:
			if err := cs.write(websocket.TextMessage, payload); err != nil {
				ws.logger.Error(ctx, "ws_write_failed", "Failed to write frame", err, map[string]any{
					"competitor_id": cs.CompetitorID,
				})
				// unblock the reader so the connection tears down
				_ = cs.Conn.Close()
				return
			}

		case <-ticker.C:
			if err := cs.ping(); err != nil {
				ws.logger.Error(ctx, "ws_ping_failed", "Failed to send ping", err, map[string]any{
					"competitor_id": cs.CompetitorID,
				})
				_ = cs.Conn.Close()
				return
			}
		}
	}
}

// route dispatches one inbound frame by type.
func (ws *WebSocket) route(ctx context.Context, cs *clientSession, msg contracts.WSInbound) {
	switch msg.Type {
	case contracts.TypeJoinRace:
		ws.handleJoinRace(ctx, cs, msg.Data)
	case contracts.TypeUpdatePosition:
		ws.handleUpdatePosition(ctx, cs, msg.Data)
	case contracts.TypeLeaveRace:
		ws.handleLeaveRace(ctx, cs, msg.Data)
	case contracts.TypeWatchRace:
		ws.handleWatchRace(ctx, cs, msg.Data)
	case contracts.TypeSetStartLine:
		ws.handleSetStartLine(ctx, cs, msg.Data)
	default:
		ws.replyError(ctx, cs, "unknown message type")
	}
}

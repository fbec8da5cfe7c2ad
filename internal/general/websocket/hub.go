package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"racegap/internal/general/logger"
	"racegap/internal/ports"

	"github.com/gorilla/websocket"
)

// Hub tracks which sessions subscribe to which race and fans broadcasts out to them.
type Hub struct {
	mu     sync.RWMutex
	races  map[string]map[*clientSession]struct{}
	conns  map[*clientSession]struct{}
	logger *logger.Logger
}

var _ ports.Broadcaster = (*Hub)(nil)

func NewHub(logger *logger.Logger) *Hub {
	return &Hub{
		races:  make(map[string]map[*clientSession]struct{}),
		conns:  make(map[*clientSession]struct{}),
		logger: logger,
	}
}

// register tracks a live connection until Drop.
func (h *Hub) register(cs *clientSession) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[cs] = struct{}{}
}

// CloseAll closes every live connection; their read loops then tear down.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for cs := range h.conns {
		cs.writeClose(websocket.CloseGoingAway, "server shutting down")
		_ = cs.Conn.Close()
	}
}

// Subscribe adds cs to the race and reports whether it was newly added.
func (h *Hub) Subscribe(raceID string, cs *clientSession) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.races[raceID]
	if !ok {
		subs = make(map[*clientSession]struct{})
		h.races[raceID] = subs
	}
	if _, ok := subs[cs]; ok {
		return false
	}
	subs[cs] = struct{}{}
	return true
}

// Unsubscribe removes cs from one race.
func (h *Hub) Unsubscribe(raceID string, cs *clientSession) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unsubscribeLocked(raceID, cs)
}

// Drop forgets cs and removes it from every race.
func (h *Hub) Drop(cs *clientSession) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, cs)
	for raceID := range h.races {
		h.unsubscribeLocked(raceID, cs)
	}
}

func (h *Hub) unsubscribeLocked(raceID string, cs *clientSession) {
	subs, ok := h.races[raceID]
	if !ok {
		return
	}
	delete(subs, cs)
	if len(subs) == 0 {
		delete(h.races, raceID)
	}
}

// IsSubscribed reports whether cs receives broadcasts for the race.
func (h *Hub) IsSubscribed(raceID string, cs *clientSession) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.races[raceID][cs]
	return ok
}

// Subscribers returns the number of sessions subscribed to the race.
func (h *Hub) Subscribers(raceID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.races[raceID])
}

// Broadcast encodes msg once and queues it for every subscriber of the race.
// Subscribers whose buffer is full miss this frame.
func (h *Hub) Broadcast(raceID string, msg any) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error(context.Background(), "ws_broadcast_marshal_failed", "Failed to encode broadcast", err, map[string]any{
			"race_id": raceID,
		})
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for cs := range h.races[raceID] {
		if !cs.enqueue(payload) {
			h.logger.Debug(context.Background(), "ws_frame_dropped", "Subscriber buffer full, frame dropped", map[string]any{
				"race_id":       raceID,
				"competitor_id": cs.CompetitorID,
			})
		}
	}
}

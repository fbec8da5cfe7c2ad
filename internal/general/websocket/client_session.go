package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// clientSession is one live WebSocket connection. Everything bound for the
// socket goes through send so broadcasts never block on a slow reader.
type clientSession struct {
	CompetitorID string
	Conn         *websocket.Conn

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	writeMu   sync.Mutex
}

func newClientSession(competitorID string, conn *websocket.Conn, buffer int) *clientSession {
	if buffer <= 0 {
		buffer = 1
	}
	return &clientSession{
		CompetitorID: competitorID,
		Conn:         conn,
		send:         make(chan []byte, buffer),
		done:         make(chan struct{}),
	}
}

// enqueue hands a frame to the writer. It reports false when the buffer is
// full or the session is already closed.
func (cs *clientSession) enqueue(payload []byte) bool {
	select {
	case <-cs.done:
		return false
	default:
	}
	select {
	case cs.send <- payload:
		return true
	default:
		return false
	}
}

// stop signals the writer goroutine to exit. Safe to call more than once.
func (cs *clientSession) stop() {
	cs.closeOnce.Do(func() { close(cs.done) })
}

// write sets a short write deadline and writes a message.
func (cs *clientSession) write(mt int, payload []byte) error {
	cs.writeMu.Lock()
	defer cs.writeMu.Unlock()
	_ = cs.Conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return cs.Conn.WriteMessage(mt, payload)
}

// ping sends a ping control frame.
func (cs *clientSession) ping() error {
	cs.writeMu.Lock()
	defer cs.writeMu.Unlock()
	return cs.Conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctrlTimeout))
}

// writeClose sends a close control frame with the given code and reason.
func (cs *clientSession) writeClose(code int, reason string) {
	cs.writeMu.Lock()
	defer cs.writeMu.Unlock()
	_ = cs.Conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(wsCloseAckWindow),
	)
}

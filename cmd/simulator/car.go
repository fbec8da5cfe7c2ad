package simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"racegap/internal/general/contracts"
	"racegap/internal/general/logger"

	"github.com/gorilla/websocket"
)

const (
	baseLat   = 37.7749
	baseLng   = -122.4194
	baseSpeed = 25.0    // m/s, about 90 km/h
	baseStep  = 0.00002 // degrees north per interval
)

// car is one simulated competitor. Only the driving goroutine writes data frames.
type car struct {
	name     string
	conn     *websocket.Conn
	lat, lng float64
	speed    float64
	step     float64
}

// newCar places car i slightly behind and beside the previous one, a little slower.
func newCar(i int, conn *websocket.Conn) *car {
	return &car{
		name:  carName(i),
		conn:  conn,
		lat:   baseLat + float64(i)*0.0001,
		lng:   baseLng + float64(i)*0.0001,
		speed: max(baseSpeed-0.5*float64(i), 1),
		step:  max(baseStep*(1-0.1*float64(i)), baseStep/10),
	}
}

// carName yields "Car A", "Car B", ... then "Car 27", "Car 28".
func carName(i int) string {
	if i < 26 {
		return "Car " + string(rune('A'+i))
	}
	return fmt.Sprintf("Car %d", i+1)
}

func (c *car) advance() { c.lat += c.step }

func (c *car) position() contracts.PositionPayload {
	lat, lng, speed := c.lat, c.lng, c.speed
	return contracts.PositionPayload{Lat: &lat, Lng: &lng, Speed: &speed}
}

func (c *car) send(typ string, data any) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := c.conn.WriteJSON(contracts.WSOutbound{Type: typ, Data: data}); err != nil {
		return fmt.Errorf("%s: send %s: %w", c.name, typ, err)
	}
	return nil
}

// close starts the closing handshake; the read loop ends when the server answers.
func (c *car) close() {
	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"),
		time.Now().Add(time.Second),
	)
}

// readLoop drains server frames. The rendering car prints every leaderboard.
func (c *car) readLoop(ctx context.Context, log *logger.Logger, out io.Writer, render bool, closing *atomic.Bool) error {
	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if closing.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("%s: read: %w", c.name, err)
		}

		var f struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(payload, &f); err != nil {
			continue
		}

		switch f.Type {
		case contracts.TypeLeaderboard:
			if !render {
				continue
			}
			var board contracts.LeaderboardMessage
			if err := json.Unmarshal(f.Data, &board); err != nil {
				continue
			}
			renderBoard(out, board)
		case contracts.TypeLapCompleted:
			var lap contracts.LapMessage
			if err := json.Unmarshal(f.Data, &lap); err == nil && lap.CompetitorID != "" {
				log.Info(ctx, "simulator_lap", "Lap completed", map[string]any{
					"name":    lap.Name,
					"lap":     lap.Lap,
					"lap_sec": lap.LapSec,
				})
			}
		case contracts.TypeError:
			var e contracts.ErrorPayload
			_ = json.Unmarshal(f.Data, &e)
			log.Error(ctx, "simulator_server_error", "Server rejected a message", fmt.Errorf("%s", e.Error), map[string]any{
				"car": c.name,
			})
		}
	}
}

package simulator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"racegap/internal/general/contracts"
	"racegap/internal/general/logger"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

const closeGrace = 2 * time.Second

// Options configures a simulation run.
type Options struct {
	URL          string
	RaceID       string
	Cars         int
	Interval     time.Duration
	Steps        int // 0 runs until ctx is cancelled
	SetStartLine bool
	Out          io.Writer
}

func DefaultOptions() Options {
	return Options{
		URL:      "ws://localhost:3000/ws",
		RaceID:   "race123",
		Cars:     2,
		Interval: time.Second,
		Out:      os.Stdout,
	}
}

// Run connects the simulated cars, drives them north every interval and
// prints each leaderboard the first car receives.
func Run(ctx context.Context, opts Options) error {
	log := logger.NewWithWriter("simulator", os.Stderr)
	ctx = log.WithRequestID(ctx, logger.NewRequestID())
	ctx = log.WithRaceID(ctx, opts.RaceID)
	if opts.Out == nil {
		opts.Out = io.Discard
	}

	cars := make([]*car, 0, opts.Cars)
	defer func() {
		for _, c := range cars {
			_ = c.conn.Close()
		}
	}()
	for i := 0; i < opts.Cars; i++ {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, opts.URL, nil)
		if err != nil {
			log.Error(ctx, "simulator_dial_failed", "Failed to connect car", err, map[string]any{"url": opts.URL})
			return fmt.Errorf("dial %s: %w", opts.URL, err)
		}
		cars = append(cars, newCar(i, conn))
	}

	var closing atomic.Bool
	g := new(errgroup.Group)
	for i, c := range cars {
		render := i == 0
		g.Go(func() error { return c.readLoop(ctx, log, opts.Out, render, &closing) })
	}

	for _, c := range cars {
		if err := c.send(contracts.TypeJoinRace, contracts.JoinRaceRequest{RaceID: opts.RaceID, Name: c.name}); err != nil {
			return err
		}
	}
	if opts.SetStartLine {
		lead := cars[0]
		lat, lng := lead.lat, lead.lng
		if err := lead.send(contracts.TypeSetStartLine, contracts.StartLineRequest{RaceID: opts.RaceID, Lat: &lat, Lng: &lng}); err != nil {
			return err
		}
	}

	log.Info(ctx, "simulator_started", "Simulated cars joined", map[string]any{
		"cars":     len(cars),
		"interval": opts.Interval.String(),
	})

	err := drive(ctx, cars, opts)

	closing.Store(true)
	for _, c := range cars {
		c.close()
	}
	done := make(chan error, 1)
	go func() { done <- g.Wait() }()
	select {
	case werr := <-done:
		err = errors.Join(err, werr)
	case <-time.After(closeGrace):
		for _, c := range cars {
			_ = c.conn.Close()
		}
		err = errors.Join(err, <-done)
	}

	log.Info(ctx, "simulator_stopped", "Simulation finished", nil)
	return err
}

// drive moves every car once per interval.
func drive(ctx context.Context, cars []*car, opts Options) error {
	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	for step := 0; opts.Steps == 0 || step < opts.Steps; step++ {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		for _, c := range cars {
			c.advance()
			if err := c.send(contracts.TypeUpdatePosition, c.position()); err != nil {
				return err
			}
		}
	}
	return nil
}

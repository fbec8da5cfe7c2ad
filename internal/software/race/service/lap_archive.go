package service

import (
	"context"
	"errors"
	"sync/atomic"

	"racegap/internal/domain/race"
	"racegap/internal/general/logger"
	"racegap/internal/ports"
)

type pendingLap struct {
	ctx context.Context
	ev  race.LapEvent
}

// LapArchive writes completed laps to a LapRepository from a single worker.
// Record never blocks, so it is safe to call while a session lock is held.
type LapArchive struct {
	logger  *logger.Logger
	uow     ports.UnitOfWork
	repo    ports.LapRepository
	queue   chan pendingLap
	dropped atomic.Uint64
}

// NewLapArchive constructs an archive with a queue of the given length.
func NewLapArchive(logger *logger.Logger, uow ports.UnitOfWork, repo ports.LapRepository, buffer int) *LapArchive {
	if buffer <= 0 {
		buffer = 1
	}
	return &LapArchive{
		logger: logger,
		uow:    uow,
		repo:   repo,
		queue:  make(chan pendingLap, buffer),
	}
}

// Record queues a lap for storage and drops it when the queue is full.
func (a *LapArchive) Record(ctx context.Context, ev race.LapEvent) {
	select {
	case a.queue <- pendingLap{ctx: context.WithoutCancel(ctx), ev: ev}:
	default:
		a.dropped.Add(1)
		a.logger.Error(ctx, "lap_archive_dropped", "Lap archive queue full, lap dropped", errors.New("lap archive queue full"), map[string]any{
			"competitor_id": ev.CompetitorID,
			"lap":           ev.Lap,
		})
	}
}

// Dropped returns how many laps were discarded because the queue was full.
func (a *LapArchive) Dropped() uint64 { return a.dropped.Load() }

// Run stores queued laps until ctx is cancelled, then drains what is left.
func (a *LapArchive) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case p := <-a.queue:
					a.store(p)
				default:
					return nil
				}
			}
		case p := <-a.queue:
			a.store(p)
		}
	}
}

func (a *LapArchive) store(p pendingLap) {
	err := a.uow.WithinTx(p.ctx, func(txCtx context.Context) error {
		return a.repo.Append(txCtx, p.ev)
	})
	if err != nil {
		a.logger.Error(p.ctx, "lap_archive_failed", "Failed to archive lap", err, map[string]any{
			"competitor_id": p.ev.CompetitorID,
			"lap":           p.ev.Lap,
		})
		return
	}
	a.logger.Debug(p.ctx, "lap_archived", "Lap archived", map[string]any{
		"competitor_id": p.ev.CompetitorID,
		"lap":           p.ev.Lap,
	})
}

func (a *LapArchive) history(ctx context.Context, raceID string, limit int) ([]race.LapEvent, error) {
	var laps []race.LapEvent
	err := a.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		laps, err = a.repo.ListByRace(txCtx, raceID, limit)
		return err
	})
	return laps, err
}

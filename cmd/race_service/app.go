package raceservice

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"racegap/internal/general/config"
	"racegap/internal/general/logger"
	"racegap/internal/general/memstore"
	"racegap/internal/general/postgres"
	"racegap/internal/general/rabbitmq"
	"racegap/internal/general/websocket"
	"racegap/internal/ports"
	"racegap/internal/software/race/handler"
	"racegap/internal/software/race/service"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

const serviceName = "race-service"

// Run wires the race service and blocks until ctx is cancelled.
func Run(ctx context.Context, dotenvPath string, maxConcurrent int) error {
	startupID := "startup-" + logger.NewRequestID()
	log := logger.New(serviceName)
	ctx = log.WithRequestID(ctx, startupID)

	// load the config file, .env and environment overrides
	cfg, err := config.Load(dotenvPath)
	if err != nil {
		log.Error(ctx, "config_load_failed", "Failed to load configuration", err, nil)
		return err
	}
	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	log.SetLevel(level)

	g, gctx := errgroup.WithContext(ctx)

	// track catalog and lap archive: Postgres when enabled, in memory otherwise
	var (
		uow    ports.UnitOfWork      = memstore.UnitOfWork{}
		tracks ports.TrackRepository = memstore.NewTrackRepo()
		laps   ports.LapRepository   = memstore.NewLapRepo()
		pool   *pgxpool.Pool
	)
	if cfg.Database.Enabled {
		pool, err = postgres.NewPool(ctx, cfg, log)
		if err != nil {
			log.Error(ctx, "db_connection_failed", "Failed to initialize Postgres pool", err, nil)
			return err
		}
		defer pool.Close()
		uow = postgres.NewUnitOfWork(pool)
		tracks = postgres.NewTrackRepo()
		laps = postgres.NewLapRepo()
	}

	archive := service.NewLapArchive(log, uow, laps, cfg.Race.BroadcastBuffer*16)
	g.Go(func() error { return archive.Run(gctx) })

	// race event fanout: RabbitMQ when enabled, dropped otherwise
	var (
		rmq       *rabbitmq.Client
		publisher ports.EventPublisher = rabbitmq.NoopPublisher{}
	)
	if cfg.RabbitMQ.Enabled {
		rmq, err = rabbitmq.ConnectRabbitMQ(ctx, cfg, serviceName, log)
		if err != nil {
			log.Error(ctx, "rabbitmq_connection_failed", "Failed to connect to RabbitMQ", err, nil)
			return err
		}
		defer rmq.Close()

		mqPub := rabbitmq.NewMQPublisher(rmq, log, cfg.Race.BroadcastBuffer*16)
		g.Go(func() error { return mqPub.Run(gctx) })
		publisher = mqPub
	}

	// core: registry, race service and the WebSocket gateway that broadcasts for it
	hub := websocket.NewHub(log)
	registry := service.NewRegistry(nil)
	svc := service.NewRaceService(log, registry, uow, tracks, hub, publisher, service.WithLapArchive(archive))
	ws := websocket.NewWebSocket(log, svc, hub, cfg.Race.DefaultRadiusMeters, cfg.Race.BroadcastBuffer)

	if rmq != nil {
		consumer := rabbitmq.NewTelemetryConsumer(rmq, svc, log, cfg.RabbitMQ.Prefetch)
		g.Go(func() error { return consumer.Run(gctx) })
	}

	raceHandler := handler.NewRaceHTTPHandler(svc, log, ws, cfg.Race.DefaultRadiusMeters)
	if pool != nil {
		raceHandler.AddProbe("postgres", pool.Ping)
	}
	if rmq != nil {
		raceHandler.AddProbe("rabbitmq", func(context.Context) error {
			if !rmq.Ready() {
				return errors.New("not connected")
			}
			return nil
		})
	}
	mux := http.NewServeMux()
	raceHandler.RegisterRoutes(mux)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           withConcurrencyLimit(maxConcurrent, mux),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return gctx },
	}
	// hijacked sockets are not tracked by Shutdown
	srv.RegisterOnShutdown(hub.CloseAll)

	g.Go(func() error {
		log.Info(ctx, "service_started", fmt.Sprintf("Race Service started on port %d", cfg.Server.Port), map[string]any{
			"port":           cfg.Server.Port,
			"max_concurrent": maxConcurrent,
			"database":       cfg.Database.Enabled,
			"rabbitmq":       cfg.RabbitMQ.Enabled,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "http_server_error", "HTTP server terminated with error", err, map[string]any{"port": cfg.Server.Port})
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		log.Info(ctx, "shutdown_started", "Starting graceful shutdown", map[string]any{
			"races": len(registry.RaceIDs()),
		})
		if err := srv.Shutdown(shCtx); err != nil {
			log.Error(ctx, "http_shutdown_failed", "Failed to gracefully shut down HTTP server", err, nil)
		}
		return nil
	})

	err = g.Wait()
	log.Info(ctx, "shutdown_complete", "Race Service stopped", nil)
	return err
}

// withConcurrencyLimit wraps an http.Handler with a semaphore-based limiter.
// WebSocket upgrades hold a slot for the lifetime of the connection.
func withConcurrencyLimit(n int, next http.Handler) http.Handler {
	if n <= 0 {
		return next
	}
	sem := make(chan struct{}, n)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case sem <- struct{}{}: // acquire
			defer func() { <-sem }() // release
			next.ServeHTTP(w, r)
		case <-r.Context().Done():
			// client canceled or server is shutting down
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		}
	})
}

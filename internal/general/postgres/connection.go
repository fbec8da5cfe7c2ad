package postgres

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"racegap/internal/general/config"
	"racegap/internal/general/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPool opens the pool backing the track catalog and lap archive, pings it
// and creates missing tables.
func NewPool(ctx context.Context, cfg *config.Config, logger *logger.Logger) (*pgxpool.Pool, error) {
	start := time.Now()

	// one-time sanity log (do not print the password)
	logger.Info(ctx, "db_config_check", "Effective DB connection parameters", map[string]any{
		"host":           cfg.Database.Host,
		"port":           cfg.Database.Port,
		"user":           cfg.Database.User,
		"database":       cfg.Database.Name,
		"password_empty": cfg.Database.Password == "",
	})

	pcfg, err := pgxpool.ParseConfig(buildDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("postgres parse dsn: %w", err)
	}

	tunePool(pcfg)

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.NewWithConfig: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	if err := EnsureSchema(pingCtx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info(ctx, "db_connected", "Connected to PostgreSQL", map[string]any{
		"duration_ms": time.Since(start).Milliseconds(),
		"max_conns":   pcfg.MaxConns,
	})

	return pool, nil
}

// tunePool sizes the pool for its two users: catalog lookups on start-line
// configuration and the single lap archive worker.
func tunePool(pcfg *pgxpool.Config) {
	params := pcfg.ConnConfig.RuntimeParams
	if params == nil {
		params = make(map[string]string, 2)
		pcfg.ConnConfig.RuntimeParams = params
	}
	params["timezone"] = "UTC"
	params["application_name"] = "racegap"

	pcfg.MaxConns = 4
	pcfg.MinConns = 1
	pcfg.HealthCheckPeriod = 30 * time.Second
	pcfg.MaxConnIdleTime = 5 * time.Minute
}

func buildDSN(cfg *config.Config) string {
	u := &url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(cfg.Database.Host, strconv.Itoa(cfg.Database.Port)),
		Path:   "/" + cfg.Database.Name,
		User:   url.UserPassword(cfg.Database.User, cfg.Database.Password),
	}
	q := url.Values{}
	q.Set("sslmode", "disable")
	u.RawQuery = q.Encode()
	return u.String()
}

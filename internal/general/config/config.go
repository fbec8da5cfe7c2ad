package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

type Config struct {
	Server struct {
		Port int
	}
	Log struct {
		Level string // debug | info | error
	}
	Race struct {
		DefaultRadiusMeters float64
		BroadcastBuffer     int // per-subscriber outbound queue length
	}
	Database struct {
		Enabled  bool
		Host     string
		Port     int
		User     string
		Password string
		Name     string // YAML key: "database"
	}
	RabbitMQ struct {
		Enabled  bool
		Host     string
		Port     int
		User     string
		Password string
		Prefetch int
	}
}

// LoadFromFile loads config from a YAML file to a Config struct, applies defaults, and validates required fields.
func LoadFromFile(path string) (*Config, error) {
	cfg, err := readFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// readFile parses path and applies defaults without validating, so that
// environment overrides can still fill required fields.
func readFile(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := parseYAML(file, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// Default returns a config with every default applied and both backends disabled.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

// applyDefaults sets safe defaults for some fields.
func applyDefaults(cfg *Config) {
	// Server
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3000
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	// Race
	if cfg.Race.DefaultRadiusMeters == 0 {
		cfg.Race.DefaultRadiusMeters = 10
	}
	if cfg.Race.BroadcastBuffer == 0 {
		cfg.Race.BroadcastBuffer = 64
	}

	// Database
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}

	// RabbitMQ
	if cfg.RabbitMQ.Host == "" {
		cfg.RabbitMQ.Host = "localhost"
	}
	if cfg.RabbitMQ.Port == 0 {
		cfg.RabbitMQ.Port = 5672
	}
	if cfg.RabbitMQ.Prefetch == 0 {
		cfg.RabbitMQ.Prefetch = 8
	}
}

// validate checks required fields and basic ranges.
func (c *Config) validate() error {
	var problems []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, "server.port must be in 1..65535")
	}

	switch c.Log.Level {
	case "debug", "info", "error":
	default:
		problems = append(problems, "log.level must be one of debug, info, error")
	}

	if !(c.Race.DefaultRadiusMeters > 0) {
		problems = append(problems, "race.default_radius_meters must be > 0")
	}
	if c.Race.BroadcastBuffer < 1 {
		problems = append(problems, "race.broadcast_buffer must be >= 1")
	}

	// DB (only when enabled)
	if c.Database.Enabled {
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			problems = append(problems, "database.port must be in 1..65535")
		}
		if c.Database.User == "" {
			problems = append(problems, "database.user is required")
		}
		if c.Database.Password == "" {
			problems = append(problems, "database.password is required")
		}
		if c.Database.Name == "" {
			problems = append(problems, "database.database is required")
		}
	}

	// RabbitMQ (only when enabled)
	if c.RabbitMQ.Enabled {
		if c.RabbitMQ.Port <= 0 || c.RabbitMQ.Port > 65535 {
			problems = append(problems, "rabbitmq.port must be in 1..65535")
		}
		if c.RabbitMQ.User == "" {
			problems = append(problems, "rabbitmq.user is required")
		}
		if c.RabbitMQ.Password == "" {
			problems = append(problems, "rabbitmq.password is required")
		}
		if c.RabbitMQ.Prefetch < 1 {
			problems = append(problems, "rabbitmq.prefetch must be >= 1")
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

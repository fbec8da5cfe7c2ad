package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Overrides are environment variables that win over the config file.
type Overrides struct {
	ConfigPath  string `env:"RACEGAP_CONFIG" envDefault:"./config/config.yaml"`
	ServerPort  *int   `env:"RACEGAP_SERVER_PORT"`
	LogLevel    string `env:"RACEGAP_LOG_LEVEL"`
	DBEnabled   *bool  `env:"RACEGAP_DB_ENABLED"`
	DBPassword  string `env:"RACEGAP_DB_PASSWORD"`
	RMQEnabled  *bool  `env:"RACEGAP_RMQ_ENABLED"`
	RMQPassword string `env:"RACEGAP_RMQ_PASSWORD"`
}

// LoadEnv reads an optional .env file and parses the overrides.
func LoadEnv(dotenvPath string) (Overrides, error) {
	if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Overrides{}, fmt.Errorf("load %s: %w", dotenvPath, err)
	}

	var o Overrides
	if err := env.Parse(&o); err != nil {
		return Overrides{}, fmt.Errorf("parse env: %w", err)
	}
	return o, nil
}

// Load resolves the config file named by the environment (falling back to
// defaults when the file does not exist) and applies the overrides.
func Load(dotenvPath string) (*Config, error) {
	o, err := LoadEnv(dotenvPath)
	if err != nil {
		return nil, err
	}

	cfg, err := readFile(o.ConfigPath)
	if errors.Is(err, os.ErrNotExist) {
		cfg, err = Default(), nil
	}
	if err != nil {
		return nil, err
	}

	o.apply(cfg)
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (o Overrides) apply(cfg *Config) {
	if o.ServerPort != nil {
		cfg.Server.Port = *o.ServerPort
	}
	if o.LogLevel != "" {
		cfg.Log.Level = strings.ToLower(o.LogLevel)
	}
	if o.DBEnabled != nil {
		cfg.Database.Enabled = *o.DBEnabled
	}
	if o.DBPassword != "" {
		cfg.Database.Password = o.DBPassword
	}
	if o.RMQEnabled != nil {
		cfg.RabbitMQ.Enabled = *o.RMQEnabled
	}
	if o.RMQPassword != "" {
		cfg.RabbitMQ.Password = o.RMQPassword
	}
}

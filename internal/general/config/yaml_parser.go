package config

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// setter assigns one "key: value" pair of a section.
type setter func(cfg *Config, lineNo int, key, val string) error

var sections = map[string]setter{
	"server":   setServer,
	"log":      setLog,
	"race":     setRace,
	"database": setDatabase,
	"rabbitmq": setRabbitMQ,
}

// parseYAML reads the two-level mapping used by config.yaml: unindented
// section names followed by indented scalar keys. Comments start with '#'.
func parseYAML(r io.Reader, cfg *Config) error {
	scanner := bufio.NewScanner(r)
	seen := make(map[string]bool, len(sections))
	var (
		cur    setter
		curSec string
	)

	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimRight(line, " \t\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		if line[0] != ' ' && line[0] != '\t' {
			name, isSection := strings.CutSuffix(line, ":")
			name = strings.TrimSpace(name)
			set, known := sections[name]
			if !isSection || !known {
				return fmt.Errorf("line %d: unknown top-level key %q", lineNo, name)
			}
			if seen[name] {
				return fmt.Errorf("line %d: duplicate '%s' section", lineNo, name)
			}
			seen[name] = true
			cur, curSec = set, name
			continue
		}

		if cur == nil {
			return fmt.Errorf("line %d: key without a section", lineNo)
		}
		key, val, ok := strings.Cut(strings.TrimSpace(line), ":")
		if !ok || strings.TrimSpace(key) == "" {
			return fmt.Errorf("line %d: expected 'key: value' in %s", lineNo, curSec)
		}
		if err := cur(cfg, lineNo, strings.TrimSpace(key), resolveScalar(val)); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func setServer(cfg *Config, lineNo int, key, val string) (err error) {
	switch key {
	case "port":
		cfg.Server.Port, err = parseInt(lineNo, "server.port", val)
	default:
		err = unknownKey(lineNo, "server", key)
	}
	return err
}

func setLog(cfg *Config, lineNo int, key, val string) (err error) {
	switch key {
	case "level":
		cfg.Log.Level = strings.ToLower(val)
	default:
		err = unknownKey(lineNo, "log", key)
	}
	return err
}

func setRace(cfg *Config, lineNo int, key, val string) (err error) {
	switch key {
	case "default_radius_meters":
		cfg.Race.DefaultRadiusMeters, err = parseFloat(lineNo, "race.default_radius_meters", val)
	case "broadcast_buffer":
		cfg.Race.BroadcastBuffer, err = parseInt(lineNo, "race.broadcast_buffer", val)
	default:
		err = unknownKey(lineNo, "race", key)
	}
	return err
}

func setDatabase(cfg *Config, lineNo int, key, val string) (err error) {
	switch key {
	case "enabled":
		cfg.Database.Enabled, err = parseBool(lineNo, "database.enabled", val)
	case "host":
		cfg.Database.Host = val
	case "port":
		cfg.Database.Port, err = parseInt(lineNo, "database.port", val)
	case "user":
		cfg.Database.User = val
	case "password":
		cfg.Database.Password = val
	case "database":
		cfg.Database.Name = val
	default:
		err = unknownKey(lineNo, "database", key)
	}
	return err
}

func setRabbitMQ(cfg *Config, lineNo int, key, val string) (err error) {
	switch key {
	case "enabled":
		cfg.RabbitMQ.Enabled, err = parseBool(lineNo, "rabbitmq.enabled", val)
	case "host":
		cfg.RabbitMQ.Host = val
	case "port":
		cfg.RabbitMQ.Port, err = parseInt(lineNo, "rabbitmq.port", val)
	case "user":
		cfg.RabbitMQ.User = val
	case "password":
		cfg.RabbitMQ.Password = val
	case "prefetch":
		cfg.RabbitMQ.Prefetch, err = parseInt(lineNo, "rabbitmq.prefetch", val)
	default:
		err = unknownKey(lineNo, "rabbitmq", key)
	}
	return err
}

func unknownKey(lineNo int, section, key string) error {
	return fmt.Errorf("line %d: unknown key in %s: %q", lineNo, section, key)
}

func parseInt(lineNo int, field, val string) (int, error) {
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("line %d: %s must be int: %v", lineNo, field, err)
	}
	return n, nil
}

func parseFloat(lineNo int, field, val string) (float64, error) {
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("line %d: %s must be a number: %v", lineNo, field, err)
	}
	return f, nil
}

func parseBool(lineNo int, field, val string) (bool, error) {
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("line %d: %s must be true or false: %v", lineNo, field, err)
	}
	return b, nil
}

// resolveScalar trims a scalar and strips one pair of matching quotes.
func resolveScalar(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return s
	}
	switch q := s[0]; {
	case q == '"' && s[len(s)-1] == '"':
		if unq, err := strconv.Unquote(s); err == nil {
			return unq
		}
		return s[1 : len(s)-1]
	case q == '\'' && s[len(s)-1] == '\'':
		return s[1 : len(s)-1]
	}
	return s
}

// Package config loads the simulator endpoint's runtime tunables from
// environment variables, applying defaults and aggregating every
// invalid override into a single descriptive error.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultAddr is the TCP address the protocol endpoint listens on.
	DefaultAddr = ":12345"
	// DefaultPingInterval controls the keepalive cadence for WebSocket sessions.
	DefaultPingInterval = 30 * time.Second
	// DefaultMaxPayloadBytes limits inbound WebSocket frame size.
	DefaultMaxPayloadBytes int64 = 1 << 20
	// DefaultAnnounceDelay is the pause before roster announcements start,
	// giving the client time to register its inbound listener.
	DefaultAnnounceDelay = 10 * time.Millisecond
	// DefaultSessionsPerMinute disables session admission throttling.
	DefaultSessionsPerMinute = 0

	// DefaultLogLevel controls verbosity for simulator logs.
	DefaultLogLevel = "info"
	// DefaultLogPath is where structured logs are written.
	DefaultLogPath = "simulator.log"
	// DefaultLogMaxSizeMB caps the size of a single log file before rotation.
	DefaultLogMaxSizeMB = 100
	// DefaultLogMaxBackups limits retained rotated log files.
	DefaultLogMaxBackups = 10
	// DefaultLogMaxAgeDays controls how long rotated log files are kept.
	DefaultLogMaxAgeDays = 7
	// DefaultLogCompress toggles gzip compression for rotated log files.
	DefaultLogCompress = true
)

// Config captures all runtime tunables for the simulator endpoint.
type Config struct {
	Address           string
	RosterPath        string
	JournalDir        string
	AnnounceDelay     time.Duration
	PingInterval      time.Duration
	MaxPayloadBytes   int64
	SessionsPerMinute int
	Logging           LoggingConfig
}

// LoggingConfig captures structured logging configuration options.
type LoggingConfig struct {
	Level      string
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Load reads the simulator configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Address:           getString("SIM_ADDR", DefaultAddr),
		RosterPath:        strings.TrimSpace(os.Getenv("SIM_ROSTER_PATH")),
		JournalDir:        strings.TrimSpace(os.Getenv("SIM_JOURNAL_DIR")),
		AnnounceDelay:     DefaultAnnounceDelay,
		PingInterval:      DefaultPingInterval,
		MaxPayloadBytes:   DefaultMaxPayloadBytes,
		SessionsPerMinute: DefaultSessionsPerMinute,
		Logging: LoggingConfig{
			Level:      strings.TrimSpace(getString("SIM_LOG_LEVEL", DefaultLogLevel)),
			Path:       strings.TrimSpace(getString("SIM_LOG_PATH", DefaultLogPath)),
			MaxSizeMB:  DefaultLogMaxSizeMB,
			MaxBackups: DefaultLogMaxBackups,
			MaxAgeDays: DefaultLogMaxAgeDays,
			Compress:   DefaultLogCompress,
		},
	}

	var problems []string

	if raw := strings.TrimSpace(os.Getenv("SIM_ANNOUNCE_DELAY")); raw != "" {
		duration, err := time.ParseDuration(raw)
		if err != nil || duration < 0 {
			problems = append(problems, fmt.Sprintf("SIM_ANNOUNCE_DELAY must be a non-negative duration, got %q", raw))
		} else {
			cfg.AnnounceDelay = duration
		}
	}

	if raw := strings.TrimSpace(os.Getenv("SIM_PING_INTERVAL")); raw != "" {
		duration, err := time.ParseDuration(raw)
		if err != nil || duration <= 0 {
			problems = append(problems, fmt.Sprintf("SIM_PING_INTERVAL must be a positive duration, got %q", raw))
		} else {
			cfg.PingInterval = duration
		}
	}

	if raw := strings.TrimSpace(os.Getenv("SIM_MAX_PAYLOAD_BYTES")); raw != "" {
		value, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || value <= 0 {
			problems = append(problems, fmt.Sprintf("SIM_MAX_PAYLOAD_BYTES must be a positive integer, got %q", raw))
		} else {
			cfg.MaxPayloadBytes = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("SIM_SESSIONS_PER_MINUTE")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			problems = append(problems, fmt.Sprintf("SIM_SESSIONS_PER_MINUTE must be a non-negative integer, got %q", raw))
		} else {
			cfg.SessionsPerMinute = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("SIM_LOG_MAX_SIZE_MB")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 {
			problems = append(problems, fmt.Sprintf("SIM_LOG_MAX_SIZE_MB must be a positive integer, got %q", raw))
		} else {
			cfg.Logging.MaxSizeMB = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("SIM_LOG_MAX_BACKUPS")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			problems = append(problems, fmt.Sprintf("SIM_LOG_MAX_BACKUPS must be a non-negative integer, got %q", raw))
		} else {
			cfg.Logging.MaxBackups = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("SIM_LOG_MAX_AGE_DAYS")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			problems = append(problems, fmt.Sprintf("SIM_LOG_MAX_AGE_DAYS must be a non-negative integer, got %q", raw))
		} else {
			cfg.Logging.MaxAgeDays = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("SIM_LOG_COMPRESS")); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			problems = append(problems, fmt.Sprintf("SIM_LOG_COMPRESS must be a boolean value, got %q", raw))
		} else {
			cfg.Logging.Compress = value
		}
	}

	if len(problems) > 0 {
		return nil, errors.New(strings.Join(problems, "; "))
	}

	return cfg, nil
}

func getString(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

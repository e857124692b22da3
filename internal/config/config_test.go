package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load with defaults failed: %v", err)
	}
	if cfg.Address != DefaultAddr {
		t.Fatalf("address %q, want %q", cfg.Address, DefaultAddr)
	}
	if cfg.AnnounceDelay != DefaultAnnounceDelay {
		t.Fatalf("announce delay %v, want %v", cfg.AnnounceDelay, DefaultAnnounceDelay)
	}
	if cfg.PingInterval != DefaultPingInterval {
		t.Fatalf("ping interval %v, want %v", cfg.PingInterval, DefaultPingInterval)
	}
	if cfg.MaxPayloadBytes != DefaultMaxPayloadBytes {
		t.Fatalf("max payload %d, want %d", cfg.MaxPayloadBytes, DefaultMaxPayloadBytes)
	}
	if cfg.Logging.Level != DefaultLogLevel || cfg.Logging.Path != DefaultLogPath {
		t.Fatalf("logging defaults mangled: %+v", cfg.Logging)
	}
}

func TestLoadHonoursOverrides(t *testing.T) {
	t.Setenv("SIM_ADDR", ":7777")
	t.Setenv("SIM_ANNOUNCE_DELAY", "50ms")
	t.Setenv("SIM_PING_INTERVAL", "5s")
	t.Setenv("SIM_MAX_PAYLOAD_BYTES", "2048")
	t.Setenv("SIM_ROSTER_PATH", "/tmp/roster.json")
	t.Setenv("SIM_JOURNAL_DIR", "/tmp/journal")
	t.Setenv("SIM_LOG_COMPRESS", "false")
	t.Setenv("SIM_SESSIONS_PER_MINUTE", "12")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Address != ":7777" || cfg.AnnounceDelay != 50*time.Millisecond || cfg.PingInterval != 5*time.Second {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.MaxPayloadBytes != 2048 || cfg.RosterPath != "/tmp/roster.json" || cfg.JournalDir != "/tmp/journal" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.SessionsPerMinute != 12 {
		t.Fatalf("session throttle override not applied: %d", cfg.SessionsPerMinute)
	}
	if cfg.Logging.Compress {
		t.Fatal("log compression override not applied")
	}
}

func TestLoadAggregatesProblems(t *testing.T) {
	t.Setenv("SIM_ANNOUNCE_DELAY", "never")
	t.Setenv("SIM_MAX_PAYLOAD_BYTES", "-5")
	t.Setenv("SIM_LOG_MAX_BACKUPS", "many")

	_, err := Load()
	if err == nil {
		t.Fatal("expected aggregated validation failure")
	}
	text := err.Error()
	for _, want := range []string{"SIM_ANNOUNCE_DELAY", "SIM_MAX_PAYLOAD_BYTES", "SIM_LOG_MAX_BACKUPS"} {
		if !strings.Contains(text, want) {
			t.Fatalf("error %q missing %s", text, want)
		}
	}
}

func TestZeroAnnounceDelayIsAllowed(t *testing.T) {
	//1.- Tests that drive the connector directly disable the delay.
	t.Setenv("SIM_ANNOUNCE_DELAY", "0s")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.AnnounceDelay != 0 {
		t.Fatalf("announce delay %v, want 0", cfg.AnnounceDelay)
	}
}

package main

import (
	"net/http"
	"os"

	"hapticrig/simulator/internal/config"
	"hapticrig/simulator/internal/device"
	"hapticrig/simulator/internal/logging"
	"hapticrig/simulator/internal/message"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("configuration error: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		os.Stderr.WriteString("logging setup error: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	roster, err := loadRoster(cfg)
	if err != nil {
		logger.Fatal("roster load failed", logging.Error(err))
	}

	endpoint := NewEndpoint(cfg, roster, logger)
	logger.Info("simulator listening",
		logging.String("addr", cfg.Address),
		logging.Int("devices", len(roster)),
	)
	if err := http.ListenAndServe(cfg.Address, endpoint.Handler()); err != nil {
		logger.Fatal("server stopped", logging.Error(err))
	}
}

// loadRoster reads the device roster from disk when configured and falls
// back to the built-in demo roster otherwise.
func loadRoster(cfg *config.Config) ([]message.Device, error) {
	if cfg.RosterPath == "" {
		return device.DemoRoster(), nil
	}
	return device.LoadRoster(cfg.RosterPath)
}

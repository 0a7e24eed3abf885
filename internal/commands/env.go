package commands

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/diogo/mira/internal/api"
	"github.com/diogo/mira/internal/config"
	"github.com/diogo/mira/internal/history"
	"github.com/diogo/mira/internal/logging"
)

// newClient creates the service client; replaced in tests
var newClient = api.NewClient

// loadConfig reads the config file and applies the global flag overrides
func loadConfig() (config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return cfg, err
	}

	if endpointFlag != "" {
		cfg.Endpoint = endpointFlag
	}
	if uploadURLFlag != "" {
		cfg.UploadURL = uploadURLFlag
	}
	if dataDirFlag != "" {
		cfg.DataDir = dataDirFlag
	}
	if logLevelFlag != "" {
		cfg.LogLevel = logLevelFlag
	}
	return cfg, nil
}

// setupLogger opens the log file in the data directory. Logging problems
// never stop a command: the logger falls back to Nop.
func setupLogger(cfg config.Config) (zerolog.Logger, func() error) {
	dir, err := cfg.ResolveDataDir()
	if err != nil {
		return zerolog.Nop(), func() error { return nil }
	}

	logger, closeLog, err := logging.Setup(dir, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: logging disabled: %v\n", err)
	}
	return logger.With().Str("version", Version).Logger(), closeLog
}

// openStore opens the conversation store on the configured backend
func openStore(cfg config.Config, logger zerolog.Logger) (*history.Store, error) {
	dir, err := cfg.ResolveDataDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	store, err := history.OpenDefault(cfg.StoreBackend, dir,
		history.WithLogger(logger.With().Str("component", "history").Logger()))
	if err != nil {
		return nil, fmt.Errorf("failed to open conversations: %w", err)
	}
	return store, nil
}

// withStore loads the configuration and runs fn against the opened store
func withStore(fn func(store *history.Store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, closeLog := setupLogger(cfg)
	defer closeLog()

	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	return fn(store)
}

// Package logging configures the zerolog logger used across mira.
//
// The chat TUI owns the terminal, so logs are written to a file in the data
// directory instead of stderr.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// FileName is the log file created inside the data directory
const FileName = "mira.log"

// ParseLevel converts a config level name to a zerolog level.
// Empty means info.
func ParseLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return zerolog.InfoLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	case "disabled", "off":
		return zerolog.Disabled, nil
	default:
		return zerolog.InfoLevel, fmt.Errorf("unknown log level: %s", level)
	}
}

// New builds a logger writing JSON lines to w
func New(w io.Writer, level string) zerolog.Logger {
	lvl, err := ParseLevel(level)
	logger := zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	if err != nil {
		logger.Warn().Err(err).Msg("falling back to info level")
	}
	return logger
}

// NewConsole builds a human-readable logger, used by the dev server
func NewConsole(w io.Writer, level string) zerolog.Logger {
	return New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}, level)
}

// Setup opens (or creates) the log file in dir and returns a logger writing to it
// along with a close function.
func Setup(dir, level string) (zerolog.Logger, func() error, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return zerolog.Nop(), noopClose, fmt.Errorf("failed to create log directory: %w", err)
	}

	path := filepath.Join(dir, FileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return zerolog.Nop(), noopClose, fmt.Errorf("failed to open log file: %w", err)
	}

	return New(f, level), f.Close, nil
}

func noopClose() error { return nil }

// Package logging builds the engine's slog logger from configuration.
package logging

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"solana-agent-engine/internal/config"
)

// New creates a logger for the named service per the log configuration.
func New(serviceName string, cfg config.LogConfig) (*slog.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	handlerOptions := &slog.HandlerOptions{Level: level}
	format := strings.ToLower(strings.TrimSpace(cfg.Format))
	if format == "" {
		format = "text"
	}

	var handler slog.Handler
	switch format {
	case "text":
		handler = slog.NewTextHandler(os.Stdout, handlerOptions)
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, handlerOptions)
	default:
		return nil, fmt.Errorf("invalid log format %q (expected text|json)", cfg.Format)
	}

	return slog.New(handler).With("service", serviceName), nil
}

func parseLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q (expected debug|info|warn|error)", raw)
	}
}

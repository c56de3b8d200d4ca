package app

import (
	"io"
	"log/slog"
	"os"

	"github.com/Shivanand-hulikatti/nsc-international/internal/config"
)

// SetupLogger builds the process logger for env.
func SetupLogger(env string) *slog.Logger {
	return newLogger(os.Stdout, env)
}

func newLogger(w io.Writer, env string) *slog.Logger {
	var logger *slog.Logger

	switch env {
	case config.EnvDevelopment:
		logger = slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case config.EnvProduction:
		logger = slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	return logger
}

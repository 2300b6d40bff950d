package main

import (
	"fmt"
	"log/slog"
	"os"

	"estate-api/internal/config"
	"estate-api/internal/database"
	"estate-api/internal/logger"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s up|down\n", os.Args[0])
		os.Exit(2)
	}
	direction := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logger.New(os.Stdout, cfg.LogLevel, cfg.LogFormat))

	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	if err := database.Migrate(cfg.DatabaseURL, direction); err != nil {
		slog.Error("migration failed", "direction", direction, "error", err)
		os.Exit(1)
	}

	slog.Info("migration complete", "direction", direction)
}

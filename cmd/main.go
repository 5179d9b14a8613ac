package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/verdano/trackly/internal/config"
	"github.com/verdano/trackly/internal/server"
)

func main() {
	// Missing .env is fine; real environments set variables directly.
	_ = godotenv.Load()

	env := config.LoadEnv()
	if err := env.Validate(); err != nil {
		slog.Error("Invalid environment", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load(env.ConfigPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	if err := server.Start(cfg, env); err != nil {
		os.Exit(1)
	}
}

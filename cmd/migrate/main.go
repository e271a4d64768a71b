package main

import (
	"context"
	"time"

	"admin-dashboard/internal/config"
	"admin-dashboard/pkg/database/postgres"
	"admin-dashboard/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to load config")
	}
	logger.Init(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := postgres.NewClient(ctx, cfg.PostgresURL)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	logger.Logger.Info().Msg("migration runner finished successfully")
}

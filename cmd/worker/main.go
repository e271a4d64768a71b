package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"admin-dashboard/internal/config"
	"admin-dashboard/internal/queue/rabbitmq"
	"admin-dashboard/internal/repository/uploads"
	minioclient "admin-dashboard/internal/storage/minio"
	"admin-dashboard/internal/worker"
	"admin-dashboard/pkg/database/postgres"
	redisclient "admin-dashboard/pkg/database/redis"
	"admin-dashboard/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to load config")
	}
	logger.Init(cfg.LogLevel)
	logger.Logger.Info().Msg("starting thumbnail worker")

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pgPool, err := postgres.NewClient(initCtx, cfg.PostgresURL)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pgPool.Close()

	minioClient, err := minioclient.NewClient(initCtx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to connect to minio")
	}

	rabbitClient, err := rabbitmq.NewClient(cfg.RabbitMQURL)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to connect to rabbitmq")
	}
	defer rabbitClient.Close()

	redisClient, err := redisclient.NewClient(cfg.RedisURL)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()

	processor := worker.NewProcessor(minioClient, uploads.NewRepository(pgPool), redisClient, cfg.ThumbnailSize)

	msgs, err := rabbitClient.Consume(cfg.WorkerPoolSize)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to start consuming")
	}

	logger.Logger.Info().Int("workers", cfg.WorkerPoolSize).Msg("thumbnail worker is running")
	worker.Run(ctx, msgs, processor, cfg.WorkerPoolSize)
	logger.Logger.Info().Msg("thumbnail worker stopped")
}

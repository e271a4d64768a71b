package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"admin-dashboard/internal/config"
	"admin-dashboard/internal/handler"
	"admin-dashboard/internal/queue/rabbitmq"
	"admin-dashboard/internal/repository/uploads"
	minioclient "admin-dashboard/internal/storage/minio"
	"admin-dashboard/pkg/database/postgres"
	redisclient "admin-dashboard/pkg/database/redis"
	"admin-dashboard/pkg/logger"
	"admin-dashboard/pkg/security"

	"github.com/gin-gonic/gin"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to load config")
	}
	logger.Init(cfg.LogLevel)
	logger.Logger.Info().Msg("starting dashboard API")

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pgPool, err := postgres.NewClient(initCtx, cfg.PostgresURL)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pgPool.Close()

	if err := postgres.RunMigrations(initCtx, pgPool); err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to run migrations")
	}

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

	var auth gin.HandlerFunc
	if cfg.AuthDisabled {
		logger.Logger.Warn().Msg("authentication disabled")
	} else {
		keyFunc, stopJWKS, err := security.NewJWKS(cfg.JWKSURL())
		if err != nil {
			logger.Logger.Fatal().Err(err).Msg("failed to load keycloak keys")
		}
		defer stopJWKS()
		auth = security.AuthMiddleware(keyFunc, cfg.KeycloakClientID, cfg.AdminRole)
	}

	h := handler.NewHandler(uploads.NewRepository(pgPool), minioClient, rabbitClient, redisClient, handler.Options{
		MaxUploadSize: cfg.MaxUploadSize,
		CacheTTL:      cfg.CacheTTL,
		LinkTTL:       cfg.LinkTTL,
	})
	router := handler.NewRouter(h, handler.RouterOptions{
		GinMode:     cfg.GinMode,
		CORSOrigins: cfg.CORSOrigins,
		Auth:        auth,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Logger.Fatal().Err(err).Msg("failed to run server")
		}
	}()
	logger.Logger.Info().Str("addr", cfg.HTTPAddr).Msg("dashboard API is running")

	<-ctx.Done()
	logger.Logger.Info().Msg("shutting down gracefully")

	shutdownCtx, shutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Logger.Error().Err(err).Msg("failed to shutdown server")
	}
}

package postgres

import (
	"context"
	"fmt"
	"time"

	"admin-dashboard/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

func NewClient(ctx context.Context, connectionString string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres config: %w", err)
	}

	// Connection pool settings
	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Ping to verify connection using a short timeout context
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return pool, nil
}

// RunMigrations creates the dashboard tables and indexes if they don't exist
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	for i, query := range migrations {
		if _, err := pool.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to run migration %d: %w", i+1, err)
		}
	}
	logger.Logger.Info().Int("count", len(migrations)).Msg("migrations executed successfully")
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS uploads (
		id UUID PRIMARY KEY,
		profile TEXT NOT NULL,
		filename TEXT NOT NULL,
		content_type TEXT NOT NULL,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		size_bytes BIGINT NOT NULL,
		status TEXT NOT NULL,
		bucket_name TEXT NOT NULL,
		object_name TEXT NOT NULL,
		thumbnail TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS uploads_profile_created_idx ON uploads (profile, created_at DESC)`,
}

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// PoolConfig holds connection pool settings.
type PoolConfig struct {
	DSN         string
	MaxConns    int32
	IdleTimeout time.Duration
	// Attempts is the number of connection attempts before giving up.
	Attempts   int
	RetryDelay time.Duration
}

// Connect creates a pool and pings the server, retrying while the database
// is starting up.
func Connect(ctx context.Context, cfg PoolConfig, logger *zap.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.IdleTimeout > 0 {
		poolCfg.MaxConnIdleTime = cfg.IdleTimeout
	}
	attempts := cfg.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	for i := 1; ; i++ {
		pool, err := tryConnect(ctx, poolCfg)
		if err == nil {
			logger.Info("Connected to PostgreSQL", zap.Int("attempt", i), zap.Int32("maxConns", poolCfg.MaxConns))
			return pool, nil
		}
		if i >= attempts {
			return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", i, err)
		}
		logger.Warn("Failed to connect to PostgreSQL",
			zap.Int("attempt", i),
			zap.Int("max_attempts", attempts),
			zap.Duration("retry_delay", cfg.RetryDelay),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(cfg.RetryDelay):
		}
	}
}

func tryConnect(ctx context.Context, cfg *pgxpool.Config) (*pgxpool.Pool, error) {
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(pingCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping failed: %w", err)
	}
	return pool, nil
}

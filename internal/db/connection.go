// Package db owns the postgres connection pool shared by the repositories.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/merchantkit/paysync/internal/config"

	// Register the postgres driver with database/sql.
	_ "github.com/lib/pq"
)

// DB is the connection pool plus the logger repositories report through.
type DB struct {
	*sql.DB
	logger *slog.Logger
}

// Connect opens the pool, applies the configured limits and verifies the
// database is reachable before handing the pool out.
func Connect(ctx context.Context, cfg *config.DatabaseConfig, logger *slog.Logger) (*DB, error) {
	logger.Info("opening postgres pool",
		"host", cfg.Host,
		"port", cfg.Port,
		"database", cfg.DBName,
		"sslmode", cfg.SSLMode,
	)

	pool, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}

	pool.SetMaxOpenConns(cfg.MaxOpenConns)
	pool.SetMaxIdleConns(cfg.MaxIdleConns)
	pool.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := pool.PingContext(ctx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	logger.Info("postgres pool ready",
		"max_open_conns", cfg.MaxOpenConns,
		"max_idle_conns", cfg.MaxIdleConns,
		"conn_max_lifetime", cfg.ConnMaxLifetime,
	)

	return &DB{
		DB:     pool,
		logger: logger,
	}, nil
}

// Close drains the pool.
func (db *DB) Close() error {
	db.logger.Info("closing postgres pool")
	return db.DB.Close()
}

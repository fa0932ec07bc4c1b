// internal/database/connection.go
package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"macscan/internal/config"
)

// DB wraps the sql.DB connection pool
type DB struct {
	*sql.DB
	logger *zap.Logger
}

// NewConnection opens a Postgres connection pool for the audit store.
func NewConnection(cfg *config.Config, logger *zap.Logger) (*DB, error) {
	db, err := sql.Open("postgres", cfg.GetStorageDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.Storage.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Storage.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Storage.MaxLifetime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Database connection established",
		zap.String("host", cfg.Storage.Host),
		zap.Int("port", cfg.Storage.Port),
		zap.String("dbname", cfg.Storage.DBName),
	)

	return &DB{DB: db, logger: logger}, nil
}

// HealthCheck verifies the database connection is alive
func (db *DB) HealthCheck() error {
	if err := db.Ping(); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// GetStats returns connection pool statistics
func (db *DB) GetStats() sql.DBStats {
	return db.Stats()
}

// WaitForConnection retries the initial ping, useful when the database
// starts alongside the service.
func (db *DB) WaitForConnection(maxAttempts int, delay time.Duration) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = db.Ping(); err == nil {
			return nil
		}
		db.logger.Warn("Database not ready, retrying",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		time.Sleep(delay)
	}
	return fmt.Errorf("database unreachable after %d attempts: %w", maxAttempts, err)
}

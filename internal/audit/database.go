// Package audit persists every scored AnomalyResult to Postgres as a
// durable audit trail, asynchronously and in batches so the pipeline's hot
// path never blocks on a database round trip. This is additive: the core
// engine and pipeline contract does not require persistence, and the
// pipeline runs unchanged with a nil *Sink.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// Config carries the audit database's connection settings.
type Config struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Database wraps the pgx connection pool used by the audit sink.
type Database struct {
	Pool *pgxpool.Pool
}

// NewDatabase opens and health-checks the audit Postgres pool.
func NewDatabase(cfg Config) (*Database, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse audit database URL: %w", err)
	}

	poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	poolCfg.MinConns = int32(cfg.MaxIdleConns)
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create audit connection pool: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping audit database: %w", err)
	}

	log.Info().Msg("audit database connection established")
	return &Database{Pool: pool}, nil
}

// Close releases the connection pool.
func (db *Database) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		log.Info().Msg("audit database connection closed")
	}
}

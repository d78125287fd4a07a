// Package cache provides a Redis-backed idempotency and lookup cache for
// scored results, grounded on the teacher's CacheClient but narrowed to
// the single concern this domain needs: answering "have we already scored
// this txn_id" and serving the additive /api/results/:txn_id lookup.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/enterprise/anomaly-engine/internal/models"
)

const resultKeyPrefix = "anomaly-engine:result:"

// Config carries the cache Redis connection settings.
type Config struct {
	URL string
	TTL time.Duration
}

// ResultCache stores the most recent AnomalyResult per transaction id.
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New dials Redis and returns a ResultCache.
func New(cfg Config) (*ResultCache, error) {
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse cache redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to cache redis: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	log.Info().Msg("result cache connected")
	return &ResultCache{client: client, ttl: ttl}, nil
}

// Store caches result under its transaction id. Errors are logged, not
// returned: caching is an enrichment and must never affect the pipeline's
// hot path.
func (c *ResultCache) Store(ctx context.Context, result models.AnomalyResult) {
	data, err := json.Marshal(result)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal result for cache")
		return
	}
	key := resultKeyPrefix + result.TransactionID
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		log.Error().Err(err).Str("txn_id", result.TransactionID).Msg("failed to cache result")
	}
}

// Get returns the cached result for txnID, or ok=false if absent.
func (c *ResultCache) Get(ctx context.Context, txnID string) (models.AnomalyResult, bool) {
	key := resultKeyPrefix + txnID
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return models.AnomalyResult{}, false
	}
	var result models.AnomalyResult
	if err := json.Unmarshal(data, &result); err != nil {
		log.Error().Err(err).Str("txn_id", txnID).Msg("failed to unmarshal cached result")
		return models.AnomalyResult{}, false
	}
	return result, true
}

// SeenBefore atomically marks txnID as processed, returning true if it was
// already marked. Used to flag likely at-least-once duplicates for
// downstream dashboards without affecting scoring.
func (c *ResultCache) SeenBefore(ctx context.Context, txnID string) bool {
	key := "anomaly-engine:seen:" + txnID
	ok, err := c.client.SetNX(ctx, key, "1", c.ttl).Result()
	if err != nil {
		log.Error().Err(err).Str("txn_id", txnID).Msg("failed to check duplicate marker")
		return false
	}
	return !ok
}

// Close closes the underlying Redis client.
func (c *ResultCache) Close() error {
	return c.client.Close()
}

package postgres

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"onchain-intel/internal/domain/repository"
	"onchain-intel/internal/infrastructure/logger"
)

const createSummaryCacheTable = `
	CREATE TABLE IF NOT EXISTS summary_cache (
		cache_key  TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		stored_at  TIMESTAMPTZ NOT NULL
	)
`

// SummaryCache implements repository.SummaryCache on a Postgres table
type SummaryCache struct {
	pool   *Pool
	ttl    time.Duration
	prefix string
	now    func() time.Time
	logger *logger.Logger
}

var _ repository.SummaryCache = (*SummaryCache)(nil)

// NewSummaryCache creates the cache and ensures its table exists
func NewSummaryCache(ctx context.Context, pool *Pool, ttl time.Duration, prefix string, logger *logger.Logger) (*SummaryCache, error) {
	if _, err := pool.Exec(ctx, createSummaryCacheTable); err != nil {
		return nil, fmt.Errorf("failed to create summary_cache table: %w", err)
	}
	return &SummaryCache{
		pool:   pool,
		ttl:    ttl,
		prefix: prefix,
		now:    time.Now,
		logger: logger.WithComponent("pg-summary-cache"),
	}, nil
}

// Get returns the cached value; rows older than the TTL read as a miss
func (c *SummaryCache) Get(ctx context.Context, key string) (string, bool, error) {
	query := `
		SELECT value
		FROM summary_cache
		WHERE cache_key = $1 AND stored_at > $2
	`

	var value string
	err := c.pool.QueryRow(ctx, query, c.prefix+key, c.now().Add(-c.ttl)).Scan(&value)
	if err != nil {
		if isNotFoundError(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read summary cache: %w", err)
	}
	return value, true, nil
}

// Set stores value under key with a fresh timestamp
func (c *SummaryCache) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO summary_cache (cache_key, value, stored_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (cache_key) DO UPDATE
		SET value = EXCLUDED.value, stored_at = EXCLUDED.stored_at
	`

	if _, err := c.pool.Exec(ctx, query, c.prefix+key, value, c.now()); err != nil {
		return fmt.Errorf("failed to write summary cache: %w", err)
	}
	c.logger.Debug("Summary cached", zap.String("key", key))
	return nil
}

// Purge deletes expired rows and returns how many were removed
func (c *SummaryCache) Purge(ctx context.Context) (int64, error) {
	tag, err := c.pool.Exec(ctx, `DELETE FROM summary_cache WHERE stored_at <= $1`, c.now().Add(-c.ttl))
	if err != nil {
		return 0, fmt.Errorf("failed to purge summary cache: %w", err)
	}
	return tag.RowsAffected(), nil
}

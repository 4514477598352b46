package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/JLTC3111/Quyenhair/internal/domain"
	"github.com/JLTC3111/Quyenhair/internal/repository"
)

// GenerationKey holds a counter bumped on every invalidation. Statistics
// are stored under StatsKey(generation), so a value computed before an
// invalidation can never be read after it.
const GenerationKey = "review:stats:gen"

// StatsKey returns the key the statistics of generation gen live under.
func StatsKey(gen int64) string {
	return "review:stats:" + strconv.FormatInt(gen, 10)
}

// StatsCache implements repository.StatsCache using Redis.
type StatsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStatsCache creates a Redis-backed statistics cache.
func NewStatsCache(client *redis.Client, ttl time.Duration) *StatsCache {
	return &StatsCache{client: client, ttl: ttl}
}

// Get returns the statistics of the current generation. On a miss the
// generation is still returned for the following Set.
func (c *StatsCache) Get(ctx context.Context) (*domain.RatingStatistics, int64, error) {
	gen, err := c.client.Get(ctx, GenerationKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, fmt.Errorf("redis get stats generation: %w", err)
	}

	data, err := c.client.Get(ctx, StatsKey(gen)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, gen, repository.ErrCacheMiss
	case err != nil:
		return nil, gen, fmt.Errorf("redis get stats: %w", err)
	}

	var stats domain.RatingStatistics
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, gen, fmt.Errorf("unmarshal stats: %w", err)
	}
	return &stats, gen, nil
}

// Set stores stats for generation gen with the configured TTL. If an
// invalidation happened since gen was read, the entry is never served.
func (c *StatsCache) Set(ctx context.Context, gen int64, stats *domain.RatingStatistics) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}
	if err := c.client.Set(ctx, StatsKey(gen), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set stats: %w", err)
	}
	return nil
}

// Invalidate starts a new generation. Entries of older generations expire
// on their own.
func (c *StatsCache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, GenerationKey).Err(); err != nil {
		return fmt.Errorf("redis bump stats generation: %w", err)
	}
	return nil
}

// Package redisstore keeps the review document under one Redis key.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/JLTC3111/Quyenhair/internal/domain"
	"github.com/JLTC3111/Quyenhair/internal/engine"
)

// DefaultKey is the key used when none is configured.
const DefaultKey = "reviewctl:reviews"

// Store reads and writes a single string key. A zero TTL keeps the key
// forever; otherwise every Save refreshes the expiry.
type Store struct {
	client redis.Cmdable
	key    string
	ttl    time.Duration
}

// New returns a store for key. An empty key falls back to DefaultKey.
func New(client redis.Cmdable, key string, ttl time.Duration) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{client: client, key: key, ttl: ttl}
}

func (s *Store) Load(ctx context.Context) ([]domain.Review, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", s.key, err)
	}
	return engine.DecodeDocument(data)
}

func (s *Store) Save(ctx context.Context, reviews []domain.Review) error {
	data, err := engine.EncodeDocument(reviews)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}

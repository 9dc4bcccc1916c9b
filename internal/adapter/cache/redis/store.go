package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "unread:fp:"

// Store keeps fingerprints in redis with a native TTL. Useful when several
// engine processes serve the same user pool; the in-memory store remains
// the default since dedup state is session-scoped.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStore(addr string, ttl time.Duration) *Store {
	return &Store{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		ttl:    ttl,
	}
}

func (s *Store) Seen(ctx context.Context, fingerprint string) (bool, error) {
	n, err := s.client.Exists(ctx, keyPrefix+fingerprint).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

func (s *Store) Remember(ctx context.Context, fingerprint string, at time.Time) error {
	ts := at.UTC().Format(time.RFC3339Nano)
	if err := s.client.Set(ctx, keyPrefix+fingerprint, ts, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultContextTTL bounds how long a mirrored handle survives without
	// being rewritten. Engines drop contexts long before that.
	DefaultContextTTL = 24 * time.Hour
	// DefaultIdempotencyTTL is the default retention window of history tokens
	DefaultIdempotencyTTL = 10 * time.Minute
)

// Store handles Redis operations for context handles and idempotency tokens
type Store struct {
	client     *redis.Client
	contextTTL time.Duration
}

// NewStore creates a new Redis store
func NewStore(client *redis.Client) *Store {
	return &Store{
		client:     client,
		contextTTL: DefaultContextTTL,
	}
}

// Ping checks the connection
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

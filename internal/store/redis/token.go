package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RememberToken stores token -> entryID for the retention window. An
// existing token is left untouched; the return value reports whether
// this call stored it.
func (s *Store) RememberToken(ctx context.Context, userID, token, entryID string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	ok, err := s.client.SetNX(ctx, IdempotencyKey(userID, token), entryID, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to remember token: %w", err)
	}
	return ok, nil
}

// LookupToken returns the entry ID recorded for token, or "" on a miss.
func (s *Store) LookupToken(ctx context.Context, userID, token string) (string, error) {
	id, err := s.client.Get(ctx, IdempotencyKey(userID, token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil // Cache miss
		}
		return "", fmt.Errorf("failed to get token: %w", err)
	}
	return id, nil
}

// ForgetTokens removes every token of a user. Used when history is cleared.
func (s *Store) ForgetTokens(ctx context.Context, userID string) error {
	iter := s.client.Scan(ctx, 0, IdempotencyKey(userID, "*"), 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete token key: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to forget tokens: %w", err)
	}
	return nil
}

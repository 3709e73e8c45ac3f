package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ContextStats returns the number of mirrored handles per user. Entries whose
// handle has expired are pruned from the per-user sets along the way.
func (s *Store) ContextStats(ctx context.Context) (map[string]int64, error) {
	stats := make(map[string]int64)

	iter := s.client.Scan(ctx, 0, KeyPrefixUserContexts+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		userID, err := ExtractUserID(key)
		if err != nil {
			continue
		}
		n, err := s.pruneSet(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("failed to count contexts of %s: %w", userID, err)
		}
		if n > 0 {
			stats[userID] = n
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan user contexts: %w", err)
	}

	return stats, nil
}

// pruneSet drops IDs whose context key no longer exists from the set at key
// and returns the remaining cardinality.
func (s *Store) pruneSet(ctx context.Context, key string) (int64, error) {
	ids, err := s.client.SMembers(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	pipe := s.client.Pipeline()
	exists := make([]*redis.IntCmd, len(ids))
	for i, id := range ids {
		exists[i] = pipe.Exists(ctx, ContextKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}

	var stale []any
	for i, cmd := range exists {
		if cmd.Val() == 0 {
			stale = append(stale, ids[i])
		}
	}
	if len(stale) == 0 {
		return int64(len(ids)), nil
	}
	if err := s.client.SRem(ctx, key, stale...).Err(); err != nil {
		return 0, err
	}
	return int64(len(ids) - len(stale)), nil
}

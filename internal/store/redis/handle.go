package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MrSnakeDoc/tabgate/internal/domain"
	"github.com/redis/go-redis/v9"
)

// SaveHandle stores a context handle in Redis
func (s *Store) SaveHandle(ctx context.Context, h domain.ContextHandle) error {
	data, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("failed to marshal context: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, ContextKey(h.ID), data, s.contextTTL)
	pipe.SAdd(ctx, AllContextsKey(), h.ID)
	pipe.SAdd(ctx, UserContextsKey(h.UserID), h.ID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save context: %w", err)
	}
	return nil
}

// GetHandle retrieves a context handle from Redis by ID
func (s *Store) GetHandle(ctx context.Context, id string) (domain.ContextHandle, error) {
	data, err := s.client.Get(ctx, ContextKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.ContextHandle{}, fmt.Errorf("context not found: %s", id)
		}
		return domain.ContextHandle{}, fmt.Errorf("failed to get context: %w", err)
	}

	var h domain.ContextHandle
	if err := json.Unmarshal(data, &h); err != nil {
		return domain.ContextHandle{}, fmt.Errorf("failed to unmarshal context: %w", err)
	}
	return h, nil
}

// GetAllHandles retrieves all mirrored handles. IDs whose value expired
// are pruned from the sets on the way.
func (s *Store) GetAllHandles(ctx context.Context) ([]domain.ContextHandle, error) {
	ids, err := s.client.SMembers(ctx, AllContextsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get context IDs: %w", err)
	}

	if len(ids) == 0 {
		return []domain.ContextHandle{}, nil
	}

	handles := make([]domain.ContextHandle, 0, len(ids))
	var stale []any
	for _, id := range ids {
		h, err := s.GetHandle(ctx, id)
		if err != nil {
			// Skip handles that couldn't be retrieved
			stale = append(stale, id)
			continue
		}
		handles = append(handles, h)
	}

	if len(stale) > 0 {
		_ = s.client.SRem(ctx, AllContextsKey(), stale...).Err()
		// the owner of an expired handle is unknown, so every user set is swept
		_, _ = s.ContextStats(ctx)
	}

	return handles, nil
}

// DeleteHandle removes a context handle from Redis
func (s *Store) DeleteHandle(ctx context.Context, h domain.ContextHandle) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, ContextKey(h.ID))
	pipe.SRem(ctx, AllContextsKey(), h.ID)
	pipe.SRem(ctx, UserContextsKey(h.UserID), h.ID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete context: %w", err)
	}
	return nil
}

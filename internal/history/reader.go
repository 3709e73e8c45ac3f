package history

import (
	"context"

	"github.com/MrSnakeDoc/tabgate/internal/domain"
)

const (
	DefaultLimit = 50
	MaxLimit     = 100
)

// Reader lists history.
type Reader struct {
	store domain.HistoryStore
}

func NewReader(store domain.HistoryStore) *Reader {
	return &Reader{store: store}
}

// List returns up to limit entries of userID, newest first. A zero limit
// means DefaultLimit; other values are clamped to [1, MaxLimit]. A user
// without history gets an empty, non-nil slice.
func (r *Reader) List(ctx context.Context, userID string, limit int) ([]domain.HistoryEntry, error) {
	if userID == "" {
		return nil, domain.E(domain.KindUnauthorized, "authentication required", nil)
	}

	switch {
	case limit == 0:
		limit = DefaultLimit
	case limit < 1:
		limit = 1
	case limit > MaxLimit:
		limit = MaxLimit
	}

	entries, err := r.store.List(ctx, userID, limit)
	if err != nil {
		return nil, domain.E(domain.KindStoreUnavailable, "history is unavailable", err)
	}
	if entries == nil {
		entries = []domain.HistoryEntry{}
	}
	return entries, nil
}

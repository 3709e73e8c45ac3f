package domain

import (
	"context"
	"time"
)

// HistoryInsert is one history row to append. Token is optional; when set,
// a second insert with the same (user, token) before TokenExpiresAt returns
// the first entry instead of creating a new one.
type HistoryInsert struct {
	Entry          HistoryEntry
	Token          string
	TokenExpiresAt time.Time
}

// HistoryStore persists history entries.
//
// Insert never lets VisitedAt go backwards for a user: the stored value is
// max(entry.VisitedAt, latest VisitedAt of that user). The returned bool is
// false when an existing entry was returned for a repeated token.
type HistoryStore interface {
	Insert(ctx context.Context, in HistoryInsert) (HistoryEntry, bool, error)
	Get(ctx context.Context, userID, id string) (HistoryEntry, error)
	List(ctx context.Context, userID string, limit int) ([]HistoryEntry, error)
	Clear(ctx context.Context, userID string) (int64, error)
	ExpireTokens(ctx context.Context, now time.Time) (int64, error)
}

// BookmarkStore persists bookmarks. Every call is scoped to a user.
type BookmarkStore interface {
	List(ctx context.Context, userID string, folder *string) ([]Bookmark, error)
	Get(ctx context.Context, userID, id string) (Bookmark, error)
	Create(ctx context.Context, b Bookmark) error
	Update(ctx context.Context, b Bookmark) error
	Delete(ctx context.Context, userID, id string) error
}

// SettingsStore persists browser settings, one row per user.
// Get returns (nil, nil) when the user never saved settings.
type SettingsStore interface {
	Get(ctx context.Context, userID string) (*Settings, error)
	Upsert(ctx context.Context, s Settings) error
}

// ProfileStore persists profiles. Get returns (nil, nil) on a miss.
type ProfileStore interface {
	Get(ctx context.Context, id string) (*Profile, error)
	Upsert(ctx context.Context, p Profile) error
}

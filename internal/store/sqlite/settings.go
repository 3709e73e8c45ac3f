package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MrSnakeDoc/tabgate/internal/domain"
)

// Compile-time interface satisfaction check.
var _ domain.SettingsStore = (*SettingsRepo)(nil)

// SettingsRepo is the SQLite implementation of domain.SettingsStore.
type SettingsRepo struct {
	db *DB
}

// NewSettingsRepo creates a new SettingsRepo backed by the given DB.
func NewSettingsRepo(db *DB) *SettingsRepo {
	return &SettingsRepo{db: db}
}

// Get retrieves the settings of a user. Returns (nil, nil) if the user
// never saved any; callers should apply defaults.
func (r *SettingsRepo) Get(ctx context.Context, userID string) (*domain.Settings, error) {
	const query = `
		SELECT user_id, default_search_engine, default_zoom_level,
		       enable_javascript, enable_cookies, enable_adblock, enable_tracking_protection,
		       created_at, updated_at
		FROM browser_settings
		WHERE user_id = ?
	`

	var (
		s                    domain.Settings
		engine               string
		createdAt, updatedAt int64
	)
	err := r.db.Reader.QueryRowContext(ctx, query, userID).Scan(
		&s.UserID, &engine, &s.DefaultZoomLevel,
		&s.EnableJavaScript, &s.EnableCookies, &s.EnableAdblock, &s.EnableTrackingProtection,
		&createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get settings for %s: %w", userID, err)
	}

	s.DefaultSearchEngine = domain.SearchEngine(engine)
	s.CreatedAt = fromNanos(createdAt)
	s.UpdatedAt = fromNanos(updatedAt)
	return &s, nil
}

// Upsert inserts or replaces the settings row of s.UserID. created_at is
// kept from the first insert.
func (r *SettingsRepo) Upsert(ctx context.Context, s domain.Settings) error {
	const query = `
		INSERT INTO browser_settings (
			user_id, default_search_engine, default_zoom_level,
			enable_javascript, enable_cookies, enable_adblock, enable_tracking_protection,
			created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			default_search_engine = excluded.default_search_engine,
			default_zoom_level = excluded.default_zoom_level,
			enable_javascript = excluded.enable_javascript,
			enable_cookies = excluded.enable_cookies,
			enable_adblock = excluded.enable_adblock,
			enable_tracking_protection = excluded.enable_tracking_protection,
			updated_at = excluded.updated_at
	`

	_, err := r.db.Writer.ExecContext(ctx, query,
		s.UserID, string(s.DefaultSearchEngine), s.DefaultZoomLevel,
		s.EnableJavaScript, s.EnableCookies, s.EnableAdblock, s.EnableTrackingProtection,
		toNanos(s.CreatedAt), toNanos(s.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert settings for %s: %w", s.UserID, err)
	}
	return nil
}

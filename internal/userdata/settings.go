package userdata

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/tabgate/internal/domain"
)

// Settings reads and updates the browser settings of each user.
type Settings struct {
	store domain.SettingsStore
	now   func() time.Time
}

func NewSettings(store domain.SettingsStore) *Settings {
	return &Settings{store: store, now: time.Now}
}

// Get returns the stored settings of userID, or the defaults.
func (s *Settings) Get(ctx context.Context, userID string) (domain.Settings, error) {
	if err := requireUser(userID); err != nil {
		return domain.Settings{}, err
	}
	cur, err := s.store.Get(ctx, userID)
	if err != nil {
		return domain.Settings{}, storeErr(err, "settings unavailable")
	}
	if cur == nil {
		return domain.DefaultSettings(userID), nil
	}
	return *cur, nil
}

// Update applies patch on top of the current settings and saves them.
func (s *Settings) Update(ctx context.Context, userID string, patch domain.SettingsPatch) (domain.Settings, error) {
	cur, err := s.Get(ctx, userID)
	if err != nil {
		return domain.Settings{}, err
	}
	if err := patch.Apply(&cur); err != nil {
		return domain.Settings{}, err
	}

	now := s.now().UTC()
	if cur.CreatedAt.IsZero() {
		cur.CreatedAt = now
	}
	cur.UpdatedAt = now

	if err := s.store.Upsert(ctx, cur); err != nil {
		return domain.Settings{}, storeErr(err, "settings could not be saved")
	}
	return cur, nil
}

package userdata

import (
	"context"
	"errors"
	"sync"

	"github.com/MrSnakeDoc/tabgate/internal/domain"
)

var errDisk = errors.New("disk I/O error")

type memBookmarks struct {
	mu   sync.Mutex
	rows []domain.Bookmark
	fail bool
}

func (m *memBookmarks) List(ctx context.Context, userID string, folder *string) ([]domain.Bookmark, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, errDisk
	}
	out := []domain.Bookmark{}
	for _, b := range m.rows {
		if b.UserID != userID {
			continue
		}
		if folder != nil && (b.Folder == nil || *b.Folder != *folder) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (m *memBookmarks) Get(ctx context.Context, userID, id string) (domain.Bookmark, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.rows {
		if b.ID == id && b.UserID == userID {
			return b, nil
		}
	}
	return domain.Bookmark{}, domain.E(domain.KindNotFound, "bookmark not found", nil)
}

func (m *memBookmarks) Create(ctx context.Context, b domain.Bookmark) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errDisk
	}
	m.rows = append(m.rows, b)
	return nil
}

func (m *memBookmarks) Update(ctx context.Context, b domain.Bookmark) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ID == b.ID && m.rows[i].UserID == b.UserID {
			m.rows[i] = b
			return nil
		}
	}
	return domain.E(domain.KindNotFound, "bookmark not found", nil)
}

func (m *memBookmarks) Delete(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ID == id && m.rows[i].UserID == userID {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return domain.E(domain.KindNotFound, "bookmark not found", nil)
}

type memSettings struct {
	rows map[string]domain.Settings
	fail bool
}

func (m *memSettings) Get(ctx context.Context, userID string) (*domain.Settings, error) {
	if m.fail {
		return nil, errDisk
	}
	s, ok := m.rows[userID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *memSettings) Upsert(ctx context.Context, s domain.Settings) error {
	if m.fail {
		return errDisk
	}
	if m.rows == nil {
		m.rows = map[string]domain.Settings{}
	}
	m.rows[s.UserID] = s
	return nil
}

type memProfiles struct {
	rows map[string]domain.Profile
}

func (m *memProfiles) Get(ctx context.Context, id string) (*domain.Profile, error) {
	p, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *memProfiles) Upsert(ctx context.Context, p domain.Profile) error {
	if m.rows == nil {
		m.rows = map[string]domain.Profile{}
	}
	m.rows[p.ID] = p
	return nil
}

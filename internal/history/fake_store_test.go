package history

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/MrSnakeDoc/tabgate/internal/domain"
)

// memStore is an in-memory domain.HistoryStore with the same ordering and
// token rules as the SQLite one.
type memStore struct {
	mu      sync.Mutex
	rows    []memRow
	fail    error
	inserts int
}

type memRow struct {
	seq     int
	entry   domain.HistoryEntry
	token   string
	expires time.Time
}

func (m *memStore) Insert(ctx context.Context, in domain.HistoryInsert) (domain.HistoryEntry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return domain.HistoryEntry{}, false, m.fail
	}
	e := in.Entry
	for _, r := range m.rows {
		if in.Token != "" && r.entry.UserID == e.UserID && r.token == in.Token && r.expires.After(e.VisitedAt) {
			return r.entry, false, nil
		}
	}
	for _, r := range m.rows {
		if r.entry.UserID == e.UserID && r.entry.VisitedAt.After(e.VisitedAt) {
			e.VisitedAt = r.entry.VisitedAt
		}
	}
	m.inserts++
	m.rows = append(m.rows, memRow{seq: len(m.rows) + 1, entry: e, token: in.Token, expires: in.TokenExpiresAt})
	return e, true, nil
}

func (m *memStore) Get(ctx context.Context, userID, id string) (domain.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.entry.UserID == userID && r.entry.ID == id {
			return r.entry, nil
		}
	}
	return domain.HistoryEntry{}, domain.E(domain.KindNotFound, "history entry not found", nil)
}

func (m *memStore) List(ctx context.Context, userID string, limit int) ([]domain.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	var rows []memRow
	for _, r := range m.rows {
		if r.entry.UserID == userID {
			rows = append(rows, r)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].entry.VisitedAt.Equal(rows[j].entry.VisitedAt) {
			return rows[i].seq > rows[j].seq
		}
		return rows[i].entry.VisitedAt.After(rows[j].entry.VisitedAt)
	})
	var out []domain.HistoryEntry
	for i := 0; i < len(rows) && i < limit; i++ {
		out = append(out, rows[i].entry)
	}
	return out, nil
}

func (m *memStore) Clear(ctx context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.rows[:0]
	var n int64
	for _, r := range m.rows {
		if r.entry.UserID == userID {
			n++
			continue
		}
		kept = append(kept, r)
	}
	m.rows = kept
	return n, nil
}

func (m *memStore) ExpireTokens(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i := range m.rows {
		if m.rows[i].token != "" && !m.rows[i].expires.After(now) {
			m.rows[i].token = ""
			n++
		}
	}
	return n, nil
}

type memTokens struct {
	mu     sync.Mutex
	tokens map[string]string
	fail   bool
}

func (c *memTokens) LookupToken(ctx context.Context, userID, token string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return "", errors.New("redis down")
	}
	return c.tokens[userID+":"+token], nil
}

func (c *memTokens) RememberToken(ctx context.Context, userID, token, entryID string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return false, errors.New("redis down")
	}
	if c.tokens == nil {
		c.tokens = map[string]string{}
	}
	k := userID + ":" + token
	if _, ok := c.tokens[k]; ok {
		return false, nil
	}
	c.tokens[k] = entryID
	return true, nil
}

func (c *memTokens) ForgetTokens(ctx context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.tokens {
		if len(k) > len(userID) && k[:len(userID)+1] == userID+":" {
			delete(c.tokens, k)
		}
	}
	return nil
}

package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrSnakeDoc/tabgate/internal/domain"
	"github.com/MrSnakeDoc/tabgate/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	mu       sync.Mutex
	next     int
	created  int32
	released []string
	err      error
	block    chan struct{} // when set, CreateContext waits on it
}

func (f *fakeEngine) CreateContext(ctx context.Context, userID string) (string, error) {
	atomic.AddInt32(&f.created, 1)
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.next++
	return fmt.Sprintf("ctx-%d", f.next), nil
}

func (f *fakeEngine) ReleaseContext(ctx context.Context, handle string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = append(f.released, handle)
	return nil
}

func (f *fakeEngine) releasedHandles() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.released...)
}

type fakeMirror struct {
	mu    sync.Mutex
	saved map[string]domain.ContextHandle
	fail  bool
}

func (m *fakeMirror) SaveHandle(ctx context.Context, h domain.ContextHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("redis down")
	}
	if m.saved == nil {
		m.saved = map[string]domain.ContextHandle{}
	}
	m.saved[h.ID] = h
	return nil
}

func (m *fakeMirror) DeleteHandle(ctx context.Context, h domain.ContextHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("redis down")
	}
	delete(m.saved, h.ID)
	return nil
}

func newTestRegistry(t *testing.T, eng *fakeEngine, opts Options) (*Registry, *time.Time) {
	t.Helper()
	r := New(eng, nil, logger.NewNop(), nil, opts)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	r.SetClock(func() time.Time { return now })
	return r, &now
}

func TestCreateThenValidate(t *testing.T) {
	eng := &fakeEngine{}
	r, _ := newTestRegistry(t, eng, Options{})

	h, err := r.CreateContext(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, h.Live)
	assert.Equal(t, "u1", h.UserID)

	assert.NoError(t, r.Validate(h.ID, "u1"))
	assert.ErrorIs(t, r.Validate(h.ID, "u2"), domain.ErrForbidden)
	assert.ErrorIs(t, r.Validate("nope", "u1"), domain.ErrNotFound)
	assert.ErrorIs(t, r.Validate(h.ID, ""), domain.ErrUnauthorized)
}

func TestCreateContext_RequiresUser(t *testing.T) {
	eng := &fakeEngine{}
	r, _ := newTestRegistry(t, eng, Options{})

	_, err := r.CreateContext(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Equal(t, int32(0), atomic.LoadInt32(&eng.created))
}

func TestCreateContext_EngineFailure(t *testing.T) {
	eng := &fakeEngine{err: errors.New("connection refused")}
	r, _ := newTestRegistry(t, eng, Options{MaxTabs: 1})

	_, err := r.CreateContext(context.Background(), "u1")
	assert.ErrorIs(t, err, domain.ErrEngineUnavailable)
	assert.Equal(t, 0, r.Count())

	// the failed attempt must not hold on to the reserved slot
	eng.err = nil
	_, err = r.CreateContext(context.Background(), "u1")
	assert.NoError(t, err)
}

func TestDestroy(t *testing.T) {
	eng := &fakeEngine{}
	r, _ := newTestRegistry(t, eng, Options{})

	h, err := r.CreateContext(context.Background(), "u1")
	require.NoError(t, err)

	require.NoError(t, r.Destroy(context.Background(), h.ID))
	assert.ErrorIs(t, r.Validate(h.ID, "u1"), domain.ErrNotFound)
	assert.ErrorIs(t, r.Touch(h.ID), domain.ErrNotFound)

	// idempotent, and the engine is asked only once
	require.NoError(t, r.Destroy(context.Background(), h.ID))
	assert.Equal(t, []string{h.ID}, eng.releasedHandles())
	assert.Equal(t, 0, r.Count())
}

func TestDestroyOwned(t *testing.T) {
	eng := &fakeEngine{}
	r, _ := newTestRegistry(t, eng, Options{})

	h, err := r.CreateContext(context.Background(), "u1")
	require.NoError(t, err)

	assert.ErrorIs(t, r.DestroyOwned(context.Background(), h.ID, "u2"), domain.ErrForbidden)
	assert.NoError(t, r.Validate(h.ID, "u1"))

	assert.NoError(t, r.DestroyOwned(context.Background(), h.ID, "u1"))
	assert.NoError(t, r.DestroyOwned(context.Background(), h.ID, "u1"))
}

func TestValidate_ExpiresIdleHandle(t *testing.T) {
	eng := &fakeEngine{}
	r, now := newTestRegistry(t, eng, Options{IdleTimeout: time.Minute})

	h, err := r.CreateContext(context.Background(), "u1")
	require.NoError(t, err)

	*now = now.Add(30 * time.Second)
	require.NoError(t, r.Touch(h.ID))

	*now = now.Add(50 * time.Second)
	assert.NoError(t, r.Validate(h.ID, "u1"), "touch should have reset the idle window")

	*now = now.Add(2 * time.Minute)
	assert.ErrorIs(t, r.Validate(h.ID, "u1"), domain.ErrExpired)
	assert.ErrorIs(t, r.Validate(h.ID, "u1"), domain.ErrNotFound)
	assert.Equal(t, []string{h.ID}, eng.releasedHandles())
}

func TestQuota(t *testing.T) {
	eng := &fakeEngine{}
	r, _ := newTestRegistry(t, eng, Options{MaxTabs: 3})

	var handles []domain.ContextHandle
	for i := 0; i < 3; i++ {
		h, err := r.CreateContext(context.Background(), "u1")
		require.NoError(t, err)
		handles = append(handles, h)
	}

	_, err := r.CreateContext(context.Background(), "u1")
	assert.ErrorIs(t, err, domain.ErrQuotaExceeded)
	assert.Equal(t, int32(3), atomic.LoadInt32(&eng.created), "quota must be checked before calling the engine")

	// other users have their own quota
	_, err = r.CreateContext(context.Background(), "u2")
	assert.NoError(t, err)

	require.NoError(t, r.Destroy(context.Background(), handles[0].ID))
	_, err = r.CreateContext(context.Background(), "u1")
	assert.NoError(t, err)
}

func TestQuota_CountsInFlightCreations(t *testing.T) {
	eng := &fakeEngine{block: make(chan struct{})}
	r := New(eng, nil, logger.NewNop(), nil, Options{MaxTabs: 2})

	var wg sync.WaitGroup
	var ok, quota int32
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.CreateContext(context.Background(), "u1")
			switch {
			case err == nil:
				atomic.AddInt32(&ok, 1)
			case errors.Is(err, domain.ErrQuotaExceeded):
				atomic.AddInt32(&quota, 1)
			}
		}()
	}

	// wait until the rejected callers are back, then let the engine answer
	require.Eventually(t, func() bool { return atomic.LoadInt32(&quota) == 3 }, time.Second, 5*time.Millisecond)
	close(eng.block)
	wg.Wait()

	assert.Equal(t, int32(2), ok)
	assert.Equal(t, 2, len(r.List("u1")))
}

func TestCreateContext_SurvivesCallerCancel(t *testing.T) {
	eng := &fakeEngine{}
	r, _ := newTestRegistry(t, eng, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h, err := r.CreateContext(ctx, "u1")
	require.NoError(t, err)
	assert.NoError(t, r.Validate(h.ID, "u1"))
}

func TestMarkDead(t *testing.T) {
	eng := &fakeEngine{}
	r, _ := newTestRegistry(t, eng, Options{})

	h, err := r.CreateContext(context.Background(), "u1")
	require.NoError(t, err)

	r.MarkDead(h.ID)
	assert.ErrorIs(t, r.Validate(h.ID, "u1"), domain.ErrNotFound)
	assert.Empty(t, eng.releasedHandles(), "a gone context is not released again")
}

func TestSweep(t *testing.T) {
	eng := &fakeEngine{}
	r, now := newTestRegistry(t, eng, Options{IdleTimeout: time.Minute})

	old, err := r.CreateContext(context.Background(), "u1")
	require.NoError(t, err)

	*now = now.Add(45 * time.Second)
	fresh, err := r.CreateContext(context.Background(), "u2")
	require.NoError(t, err)

	*now = now.Add(30 * time.Second)
	assert.Equal(t, 1, r.Sweep(context.Background()))
	assert.ErrorIs(t, r.Validate(old.ID, "u1"), domain.ErrNotFound)
	assert.NoError(t, r.Validate(fresh.ID, "u2"))
	assert.Equal(t, 0, r.Sweep(context.Background()))
}

func TestList_OnlyOwnHandles(t *testing.T) {
	eng := &fakeEngine{}
	r, now := newTestRegistry(t, eng, Options{})

	a, _ := r.CreateContext(context.Background(), "u1")
	*now = now.Add(time.Second)
	_, _ = r.CreateContext(context.Background(), "u2")
	*now = now.Add(time.Second)
	b, _ := r.CreateContext(context.Background(), "u1")

	got := r.List("u1")
	require.Len(t, got, 2)
	assert.Equal(t, a.ID, got[0].ID)
	assert.Equal(t, b.ID, got[1].ID)
	assert.Empty(t, r.List("u3"))
	assert.Equal(t, 3, r.Count())
	assert.Equal(t, 2, r.Users())
}

func TestMirror(t *testing.T) {
	eng := &fakeEngine{}
	mirror := &fakeMirror{}
	r := New(eng, mirror, logger.NewNop(), nil, Options{})

	h, err := r.CreateContext(context.Background(), "u1")
	require.NoError(t, err)
	assert.Contains(t, mirror.saved, h.ID)

	require.NoError(t, r.Destroy(context.Background(), h.ID))
	assert.NotContains(t, mirror.saved, h.ID)

	// mirror failures never fail the operation
	mirror.fail = true
	_, err = r.CreateContext(context.Background(), "u1")
	assert.NoError(t, err)
}

func TestRestore(t *testing.T) {
	eng := &fakeEngine{}
	r, _ := newTestRegistry(t, eng, Options{MaxTabs: 2})

	past := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	n := r.Restore([]domain.ContextHandle{
		{ID: "a", UserID: "u1", CreatedAt: past, LastActivityAt: past, Live: true},
		{ID: "b", UserID: "u1", CreatedAt: past, LastActivityAt: past, Live: false},
		{ID: "c", UserID: "", CreatedAt: past, LastActivityAt: past, Live: true},
	})
	assert.Equal(t, 1, n)
	assert.NoError(t, r.Validate("a", "u1"), "restored handles get a fresh idle window")

	_, err := r.CreateContext(context.Background(), "u1")
	require.NoError(t, err)
	_, err = r.CreateContext(context.Background(), "u1")
	assert.ErrorIs(t, err, domain.ErrQuotaExceeded, "restored handles count toward the quota")
}

func TestRestoreCapsAtQuota(t *testing.T) {
	eng := &fakeEngine{}
	mirror := &fakeMirror{}
	r := New(eng, mirror, logger.NewNop(), nil, Options{MaxTabs: 2})

	at := func(h int) time.Time { return time.Date(2025, 1, 1, h, 0, 0, 0, time.UTC) }
	handles := []domain.ContextHandle{
		{ID: "old", UserID: "u1", LastActivityAt: at(1), Live: true},
		{ID: "new", UserID: "u1", LastActivityAt: at(3), Live: true},
		{ID: "mid", UserID: "u1", LastActivityAt: at(2), Live: true},
		{ID: "other", UserID: "u2", LastActivityAt: at(1), Live: true},
	}
	for _, h := range handles {
		require.NoError(t, mirror.SaveHandle(context.Background(), h))
	}

	n := r.Restore(handles)
	assert.Equal(t, 3, n)
	assert.Len(t, r.List("u1"), 2)
	assert.NoError(t, r.Validate("new", "u1"))
	assert.NoError(t, r.Validate("mid", "u1"))
	assert.ErrorIs(t, r.Validate("old", "u1"), domain.ErrNotFound)
	assert.NoError(t, r.Validate("other", "u2"))

	assert.Equal(t, []string{"old"}, eng.releasedHandles())
	assert.NotContains(t, mirror.saved, "old")
	assert.Contains(t, mirror.saved, "new")
}

func TestTouchRefreshesMirror(t *testing.T) {
	eng := &fakeEngine{}
	mirror := &fakeMirror{}
	r := New(eng, mirror, logger.NewNop(), nil, Options{MirrorRefresh: time.Hour})
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	r.SetClock(func() time.Time { return now })

	h, err := r.CreateContext(context.Background(), "u1")
	require.NoError(t, err)
	created := mirror.saved[h.ID].LastActivityAt

	now = now.Add(time.Minute)
	require.NoError(t, r.Touch(h.ID))
	assert.True(t, mirror.saved[h.ID].LastActivityAt.Equal(created), "no rewrite inside the refresh interval")

	now = now.Add(2 * time.Hour)
	require.NoError(t, r.Touch(h.ID))
	assert.True(t, mirror.saved[h.ID].LastActivityAt.Equal(now))
}

func TestConcurrentTouchAndDestroy(t *testing.T) {
	eng := &fakeEngine{}
	r := New(eng, nil, logger.NewNop(), nil, Options{MaxTabs: 100})

	var ids []string
	for i := 0; i < 20; i++ {
		h, err := r.CreateContext(context.Background(), "u1")
		require.NoError(t, err)
		ids = append(ids, h.ID)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(3)
		go func(id string) { defer wg.Done(); _ = r.Touch(id) }(id)
		go func(id string) { defer wg.Done(); _ = r.Validate(id, "u1") }(id)
		go func(id string) { defer wg.Done(); _ = r.Destroy(context.Background(), id) }(id)
	}
	wg.Wait()

	assert.Equal(t, 0, r.Count())
	assert.Len(t, eng.releasedHandles(), 20)
}

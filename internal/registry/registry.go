package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/MrSnakeDoc/tabgate/internal/domain"
	"github.com/MrSnakeDoc/tabgate/internal/logger"
	"github.com/MrSnakeDoc/tabgate/internal/metrics"
)

// Engine is the part of the browser engine the registry drives.
type Engine interface {
	CreateContext(ctx context.Context, userID string) (string, error)
	ReleaseContext(ctx context.Context, handle string) error
}

// Mirror persists handles outside the process so they survive a restart.
// Failures are logged and otherwise ignored.
type Mirror interface {
	SaveHandle(ctx context.Context, h domain.ContextHandle) error
	DeleteHandle(ctx context.Context, h domain.ContextHandle) error
}

type Options struct {
	MaxTabs        int           // per user, live + in-flight
	IdleTimeout    time.Duration // handles idle longer are expired
	CreateTimeout  time.Duration // engine create call
	ReleaseTimeout time.Duration // engine release call (best effort)
	MirrorTimeout  time.Duration // each mirror write
	MirrorRefresh  time.Duration // activity rewrites the mirrored handle at most this often
}

const (
	DefaultMaxTabs        = 10
	DefaultIdleTimeout    = 30 * time.Minute
	DefaultCreateTimeout  = 15 * time.Second
	DefaultReleaseTimeout = 5 * time.Second
	DefaultMirrorTimeout  = 2 * time.Second
	DefaultMirrorRefresh  = time.Hour
)

// Close reasons, also used as metric labels.
const (
	ReasonClosed  = "closed"
	ReasonIdle    = "idle"
	ReasonGone    = "gone"
	ReasonExpired = "expired"
)

type entry struct {
	mu         sync.Mutex
	h          domain.ContextHandle
	mirroredAt time.Time
}

// Registry tracks the live browser contexts of every user.
//
// The map lock only guards the index and the per-user counters; each
// handle has its own mutex. No engine or mirror call is made while any of
// these locks is held.
type Registry struct {
	engine  Engine
	mirror  Mirror
	log     logger.Logger
	metrics *metrics.Metrics
	opts    Options
	now     func() time.Time

	mu       sync.RWMutex
	handles  map[string]*entry
	live     map[string]int // userID -> registered handles
	inflight map[string]int // userID -> reserved slots
}

// New creates a registry. mirror and m may be nil.
func New(engine Engine, mirror Mirror, log logger.Logger, m *metrics.Metrics, opts Options) *Registry {
	if opts.MaxTabs <= 0 {
		opts.MaxTabs = DefaultMaxTabs
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}
	if opts.CreateTimeout <= 0 {
		opts.CreateTimeout = DefaultCreateTimeout
	}
	if opts.ReleaseTimeout <= 0 {
		opts.ReleaseTimeout = DefaultReleaseTimeout
	}
	if opts.MirrorTimeout <= 0 {
		opts.MirrorTimeout = DefaultMirrorTimeout
	}
	if opts.MirrorRefresh <= 0 {
		opts.MirrorRefresh = DefaultMirrorRefresh
	}
	return &Registry{
		engine:   engine,
		mirror:   mirror,
		log:      log,
		metrics:  m,
		opts:     opts,
		now:      time.Now,
		handles:  make(map[string]*entry),
		live:     make(map[string]int),
		inflight: make(map[string]int),
	}
}

// SetClock replaces the time source. Tests only.
func (r *Registry) SetClock(now func() time.Time) {
	r.now = now
}

// IdleTimeout returns the configured idle threshold.
func (r *Registry) IdleTimeout() time.Duration {
	return r.opts.IdleTimeout
}

// CreateContext asks the engine for a new context and registers it for
// userID. The engine call runs with its own timeout and is not cancelled
// when ctx is, so a context created for a caller that went away is still
// tracked (and later reclaimed) instead of leaking in the engine.
func (r *Registry) CreateContext(ctx context.Context, userID string) (domain.ContextHandle, error) {
	if userID == "" {
		return domain.ContextHandle{}, domain.E(domain.KindUnauthorized, "authentication required", nil)
	}
	if err := r.reserve(userID); err != nil {
		r.metrics.ContextOpened("quota")
		return domain.ContextHandle{}, err
	}

	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.opts.CreateTimeout)
	id, err := r.engine.CreateContext(cctx, userID)
	cancel()

	if err == nil && id == "" {
		err = domain.E(domain.KindEngineUnavailable, "browser engine returned no context", nil)
	}
	if err != nil {
		r.unreserve(userID)
		r.metrics.ContextOpened("error")
		return domain.ContextHandle{}, domain.E(domain.KindEngineUnavailable, "browser engine unavailable", err)
	}

	now := r.now()
	h := domain.ContextHandle{
		ID:             id,
		UserID:         userID,
		CreatedAt:      now,
		LastActivityAt: now,
		Live:           true,
	}

	r.mu.Lock()
	r.inflight[userID]--
	if r.inflight[userID] <= 0 {
		delete(r.inflight, userID)
	}
	if _, exists := r.handles[id]; exists {
		r.mu.Unlock()
		r.metrics.ContextOpened("error")
		return domain.ContextHandle{}, domain.E(domain.KindEngineUnavailable, "browser engine reused a context id", nil)
	}
	r.handles[id] = &entry{h: h, mirroredAt: h.CreatedAt}
	r.live[userID]++
	total := len(r.handles)
	r.mu.Unlock()

	r.metrics.ContextOpened("ok")
	r.metrics.SetLiveContexts(total)
	r.mirrorSave(h)

	r.log.Debug("context registered",
		logger.String("handle", id),
		logger.String("user_id", userID))

	return h, nil
}

func (r *Registry) reserve(userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.live[userID]+r.inflight[userID] >= r.opts.MaxTabs {
		return domain.E(domain.KindQuotaExceeded, "too many open contexts", nil)
	}
	r.inflight[userID]++
	return nil
}

func (r *Registry) unreserve(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.inflight[userID]--
	if r.inflight[userID] <= 0 {
		delete(r.inflight, userID)
	}
}

func (r *Registry) lookup(handle string) *entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.handles[handle]
}

// Touch records activity on a live handle.
func (r *Registry) Touch(handle string) error {
	e := r.lookup(handle)
	if e == nil {
		return domain.E(domain.KindNotFound, "context not found", nil)
	}

	e.mu.Lock()
	if !e.h.Live {
		e.mu.Unlock()
		return domain.E(domain.KindNotFound, "context not found", nil)
	}
	now := r.now()
	e.h.LastActivityAt = now
	refresh := now.Sub(e.mirroredAt) >= r.opts.MirrorRefresh
	if refresh {
		e.mirroredAt = now
	}
	h := e.h
	e.mu.Unlock()

	// keeps the mirrored copy from expiring while the handle is in use
	if refresh {
		r.mirrorSave(h)
	}
	return nil
}

// Validate checks that handle is live, owned by userID and not idle past
// the threshold. An idle handle is destroyed on the spot.
func (r *Registry) Validate(handle, userID string) error {
	if userID == "" {
		return domain.E(domain.KindUnauthorized, "authentication required", nil)
	}
	e := r.lookup(handle)
	if e == nil {
		return domain.E(domain.KindNotFound, "context not found", nil)
	}

	e.mu.Lock()
	owner := e.h.UserID
	live := e.h.Live
	idle := e.h.IdleFor(r.now())
	e.mu.Unlock()

	if owner != userID {
		return domain.E(domain.KindForbidden, "context belongs to another user", nil)
	}
	if !live {
		return domain.E(domain.KindNotFound, "context not found", nil)
	}
	if idle > r.opts.IdleTimeout {
		r.remove(context.Background(), handle, true, ReasonExpired)
		return domain.E(domain.KindExpired, "context expired", nil)
	}
	return nil
}

// Destroy removes handle and releases it in the engine. Unknown handles
// are ignored.
func (r *Registry) Destroy(ctx context.Context, handle string) error {
	r.remove(ctx, handle, true, ReasonClosed)
	return nil
}

// DestroyOwned is Destroy restricted to the owner of the handle.
func (r *Registry) DestroyOwned(ctx context.Context, handle, userID string) error {
	if userID == "" {
		return domain.E(domain.KindUnauthorized, "authentication required", nil)
	}
	if e := r.lookup(handle); e != nil {
		e.mu.Lock()
		owner := e.h.UserID
		e.mu.Unlock()
		if owner != userID {
			return domain.E(domain.KindForbidden, "context belongs to another user", nil)
		}
	}
	return r.Destroy(ctx, handle)
}

// MarkDead removes a handle the engine reported as gone. The engine is
// not asked to release it.
func (r *Registry) MarkDead(handle string) {
	r.remove(context.Background(), handle, false, ReasonGone)
}

// remove unregisters handle and, when it was still live, releases it in
// the engine and drops the mirror. Returns false when nothing was removed.
func (r *Registry) remove(ctx context.Context, handle string, release bool, reason string) bool {
	r.mu.Lock()
	e, ok := r.handles[handle]
	if !ok {
		r.mu.Unlock()
		return false
	}
	delete(r.handles, handle)
	total := len(r.handles)
	r.mu.Unlock()

	e.mu.Lock()
	wasLive := e.h.Live
	e.h.Live = false
	h := e.h
	e.mu.Unlock()

	if !wasLive {
		return false
	}

	r.mu.Lock()
	r.live[h.UserID]--
	if r.live[h.UserID] <= 0 {
		delete(r.live, h.UserID)
	}
	r.mu.Unlock()

	r.metrics.ContextClosed(reason)
	r.metrics.SetLiveContexts(total)

	if release {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.opts.ReleaseTimeout)
		if err := r.engine.ReleaseContext(rctx, handle); err != nil {
			r.log.Warn("engine release failed",
				logger.String("handle", handle),
				logger.Error(err))
		}
		cancel()
	}
	r.mirrorDelete(h)

	r.log.Debug("context removed",
		logger.String("handle", handle),
		logger.String("user_id", h.UserID),
		logger.String("reason", reason))
	return true
}

// Sweep destroys every handle idle past the threshold and returns how many
// were reclaimed.
func (r *Registry) Sweep(ctx context.Context) int {
	now := r.now()

	r.mu.RLock()
	entries := make(map[string]*entry, len(r.handles))
	for id, e := range r.handles {
		entries[id] = e
	}
	r.mu.RUnlock()

	var stale []string
	for id, e := range entries {
		e.mu.Lock()
		if e.h.Live && e.h.IdleFor(now) > r.opts.IdleTimeout {
			stale = append(stale, id)
		}
		e.mu.Unlock()
	}

	reclaimed := 0
	for _, id := range stale {
		if ctx.Err() != nil {
			break
		}
		if r.remove(ctx, id, true, ReasonIdle) {
			reclaimed++
		}
	}
	return reclaimed
}

// List returns the live handles of userID, oldest first.
func (r *Registry) List(userID string) []domain.ContextHandle {
	r.mu.RLock()
	entries := make([]*entry, 0, r.live[userID])
	for _, e := range r.handles {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	out := make([]domain.ContextHandle, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		if e.h.Live && e.h.UserID == userID {
			out = append(out, e.h)
		}
		e.mu.Unlock()
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Count returns the number of live handles across all users.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}

// Users returns the number of users holding at least one handle.
func (r *Registry) Users() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.live)
}

// Restore registers handles loaded from the mirror at startup. Handles
// already known, not live or without owner are skipped. Activity is reset
// to now so restored handles get a full idle window. Handles beyond a
// user's MaxTabs are released in the engine, oldest activity first.
func (r *Registry) Restore(handles []domain.ContextHandle) int {
	now := r.now()

	// most recently active first, so the quota keeps those
	ordered := append([]domain.ContextHandle(nil), handles...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].LastActivityAt.After(ordered[j].LastActivityAt)
	})

	r.mu.Lock()
	restored := 0
	var over []domain.ContextHandle
	for _, h := range ordered {
		if !h.Live || h.ID == "" || h.UserID == "" {
			continue
		}
		if _, exists := r.handles[h.ID]; exists {
			continue
		}
		if r.live[h.UserID]+r.inflight[h.UserID] >= r.opts.MaxTabs {
			over = append(over, h)
			continue
		}
		h.LastActivityAt = now
		r.handles[h.ID] = &entry{h: h, mirroredAt: now}
		r.live[h.UserID]++
		restored++
	}
	total := len(r.handles)
	r.mu.Unlock()

	r.metrics.SetLiveContexts(total)

	for _, h := range over {
		r.log.Warn("dropping restored context over quota",
			logger.String("handle", h.ID),
			logger.String("user_id", h.UserID))
		ctx, cancel := context.WithTimeout(context.Background(), r.opts.ReleaseTimeout)
		if err := r.engine.ReleaseContext(ctx, h.ID); err != nil {
			r.log.Warn("failed to release context",
				logger.String("handle", h.ID),
				logger.Error(err))
		}
		cancel()
		r.mirrorDelete(h)
	}
	return restored
}

func (r *Registry) mirrorSave(h domain.ContextHandle) {
	if r.mirror == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.opts.MirrorTimeout)
	defer cancel()
	if err := r.mirror.SaveHandle(ctx, h); err != nil {
		r.log.Warn("failed to mirror context",
			logger.String("handle", h.ID),
			logger.Error(err))
	}
}

func (r *Registry) mirrorDelete(h domain.ContextHandle) {
	if r.mirror == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.opts.MirrorTimeout)
	defer cancel()
	if err := r.mirror.DeleteHandle(ctx, h); err != nil {
		r.log.Warn("failed to drop mirrored context",
			logger.String("handle", h.ID),
			logger.Error(err))
	}
}

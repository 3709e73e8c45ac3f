package history

import (
	"context"
	"strings"
	"time"

	"github.com/MrSnakeDoc/tabgate/internal/domain"
	"github.com/MrSnakeDoc/tabgate/internal/logger"
	"github.com/MrSnakeDoc/tabgate/internal/metrics"
	"github.com/google/uuid"
)

// DefaultTokenWindow is how long an idempotency token is honoured.
const DefaultTokenWindow = 10 * time.Minute

// TokenCache remembers which entry an idempotency token produced so
// repeats can be answered without a write. It is an optimisation only:
// the store enforces uniqueness on its own.
type TokenCache interface {
	LookupToken(ctx context.Context, userID, token string) (string, error)
	RememberToken(ctx context.Context, userID, token, entryID string, ttl time.Duration) (bool, error)
	ForgetTokens(ctx context.Context, userID string) error
}

// RecordInput is one page visit to append.
type RecordInput struct {
	UserID         string
	URL            string
	Title          string
	Favicon        string
	IdempotencyKey string
}

// Recorder appends history entries.
type Recorder struct {
	store   domain.HistoryStore
	tokens  TokenCache
	log     logger.Logger
	metrics *metrics.Metrics
	window  time.Duration
	now     func() time.Time
	newID   func() string
}

// NewRecorder creates a recorder. tokens and m may be nil.
func NewRecorder(store domain.HistoryStore, tokens TokenCache, log logger.Logger, m *metrics.Metrics, window time.Duration) *Recorder {
	if window <= 0 {
		window = DefaultTokenWindow
	}
	return &Recorder{
		store:   store,
		tokens:  tokens,
		log:     log,
		metrics: m,
		window:  window,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Window returns the idempotency retention window.
func (r *Recorder) Window() time.Duration { return r.window }

// Record appends a visit for in.UserID. With an idempotency key, a repeat
// within the window returns the entry created the first time.
func (r *Recorder) Record(ctx context.Context, in RecordInput) (domain.HistoryEntry, error) {
	if in.UserID == "" {
		return domain.HistoryEntry{}, domain.E(domain.KindUnauthorized, "authentication required", nil)
	}
	url := strings.TrimSpace(in.URL)
	if url == "" {
		return domain.HistoryEntry{}, domain.E(domain.KindInvalidArgument, "url is required", nil)
	}

	if in.IdempotencyKey != "" {
		if e, ok := r.cached(ctx, in.UserID, in.IdempotencyKey); ok {
			r.metrics.HistoryRecord("duplicate")
			return e, nil
		}
	}

	now := r.now().UTC()
	entry := domain.HistoryEntry{
		ID:        r.newID(),
		UserID:    in.UserID,
		URL:       url,
		Title:     domain.StringPtr(strings.TrimSpace(in.Title)),
		Favicon:   domain.StringPtr(strings.TrimSpace(in.Favicon)),
		VisitedAt: now,
	}

	stored, inserted, err := r.store.Insert(ctx, domain.HistoryInsert{
		Entry:          entry,
		Token:          in.IdempotencyKey,
		TokenExpiresAt: now.Add(r.window),
	})
	if err != nil {
		r.metrics.HistoryRecord("error")
		r.log.Error("failed to record history",
			logger.String("user_id", in.UserID),
			logger.Error(err))
		return domain.HistoryEntry{}, domain.E(domain.KindStoreUnavailable, "history could not be saved", err)
	}

	if inserted {
		r.metrics.HistoryRecord("ok")
	} else {
		r.metrics.HistoryRecord("duplicate")
	}

	if in.IdempotencyKey != "" && r.tokens != nil {
		if _, err := r.tokens.RememberToken(ctx, in.UserID, in.IdempotencyKey, stored.ID, r.window); err != nil {
			r.log.Warn("failed to cache idempotency token",
				logger.String("user_id", in.UserID),
				logger.Error(err))
		}
	}

	return stored, nil
}

func (r *Recorder) cached(ctx context.Context, userID, token string) (domain.HistoryEntry, bool) {
	if r.tokens == nil {
		return domain.HistoryEntry{}, false
	}
	id, err := r.tokens.LookupToken(ctx, userID, token)
	if err != nil {
		r.log.Warn("idempotency cache lookup failed", logger.Error(err))
		return domain.HistoryEntry{}, false
	}
	if id == "" {
		return domain.HistoryEntry{}, false
	}
	// the entry may have been cleared since; fall through to the store
	e, err := r.store.Get(ctx, userID, id)
	if err != nil {
		return domain.HistoryEntry{}, false
	}
	return e, true
}

// OnNavigation records a confirmed navigation.
func (r *Recorder) OnNavigation(ctx context.Context, ev domain.NavigationEvent) (domain.HistoryEntry, error) {
	return r.Record(ctx, RecordInput{
		UserID:         ev.UserID,
		URL:            ev.URL,
		Title:          ev.Title,
		Favicon:        ev.Favicon,
		IdempotencyKey: ev.IdempotencyKey,
	})
}

// Clear deletes the whole history of userID and forgets its tokens.
func (r *Recorder) Clear(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, domain.E(domain.KindUnauthorized, "authentication required", nil)
	}
	n, err := r.store.Clear(ctx, userID)
	if err != nil {
		return 0, domain.E(domain.KindStoreUnavailable, "history could not be cleared", err)
	}
	if r.tokens != nil {
		if err := r.tokens.ForgetTokens(ctx, userID); err != nil {
			r.log.Warn("failed to drop idempotency tokens",
				logger.String("user_id", userID),
				logger.Error(err))
		}
	}
	r.log.Info("history cleared",
		logger.String("user_id", userID),
		logger.Int64("deleted", n))
	return n, nil
}

// ExpireTokens drops idempotency keys older than the window. Called by the
// garbage collector.
func (r *Recorder) ExpireTokens(ctx context.Context) (int64, error) {
	return r.store.ExpireTokens(ctx, r.now())
}

package history

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/MrSnakeDoc/tabgate/internal/domain"
	"github.com/MrSnakeDoc/tabgate/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRecorder(store *memStore, tokens TokenCache) (*Recorder, *time.Time) {
	r := NewRecorder(store, tokens, logger.NewNop(), nil, time.Minute)
	now := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }
	n := 0
	r.newID = func() string { n++; return fmt.Sprintf("id-%d", n) }
	return r, &now
}

func TestRecord_Validation(t *testing.T) {
	r, _ := newTestRecorder(&memStore{}, nil)

	_, err := r.Record(context.Background(), RecordInput{URL: "https://example.com"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = r.Record(context.Background(), RecordInput{UserID: "u1", URL: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestRecord_ThenListNewestFirst(t *testing.T) {
	store := &memStore{}
	r, now := newTestRecorder(store, nil)
	reader := NewReader(store)
	ctx := context.Background()

	e1, err := r.Record(ctx, RecordInput{UserID: "u1", URL: "https://one.example", Title: "One"})
	require.NoError(t, err)
	*now = now.Add(time.Second)
	e2, err := r.Record(ctx, RecordInput{UserID: "u1", URL: "https://two.example"})
	require.NoError(t, err)
	_, err = r.Record(ctx, RecordInput{UserID: "u2", URL: "https://other.example"})
	require.NoError(t, err)

	got, err := reader.List(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, e2.ID, got[0].ID)
	assert.Equal(t, e1.ID, got[1].ID)
	require.NotNil(t, got[1].Title)
	assert.Equal(t, "One", *got[1].Title)
	assert.Nil(t, got[0].Title)
	assert.Nil(t, got[0].Favicon)
}

func TestRecord_SameInstantKeepsInsertionOrder(t *testing.T) {
	store := &memStore{}
	r, _ := newTestRecorder(store, nil)
	reader := NewReader(store)
	ctx := context.Background()

	e1, _ := r.Record(ctx, RecordInput{UserID: "u1", URL: "https://one.example"})
	e2, _ := r.Record(ctx, RecordInput{UserID: "u1", URL: "https://two.example"})

	got, err := reader.List(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, e2.ID, got[0].ID)
	assert.Equal(t, e1.ID, got[1].ID)
}

func TestRecord_Idempotent(t *testing.T) {
	tests := []struct {
		name   string
		tokens *memTokens
	}{
		{"store only", nil},
		{"with token cache", &memTokens{}},
		{"token cache down", &memTokens{fail: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memStore{}
			var tokens TokenCache
			if tt.tokens != nil {
				tokens = tt.tokens
			}
			r, now := newTestRecorder(store, tokens)
			ctx := context.Background()

			in := RecordInput{UserID: "u1", URL: "https://example.com", IdempotencyKey: "tok-1"}
			first, err := r.Record(ctx, in)
			require.NoError(t, err)

			*now = now.Add(10 * time.Second)
			second, err := r.Record(ctx, in)
			require.NoError(t, err)

			assert.Equal(t, first.ID, second.ID)
			assert.Equal(t, 1, store.inserts)

			list, err := NewReader(store).List(ctx, "u1", 10)
			require.NoError(t, err)
			assert.Len(t, list, 1)
		})
	}
}

func TestRecord_TokenAfterClear(t *testing.T) {
	store := &memStore{}
	tokens := &memTokens{}
	r, _ := newTestRecorder(store, tokens)
	ctx := context.Background()

	in := RecordInput{UserID: "u1", URL: "https://example.com", IdempotencyKey: "tok"}
	_, err := r.Record(ctx, in)
	require.NoError(t, err)

	n, err := r.Clear(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = r.Record(ctx, in)
	require.NoError(t, err)

	list, err := NewReader(store).List(ctx, "u1", 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestRecord_StoreFailure(t *testing.T) {
	store := &memStore{fail: errors.New("disk I/O error")}
	r, _ := newTestRecorder(store, nil)

	_, err := r.Record(context.Background(), RecordInput{UserID: "u1", URL: "https://example.com"})
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.NotContains(t, domain.MessageOf(err), "disk")
}

func TestOnNavigation(t *testing.T) {
	store := &memStore{}
	r, _ := newTestRecorder(store, nil)

	e, err := r.OnNavigation(context.Background(), domain.NavigationEvent{
		UserID: "u1", Handle: "h1", URL: "https://example.com", Title: "Example",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", e.URL)

	list, err := NewReader(store).List(context.Background(), "u1", 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Example", *list[0].Title)
}

func TestExpireTokens(t *testing.T) {
	store := &memStore{}
	r, now := newTestRecorder(store, nil)
	ctx := context.Background()

	_, err := r.Record(ctx, RecordInput{UserID: "u1", URL: "https://example.com", IdempotencyKey: "tok"})
	require.NoError(t, err)

	n, err := r.ExpireTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	*now = now.Add(2 * time.Minute)
	n, err = r.ExpireTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestReader_List(t *testing.T) {
	store := &memStore{}
	r, now := newTestRecorder(store, nil)
	reader := NewReader(store)
	ctx := context.Background()

	for i := 0; i < 120; i++ {
		*now = now.Add(time.Second)
		_, err := r.Record(ctx, RecordInput{UserID: "u1", URL: fmt.Sprintf("https://e%d.example", i)})
		require.NoError(t, err)
	}

	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{"default", 0, DefaultLimit},
		{"explicit", 5, 5},
		{"clamped high", 1000, MaxLimit},
		{"clamped low", -3, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := reader.List(ctx, "u1", tt.limit)
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}

	_, err := reader.List(ctx, "", 10)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	empty, err := reader.List(ctx, "nobody", 10)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestReader_StoreFailure(t *testing.T) {
	reader := NewReader(&memStore{fail: errors.New("boom")})
	_, err := reader.List(context.Background(), "u1", 10)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

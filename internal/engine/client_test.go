package engine

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrSnakeDoc/tabgate/internal/domain"
	"github.com/MrSnakeDoc/tabgate/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Options{BaseURL: srv.URL, Timeout: 2 * time.Second}, logger.NewNop(), nil)
}

func TestCreateContext_HandleShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"handle", `{"handle":"h1"}`, "h1"},
		{"id", `{"id":"h2"}`, "h2"},
		{"context_id", `{"context_id":"h3"}`, "h3"},
		{"wrapped page_id", `{"status":"success","data":{"page_id":"h4"}}`, "h4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotUser string
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/context", r.URL.Path)
				var in map[string]string
				_ = json.NewDecoder(r.Body).Decode(&in)
				gotUser = in["userId"]
				_, _ = w.Write([]byte(tt.body))
			})

			handle, err := c.CreateContext(context.Background(), "u1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, handle)
			assert.Equal(t, "u1", gotUser)
		})
	}
}

func TestCreateContext_NoHandle(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"success","data":{}}`))
	})

	_, err := c.CreateContext(context.Background(), "u1")
	assert.ErrorIs(t, err, domain.ErrEngineUnavailable)
}

func TestNavigate(t *testing.T) {
	var payload map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/navigate", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&payload)
		_, _ = w.Write([]byte(`{"status":"success","data":{"title":"Example","favicon":"https://example.com/favicon.ico"}}`))
	})

	res, err := c.Navigate(context.Background(), NavigateRequest{
		Handle:    "h1",
		URL:       "https://example.com",
		WaitUntil: "load",
		Options:   NavigateOptions{ZoomLevel: 100, JavaScript: true},
	})
	require.NoError(t, err)
	assert.Equal(t, "Example", res.Title)
	assert.Equal(t, "https://example.com/favicon.ico", res.Favicon)
	assert.Equal(t, "https://example.com", res.URL)

	assert.Equal(t, "h1", payload["handle"])
	assert.Equal(t, "h1", payload["page_id"])
	assert.Equal(t, "load", payload["waitUntil"])
	opts, ok := payload["options"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(100), opts["zoomLevel"])
}

func TestNavigate_Classification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind domain.Kind
		wantGone bool
	}{
		{"gone", http.StatusNotFound, `{"error":"no such page"}`, domain.KindEngineUnavailable, true},
		{"gone 410", http.StatusGone, ``, domain.KindEngineUnavailable, true},
		{"blocked", http.StatusForbidden, `{"error":"denied"}`, domain.KindBlockedByTarget, false},
		{"legal", http.StatusUnavailableForLegalReasons, ``, domain.KindBlockedByTarget, false},
		{"timeout", http.StatusGatewayTimeout, ``, domain.KindTimeout, false},
		{"server error", http.StatusInternalServerError, `oops`, domain.KindEngineUnavailable, false},
		{"error body", http.StatusOK, `{"status":"error","error":"crashed"}`, domain.KindEngineUnavailable, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.Navigate(context.Background(), NavigateRequest{Handle: "h1", URL: "https://example.com"})
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, domain.KindOf(err))
			assert.Equal(t, tt.wantGone, errors.Is(err, ErrContextGone))
		})
	}
}

func TestNavigate_ClientTimeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Navigate(ctx, NavigateRequest{Handle: "h1", URL: "https://example.com"})
	assert.ErrorIs(t, err, domain.ErrTimeout)
}

func TestNavigate_Unreachable(t *testing.T) {
	c := New(Options{BaseURL: "http://127.0.0.1:1", Timeout: time.Second}, logger.NewNop(), nil)

	_, err := c.Navigate(context.Background(), NavigateRequest{Handle: "h1", URL: "https://example.com"})
	assert.ErrorIs(t, err, domain.ErrEngineUnavailable)
}

func TestReleaseContext(t *testing.T) {
	var path string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		path = r.URL.Path
		w.WriteHeader(http.StatusNotFound)
	})

	assert.NoError(t, c.ReleaseContext(context.Background(), "h1"), "an unknown context is already released")
	assert.Equal(t, "/context/h1", path)
}

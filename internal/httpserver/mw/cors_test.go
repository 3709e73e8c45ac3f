package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCORS(t *testing.T) {
	tests := []struct {
		name       string
		origins    []string
		origin     string
		preflight  bool
		wantAllow  string
		wantCode   int
		wantCalled bool
	}{
		{"no origin header", []string{"https://app.example"}, "", false, "", http.StatusOK, true},
		{"allowed origin", []string{"https://app.example/"}, "https://app.example", false, "https://app.example", http.StatusOK, true},
		{"unknown origin", []string{"https://app.example"}, "https://evil.example", false, "", http.StatusOK, true},
		{"wildcard", []string{"*"}, "https://any.example", false, "https://any.example", http.StatusOK, true},
		{"preflight", []string{"https://app.example"}, "https://app.example", true, "https://app.example", http.StatusNoContent, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			h := CORS(tt.origins)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			}))

			method := http.MethodGet
			if tt.preflight {
				method = http.MethodOptions
			}
			req := httptest.NewRequest(method, "/navigate", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantCalled, called)
			assert.Equal(t, tt.wantAllow, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

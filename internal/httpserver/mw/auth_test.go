package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/tabgate/internal/logger"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func TestAuth(t *testing.T) {
	future := time.Now().Add(time.Hour).Unix()
	past := time.Now().Add(-time.Hour).Unix()

	tests := []struct {
		name     string
		header   func(t *testing.T) string
		wantCode int
		wantUser string
	}{
		{
			name:     "missing header",
			header:   func(t *testing.T) string { return "" },
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "not bearer",
			header:   func(t *testing.T) string { return "Basic dTE6cHc=" },
			wantCode: http.StatusUnauthorized,
		},
		{
			name: "subject claim",
			header: func(t *testing.T) string {
				return "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"sub": "u1", "exp": future, "iss": "tabgate"})
			},
			wantCode: http.StatusOK,
			wantUser: "u1",
		},
		{
			name: "userId claim",
			header: func(t *testing.T) string {
				return "bearer " + sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"userId": "u2", "iss": "tabgate"})
			},
			wantCode: http.StatusOK,
			wantUser: "u2",
		},
		{
			name: "expired",
			header: func(t *testing.T) string {
				return "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"sub": "u1", "exp": past, "iss": "tabgate"})
			},
			wantCode: http.StatusUnauthorized,
		},
		{
			name: "wrong secret",
			header: func(t *testing.T) string {
				return "Bearer " + sign(t, jwt.SigningMethodHS256, []byte("another-secret-another-secret-xx"), jwt.MapClaims{"sub": "u1", "iss": "tabgate"})
			},
			wantCode: http.StatusUnauthorized,
		},
		{
			name: "wrong issuer",
			header: func(t *testing.T) string {
				return "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"sub": "u1", "iss": "someone-else"})
			},
			wantCode: http.StatusUnauthorized,
		},
		{
			name: "HS512 rejected",
			header: func(t *testing.T) string {
				return "Bearer " + sign(t, jwt.SigningMethodHS512, []byte(testSecret), jwt.MapClaims{"sub": "u1", "iss": "tabgate"})
			},
			wantCode: http.StatusUnauthorized,
		},
		{
			name: "no subject",
			header: func(t *testing.T) string {
				return "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"iss": "tabgate"})
			},
			wantCode: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotUser string
			h := Auth(testSecret, "tabgate", logger.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotUser = UserID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/contexts", nil)
			if v := tt.header(t); v != "" {
				req.Header.Set("Authorization", v)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantUser, gotUser)
			if tt.wantCode == http.StatusUnauthorized {
				assert.Contains(t, rec.Body.String(), `"kind":"Unauthorized"`)
			}
		})
	}
}

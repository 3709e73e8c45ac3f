package mw

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/MrSnakeDoc/tabgate/internal/domain"
	"github.com/MrSnakeDoc/tabgate/internal/logger"
)

type ctxKey int

const userIDKey ctxKey = iota

// UserID returns the authenticated user of the request, or "".
func UserID(ctx context.Context) string {
	v, _ := ctx.Value(userIDKey).(string)
	return v
}

// WithUserID returns ctx carrying userID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// Auth validates an HS256 bearer token and stores its subject as the
// caller's user id. The "userId" claim is accepted when "sub" is absent.
func Auth(secret, issuer string, log logger.Logger) func(http.Handler) http.Handler {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	parser := jwt.NewParser(opts...)
	key := []byte(secret)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				writeError(w, http.StatusUnauthorized, domain.KindUnauthorized, "authentication required")
				return
			}

			claims := jwt.MapClaims{}
			_, err := parser.ParseWithClaims(strings.TrimSpace(parts[1]), claims, func(*jwt.Token) (any, error) {
				return key, nil
			})
			if err != nil {
				log.Debug("rejected bearer token",
					logger.String("remote_ip", r.RemoteAddr),
					logger.Error(err))
				writeError(w, http.StatusUnauthorized, domain.KindUnauthorized, "invalid token")
				return
			}

			userID, _ := claims.GetSubject()
			if userID == "" {
				userID, _ = claims["userId"].(string)
			}
			if userID == "" {
				writeError(w, http.StatusUnauthorized, domain.KindUnauthorized, "token has no subject")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// writeError writes the API error envelope.
func writeError(w http.ResponseWriter, status int, kind domain.Kind, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": msg,
		"kind":  string(kind),
	})
}

package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/MrSnakeDoc/tabgate/internal/domain"
	"github.com/MrSnakeDoc/tabgate/internal/httpserver/deps"
	"github.com/MrSnakeDoc/tabgate/internal/logger"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindExpired:
		return http.StatusGone
	case domain.KindQuotaExceeded:
		return http.StatusTooManyRequests
	case domain.KindInvalidArgument:
		return http.StatusBadRequest
	case domain.KindEngineUnavailable, domain.KindBlockedByTarget:
		return http.StatusBadGateway
	case domain.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the error envelope. The underlying cause is logged,
// never sent.
func writeError(w http.ResponseWriter, r *http.Request, d deps.Deps, err error) {
	kind := domain.KindOf(err)
	status := statusFor(kind)

	if status >= http.StatusInternalServerError {
		d.Logger.Error("request failed",
			logger.String("path", r.URL.Path),
			logger.String("kind", string(kind)),
			logger.Error(err))
	} else {
		d.Logger.Debug("request rejected",
			logger.String("path", r.URL.Path),
			logger.String("kind", string(kind)),
			logger.Error(err))
	}

	if kind == domain.KindQuotaExceeded {
		w.Header().Set("Retry-After", "60")
	}
	writeJSON(w, status, errorResponse{
		Error: domain.MessageOf(err),
		Kind:  string(kind),
	})
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched
// when optional is true.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, optional bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) && optional {
		return nil
	}
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return domain.E(domain.KindInvalidArgument, "request body too large", err)
		}
		return domain.E(domain.KindInvalidArgument, "invalid JSON body", err)
	}
	return nil
}

package handlers

import (
	"net/http"
	"strings"

	"github.com/MrSnakeDoc/tabgate/internal/domain"
	"github.com/MrSnakeDoc/tabgate/internal/gateway"
	"github.com/MrSnakeDoc/tabgate/internal/httpserver/deps"
	"github.com/MrSnakeDoc/tabgate/internal/httpserver/mw"
)

const maxIdempotencyKeyLen = 128

type navigateRequest struct {
	Handle    string `json:"handle"`
	URL       string `json:"url"`
	WaitUntil string `json:"waitUntil"`
}

type navigateResponse struct {
	URL             string               `json:"url"`
	Title           string               `json:"title,omitempty"`
	Favicon         string               `json:"favicon,omitempty"`
	History         *domain.HistoryEntry `json:"history,omitempty"`
	HistoryRecorded bool                 `json:"historyRecorded"`
	HistoryError    string               `json:"historyError,omitempty"`
}

var waitUntilValues = map[string]bool{
	"":                 true,
	"load":             true,
	"domcontentloaded": true,
	"networkidle":      true,
	"commit":           true,
}

// Navigate loads a URL in one of the caller's contexts.
func Navigate(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req navigateRequest
		if err := decodeJSON(w, r, &req, false); err != nil {
			writeError(w, r, d, err)
			return
		}
		if strings.TrimSpace(req.Handle) == "" {
			writeError(w, r, d, domain.E(domain.KindInvalidArgument, "handle is required", nil))
			return
		}
		if !waitUntilValues[strings.ToLower(req.WaitUntil)] {
			writeError(w, r, d, domain.E(domain.KindInvalidArgument, "waitUntil must be load, domcontentloaded, networkidle or commit", nil))
			return
		}
		key, err := idempotencyKey(r)
		if err != nil {
			writeError(w, r, d, err)
			return
		}

		res, err := d.Navigation.Navigate(r.Context(), gateway.NavigateInput{
			Handle:         req.Handle,
			UserID:         mw.UserID(r.Context()),
			URL:            req.URL,
			WaitUntil:      strings.ToLower(req.WaitUntil),
			IdempotencyKey: key,
		})
		if err != nil {
			writeError(w, r, d, err)
			return
		}

		resp := navigateResponse{
			URL:             res.URL,
			Title:           res.Title,
			Favicon:         res.Favicon,
			History:         res.History,
			HistoryRecorded: res.History != nil,
		}
		if res.HistoryErr != nil {
			resp.HistoryError = domain.MessageOf(res.HistoryErr)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func idempotencyKey(r *http.Request) (string, error) {
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if len(key) > maxIdempotencyKeyLen {
		return "", domain.E(domain.KindInvalidArgument, "Idempotency-Key is too long", nil)
	}
	return key, nil
}

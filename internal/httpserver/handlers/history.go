package handlers

import (
	"net/http"
	"strconv"

	"github.com/MrSnakeDoc/tabgate/internal/domain"
	"github.com/MrSnakeDoc/tabgate/internal/history"
	"github.com/MrSnakeDoc/tabgate/internal/httpserver/deps"
	"github.com/MrSnakeDoc/tabgate/internal/httpserver/mw"
)

type historyListResponse struct {
	History []domain.HistoryEntry `json:"history"`
}

type historyEntryResponse struct {
	History domain.HistoryEntry `json:"history"`
}

type historyRecordRequest struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Favicon string `json:"favicon"`
}

type historyClearResponse struct {
	Deleted int64 `json:"deleted"`
}

// ListHistory returns the caller's history, newest first.
func ListHistory(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				writeError(w, r, d, domain.E(domain.KindInvalidArgument, "limit must be an integer", err))
				return
			}
			limit = n
		}

		entries, err := d.Reader.List(r.Context(), mw.UserID(r.Context()), limit)
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, historyListResponse{History: entries})
	}
}

// RecordHistory appends an entry explicitly.
func RecordHistory(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req historyRecordRequest
		if err := decodeJSON(w, r, &req, false); err != nil {
			writeError(w, r, d, err)
			return
		}
		key, err := idempotencyKey(r)
		if err != nil {
			writeError(w, r, d, err)
			return
		}

		entry, err := d.Recorder.Record(r.Context(), history.RecordInput{
			UserID:         mw.UserID(r.Context()),
			URL:            req.URL,
			Title:          req.Title,
			Favicon:        req.Favicon,
			IdempotencyKey: key,
		})
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusCreated, historyEntryResponse{History: entry})
	}
}

// ClearHistory deletes the caller's whole history.
func ClearHistory(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := d.Recorder.Clear(r.Context(), mw.UserID(r.Context()))
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, historyClearResponse{Deleted: n})
	}
}

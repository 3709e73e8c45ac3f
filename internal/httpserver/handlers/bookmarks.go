package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/tabgate/internal/domain"
	"github.com/MrSnakeDoc/tabgate/internal/httpserver/deps"
	"github.com/MrSnakeDoc/tabgate/internal/httpserver/mw"
	"github.com/MrSnakeDoc/tabgate/internal/userdata"
)

type bookmarksResponse struct {
	Bookmarks []domain.Bookmark `json:"bookmarks"`
}

type bookmarkResponse struct {
	Bookmark domain.Bookmark `json:"bookmark"`
}

// ListBookmarks returns the caller's bookmarks. ?folder= filters by
// folder, ?q= ranks them against a query instead.
func ListBookmarks(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := mw.UserID(r.Context())
		q := r.URL.Query()

		if query := strings.TrimSpace(q.Get("q")); query != "" {
			matches, err := d.Bookmarks.Search(r.Context(), userID, query)
			if err != nil {
				writeError(w, r, d, err)
				return
			}
			out := make([]domain.Bookmark, 0, len(matches))
			for _, m := range matches {
				out = append(out, m.Bookmark)
			}
			writeJSON(w, http.StatusOK, bookmarksResponse{Bookmarks: out})
			return
		}

		var folder *string
		if q.Has("folder") {
			f := q.Get("folder")
			folder = &f
		}
		list, err := d.Bookmarks.List(r.Context(), userID, folder)
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, bookmarksResponse{Bookmarks: list})
	}
}

func CreateBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in userdata.BookmarkInput
		if err := decodeJSON(w, r, &in, false); err != nil {
			writeError(w, r, d, err)
			return
		}
		b, err := d.Bookmarks.Create(r.Context(), mw.UserID(r.Context()), in)
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusCreated, bookmarkResponse{Bookmark: b})
	}
}

func UpdateBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch domain.BookmarkPatch
		if err := decodeJSON(w, r, &patch, false); err != nil {
			writeError(w, r, d, err)
			return
		}
		b, err := d.Bookmarks.Update(r.Context(), mw.UserID(r.Context()), chi.URLParam(r, "id"), patch)
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, bookmarkResponse{Bookmark: b})
	}
}

func DeleteBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Bookmarks.Delete(r.Context(), mw.UserID(r.Context()), chi.URLParam(r, "id")); err != nil {
			writeError(w, r, d, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/tabgate/internal/domain"
	"github.com/MrSnakeDoc/tabgate/internal/httpserver/deps"
	"github.com/MrSnakeDoc/tabgate/internal/httpserver/mw"
)

type openContextRequest struct {
	UserID string `json:"userId"`
}

type openContextResponse struct {
	Handle string `json:"handle"`
}

type listContextsResponse struct {
	Contexts []domain.ContextHandle `json:"contexts"`
}

// OpenContext allocates a browser context for the caller. A userId in the
// body must match the authenticated user.
func OpenContext(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := mw.UserID(r.Context())

		var req openContextRequest
		if err := decodeJSON(w, r, &req, true); err != nil {
			writeError(w, r, d, err)
			return
		}
		if req.UserID != "" && req.UserID != userID {
			writeError(w, r, d, domain.E(domain.KindForbidden, "cannot open a context for another user", nil))
			return
		}

		h, err := d.Contexts.OpenContext(r.Context(), userID)
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, openContextResponse{Handle: h.ID})
	}
}

// ListContexts returns the live contexts of the caller.
func ListContexts(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, listContextsResponse{
			Contexts: d.Registry.List(mw.UserID(r.Context())),
		})
	}
}

// CloseContext destroys one of the caller's contexts.
func CloseContext(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		handle := chi.URLParam(r, "handle")
		if err := d.Contexts.CloseContext(r.Context(), handle, mw.UserID(r.Context())); err != nil {
			writeError(w, r, d, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

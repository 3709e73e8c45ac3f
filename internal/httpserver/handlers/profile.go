package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/tabgate/internal/domain"
	"github.com/MrSnakeDoc/tabgate/internal/httpserver/deps"
	"github.com/MrSnakeDoc/tabgate/internal/httpserver/mw"
	"github.com/MrSnakeDoc/tabgate/internal/userdata"
)

type profileResponse struct {
	Profile domain.Profile `json:"profile"`
}

func GetProfile(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := d.Profiles.Get(r.Context(), mw.UserID(r.Context()))
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, profileResponse{Profile: p})
	}
}

func PutProfile(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in userdata.ProfileInput
		if err := decodeJSON(w, r, &in, false); err != nil {
			writeError(w, r, d, err)
			return
		}
		p, err := d.Profiles.Upsert(r.Context(), mw.UserID(r.Context()), in)
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, profileResponse{Profile: p})
	}
}

package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/tabgate/internal/domain"
	"github.com/MrSnakeDoc/tabgate/internal/httpserver/deps"
	"github.com/MrSnakeDoc/tabgate/internal/httpserver/mw"
)

type settingsResponse struct {
	Settings domain.Settings `json:"settings"`
}

func GetSettings(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := d.Settings.Get(r.Context(), mw.UserID(r.Context()))
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, settingsResponse{Settings: s})
	}
}

func UpdateSettings(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch domain.SettingsPatch
		if err := decodeJSON(w, r, &patch, false); err != nil {
			writeError(w, r, d, err)
			return
		}
		s, err := d.Settings.Update(r.Context(), mw.UserID(r.Context()), patch)
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, settingsResponse{Settings: s})
	}
}

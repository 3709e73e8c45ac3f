package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/tabgate/internal/httpserver/deps"
)

const probeTimeout = 2 * time.Second

type readyzResponse struct {
	Ready  bool              `json:"ready"`
	Checks map[string]string `json:"checks"`
}

// Readyz reports whether the stores answer. The engine is not required:
// without it contexts fail with EngineUnavailable but history, bookmarks
// and settings still work.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		defer cancel()

		checks := map[string]string{}
		ready := true
		probe := func(name string, p deps.Pinger) {
			if p == nil {
				checks[name] = "not configured"
				return
			}
			if err := p.Ping(ctx); err != nil {
				checks[name] = "unavailable"
				ready = false
				return
			}
			checks[name] = "ok"
		}
		probe("database", d.Database)
		if d.Redis != nil {
			probe("redis", d.Redis)
		}

		status := http.StatusOK
		if !ready {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, readyzResponse{Ready: ready, Checks: checks})
	}
}

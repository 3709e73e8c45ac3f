package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/tabgate/internal/httpserver/deps"
)

// Metrics serves the Prometheus exposition.
func Metrics(d deps.Deps) http.HandlerFunc {
	h := d.Metrics.Handler()
	return h.ServeHTTP
}

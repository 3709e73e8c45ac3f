// Package routes collects the route groups of the service. Each file
// registers itself from init so server.go never lists routes by hand.
package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/tabgate/internal/httpserver/deps"
)

type (
	Registrar  func(r chi.Router, d deps.Deps)
	Middleware = func(http.Handler) http.Handler
)

type registration struct {
	register Registrar
	mws      []Middleware
}

var registrations []registration

// Register adds a route group, optionally wrapped in middlewares that
// apply to that group only.
func Register(reg Registrar, mws ...Middleware) {
	registrations = append(registrations, registration{register: reg, mws: mws})
}

// RegisterAll mounts every registered group on r. Called once per router.
func RegisterAll(r chi.Router, d deps.Deps) {
	for _, g := range registrations {
		if len(g.mws) == 0 {
			g.register(r, d)
			continue
		}
		g.register(r.With(g.mws...), d)
	}
}

package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/tabgate/internal/httpserver/deps"
	"github.com/MrSnakeDoc/tabgate/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/tabgate/internal/httpserver/mw"
)

func init() { Register(registerOps) }

// registerOps mounts the operational endpoints beside the authenticated
// group. Only /healthz is open; the rest are limited to the allowed CIDRs,
// and the ones that expose internals also check the Host header.
func registerOps(r chi.Router, d deps.Deps) {
	r.Get("/healthz", handlers.Healthz(d))

	private := r.With(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger))
	private.Get("/readyz", handlers.Readyz(d))

	internal := private.With(mw.EnforceHost(d.AllowedHosts, d.Logger))
	internal.Get("/infra", handlers.Infra(d))
	internal.Get("/metrics", handlers.Metrics(d))
	internal.Post("/reload", handlers.Reload(d))
}

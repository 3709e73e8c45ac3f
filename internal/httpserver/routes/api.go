package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/tabgate/internal/httpserver/deps"
	"github.com/MrSnakeDoc/tabgate/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/tabgate/internal/httpserver/mw"
)

func init() { Register(registerAPI) }

func registerAPI(r chi.Router, d deps.Deps) {
	r.Group(func(api chi.Router) {
		api.Use(mw.Auth(d.JWTSecret, d.JWTIssuer, d.Logger))
		api.Use(mw.RateLimit(mw.RateLimitConfig{
			Burst:        d.RateLimitBurst,
			RefillPerMin: d.RateLimitPerMinute,
			TrustProxy:   d.TrustProxy,
		}))

		api.Post("/context", handlers.OpenContext(d))
		api.Get("/contexts", handlers.ListContexts(d))
		api.Delete("/context/{handle}", handlers.CloseContext(d))

		api.Post("/navigate", handlers.Navigate(d))

		api.Get("/history", handlers.ListHistory(d))
		api.Post("/history", handlers.RecordHistory(d))
		api.Delete("/history", handlers.ClearHistory(d))

		api.Get("/bookmarks", handlers.ListBookmarks(d))
		api.Post("/bookmarks", handlers.CreateBookmark(d))
		api.Put("/bookmarks/{id}", handlers.UpdateBookmark(d))
		api.Delete("/bookmarks/{id}", handlers.DeleteBookmark(d))

		api.Get("/settings", handlers.GetSettings(d))
		api.Put("/settings", handlers.UpdateSettings(d))

		api.Get("/profile", handlers.GetProfile(d))
		api.Put("/profile", handlers.PutProfile(d))
	})
}

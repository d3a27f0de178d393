package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/marks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marks/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/marks/internal/httpserver/mw"
)

func init() { Register(registerTransfer, apiHost) }

func registerTransfer(r chi.Router, d deps.Deps) {
	limiter := mw.NewRateLimiter(mw.RateLimitConfig{
		Burst:        d.ImportBurst,
		RefillPerMin: d.ImportRefillPerMin,
		MaxEntries:   4096,
		TrustProxy:   d.TrustProxy,
		Logger:       d.Logger,
		Metrics:      d.Metrics,
	})
	r.With(limiter.Limit("/api/import")).Post("/api/import", handlers.ImportBookmarks(d))

	r.Get("/api/export", handlers.Export(d))
	r.Get("/api/export/netscape", handlers.ExportNetscape(d))
}

package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/marks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marks/internal/httpserver/handlers"
)

func init() { Register(registerMetrics, opsOnly) }

func registerMetrics(r chi.Router, d deps.Deps) {
	if d.Gatherer == nil {
		return
	}
	r.Method(http.MethodGet, "/metrics", handlers.Metrics(d))
}

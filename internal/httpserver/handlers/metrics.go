package handlers

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrSnakeDoc/marks/internal/httpserver/deps"
)

// Metrics exposes the Prometheus registry.
func Metrics(d deps.Deps) http.Handler {
	return promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})
}

package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/marks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marks/internal/httpserver/mw"
)

type (
	Registrar  func(r chi.Router, d deps.Deps)
	Middleware = func(http.Handler) http.Handler
	// Guard builds a middleware from the shared dependencies.
	Guard func(d deps.Deps) Middleware
)

type entry struct {
	reg    Registrar
	guards []Guard
}

var registry []entry

// Register a registrar with optional guards applied to all of its routes.
func Register(reg Registrar, guards ...Guard) {
	registry = append(registry, entry{reg: reg, guards: guards})
}

// Called once from server.New()
func RegisterAll(r chi.Router, d deps.Deps) {
	for _, e := range registry {
		if len(e.guards) == 0 {
			e.reg(r, d)
			continue
		}
		mws := make([]Middleware, 0, len(e.guards))
		for _, g := range e.guards {
			mws = append(mws, g(d))
		}
		e.reg(r.With(mws...), d)
	}
}

// apiHost limits /api routes to the configured Host headers.
func apiHost(d deps.Deps) Middleware {
	return mw.EnforceHost(d.AllowedHosts, d.Logger)
}

// opsOnly limits operational routes to the configured networks.
func opsOnly(d deps.Deps) Middleware {
	return mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger)
}

package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/marks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marks/internal/httpserver/handlers"
)

func init() { Register(registerBookmarks, apiHost) }

func registerBookmarks(r chi.Router, d deps.Deps) {
	r.Get("/api/bookmarks", handlers.ListBookmarks(d))
	r.Post("/api/bookmarks", handlers.CreateBookmark(d))
	// "bulk" must never be read as an id.
	r.Delete("/api/bookmarks/bulk", handlers.BulkDeleteBookmarks(d))
	r.Put("/api/bookmarks/{id}", handlers.UpdateBookmark(d))
	r.Delete("/api/bookmarks/{id}", handlers.DeleteBookmark(d))

	r.Get("/api/categories", handlers.Categories(d))
}

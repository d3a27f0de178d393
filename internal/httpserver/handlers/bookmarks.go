package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marks/internal/logger"
)

type bulkDeleteRequest struct {
	IDs []string `json:"ids" validate:"required,dive,max=128"`
}

func ListBookmarks(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bookmarks, err := d.Store.List(r.Context())
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, bookmarks)
	}
}

func CreateBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var f domain.Fields
		if err := decodeBody(r, d, &f); err != nil {
			writeError(w, r, d, err)
			return
		}

		bm, err := d.Store.Add(r.Context(), f)
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusCreated, bm)
	}
}

func UpdateBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var f domain.Fields
		if err := decodeBody(r, d, &f); err != nil {
			writeError(w, r, d, err)
			return
		}

		bm, err := d.Store.Update(r.Context(), id, f)
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, bm)
	}
}

func DeleteBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := d.Store.Delete(r.Context(), id); err != nil {
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, successResponse{Success: true})
	}
}

func BulkDeleteBookmarks(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req bulkDeleteRequest
		if err := decodeBody(r, d, &req); err != nil {
			writeError(w, r, d, err)
			return
		}

		deleted, err := d.Store.BulkDelete(r.Context(), req.IDs)
		if err != nil {
			writeError(w, r, d, err)
			return
		}

		d.Logger.Info("bookmarks bulk deleted",
			logger.Int("requested", len(req.IDs)),
			logger.Int("deleted", deleted))
		writeJSON(w, http.StatusOK, successResponse{Success: true, Deleted: &deleted})
	}
}

func Categories(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categories, err := d.Store.Categories(r.Context())
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, categories)
	}
}

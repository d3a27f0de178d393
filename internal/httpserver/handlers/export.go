package handlers

import (
	"fmt"
	"net/http"

	"github.com/MrSnakeDoc/marks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marks/internal/netscape"
)

const (
	exportFilename   = "my-bookmarks.html"
	netscapeFilename = "bookmarks-netscape.html"
)

// Export serves the styled standalone page as a download.
func Export(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bookmarks, err := d.Store.List(r.Context())
		if err != nil {
			writeError(w, r, d, err)
			return
		}

		page, err := netscape.SerializeExport(bookmarks, d.Now())
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		writeAttachment(w, exportFilename, page)
	}
}

// ExportNetscape serves the collection in the Netscape bookmark format.
func ExportNetscape(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bookmarks, err := d.Store.List(r.Context())
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		writeAttachment(w, netscapeFilename, netscape.SerializeNetscape(bookmarks))
	}
}

func writeAttachment(w http.ResponseWriter, filename, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/MrSnakeDoc/marks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marks/internal/logger"
	"github.com/MrSnakeDoc/marks/internal/utils"
)

const multipartMemory = 1 << 20

// ImportBookmarks accepts a Netscape bookmark file in the multipart field "file".
func ImportBookmarks(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.MaxUploadBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, d.MaxUploadBytes)
		}

		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeMessage(w, http.StatusRequestEntityTooLarge, "file too large")
				return
			}
			writeMessage(w, http.StatusBadRequest, "no file provided")
			return
		}
		defer func() {
			if r.MultipartForm != nil {
				_ = r.MultipartForm.RemoveAll()
			}
		}()

		file, header, err := r.FormFile("file")
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "no file provided")
			return
		}
		defer utils.Close(file)

		if header.Filename == "" {
			writeMessage(w, http.StatusBadRequest, "no file selected")
			return
		}

		content, err := io.ReadAll(file)
		if err != nil {
			writeError(w, r, d, err)
			return
		}

		res, err := d.Store.Import(r.Context(), string(content))
		if err != nil {
			writeError(w, r, d, err)
			return
		}

		d.Logger.Debug("import request served",
			logger.String("filename", header.Filename),
			logger.Int("bytes", len(content)))
		writeJSON(w, http.StatusOK, res)
	}
}

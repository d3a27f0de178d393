package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marks/internal/logger"
)

type errorResponse struct {
	Error string `json:"error"`
}

type successResponse struct {
	Success bool `json:"success"`
	Deleted *int `json:"deleted,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeError maps domain errors onto status codes. Unknown errors are logged
// and reported with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, d deps.Deps, err error) {
	var (
		verr *domain.ValidationError
		cerr *domain.ConflictError
		nerr *domain.NotFoundError
	)
	switch {
	case errors.As(err, &verr):
		writeMessage(w, http.StatusBadRequest, verr.Msg)
	case errors.As(err, &cerr):
		writeMessage(w, http.StatusConflict, cerr.Msg)
	case errors.As(err, &nerr):
		writeMessage(w, http.StatusNotFound, "bookmark not found")
	default:
		d.Logger.Error("request failed",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Error(err))
		writeMessage(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeBody decodes a JSON body into dst and validates it when a validator
// is configured. Failures come back as *domain.ValidationError.
func decodeBody(r *http.Request, d deps.Deps, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.NewValidationError("invalid JSON body")
	}
	if d.Validate == nil {
		return nil
	}
	if err := d.Validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return domain.NewValidationError(fieldMessage(verrs[0]))
		}
		return domain.NewValidationError("invalid request")
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return field + " is too long"
	default:
		return field + " is invalid"
	}
}

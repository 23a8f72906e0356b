package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dtroode/chatdata-server/internal/logger"
	"github.com/dtroode/chatdata-server/internal/model"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// statusFor maps the kind of the outermost classified error to an HTTP status.
// The cause chain is not consulted: an unauthorized error may wrap a not-found one.
func statusFor(err error) int {
	var merr *model.Error
	if !errors.As(err, &merr) {
		return http.StatusInternalServerError
	}

	switch merr.Kind {
	case model.ErrValidation:
		return http.StatusBadRequest
	case model.ErrNotFound:
		return http.StatusNotFound
	case model.ErrConflict:
		return http.StatusConflict
	case model.ErrUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func handleError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Message: "internal server error"}

	var merr *model.Error
	if errors.As(err, &merr) {
		resp.Message = merr.Message
		if merr.Cause != nil {
			resp.Error = merr.Detail()
		}
	}

	writeJSON(w, statusFor(err), resp)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// decodeJSON reads a JSON request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return model.NewValidationError("Invalid request body", err)
	}
	return nil
}

// logFailure logs server-side failures; client errors stay at debug level.
func logFailure(l *logger.Logger, msg string, err error, args ...any) {
	args = append(args, "error", err.Error())
	if statusFor(err) >= http.StatusInternalServerError {
		l.Error(msg, args...)
		return
	}
	l.Debug(msg, args...)
}

package middleware

import (
	"net/http"

	"github.com/felixge/httpsnoop"

	"github.com/dtroode/chatdata-server/internal/logger"
)

// Logging logs every HTTP request with its status and duration.
type Logging struct {
	logger *logger.Logger
}

// NewLogging creates a new Logging middleware.
func NewLogging(logger *logger.Logger) *Logging {
	return &Logging{logger: logger}
}

func (l *Logging) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)

		args := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", m.Code,
			"bytes", m.Written,
			"duration_ms", m.Duration.Milliseconds(),
		}
		switch {
		case m.Code >= http.StatusInternalServerError:
			l.logger.Error("HTTP request failed", args...)
		default:
			l.logger.Info("HTTP request completed", args...)
		}
	})
}

package web

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
)

// logRequests logs one structured line per request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return handlers.CustomLoggingHandler(io.Discard, next, func(_ io.Writer, p handlers.LogFormatterParams) {
		level := slog.LevelInfo
		switch {
		case p.StatusCode >= 500:
			level = slog.LevelError
		case p.StatusCode >= 400:
			level = slog.LevelWarn
		case p.URL.Path == "/healthz" || p.URL.Path == "/metrics":
			level = slog.LevelDebug
		}
		s.log.Log(p.Request.Context(), level, "http_request",
			"method", p.Request.Method,
			"path", p.URL.Path,
			"status", p.StatusCode,
			"bytes", p.Size,
			"duration_ms", time.Since(p.TimeStamp).Milliseconds(),
			"remote", p.Request.RemoteAddr,
		)
	})
}

// recoveryLogger adapts slog to handlers.RecoveryHandlerLogger.
type recoveryLogger struct {
	log *slog.Logger
}

func (l recoveryLogger) Println(v ...interface{}) {
	l.log.Error("http_panic", "error", fmt.Sprint(v...))
}

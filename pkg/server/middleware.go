package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	agenterrors "github.com/kubeorbit/cluster-agent/pkg/errors"
)

type contextKey string

const contextKeyRequestID contextKey = "request_id"

// withMiddleware applies request ID, rate limiting, and request logging
// to a handler.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		r = r.WithContext(context.WithValue(r.Context(), contextKeyRequestID, requestID))
		w.Header().Set("X-Request-ID", requestID)

		if !s.limiter.Allow() {
			WriteError(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests")
			return
		}

		start := time.Now()
		next(w, r)

		slog.Debug("handled request",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", requestID,
			"remote_addr", r.RemoteAddr,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

func statusForError(err error) int {
	return statusForCode(agenterrors.CodeOf(err))
}

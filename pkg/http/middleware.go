// Package http provides HTTP middleware for the courtflow server.
package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cutrackit/courtflow/pkg/identity"
)

// CredentialMiddleware extracts caller credentials from HTTP headers and
// adds them to the request context for downstream identity resolvers.
//
// A Bearer token in the Authorization header takes precedence; the
// X-QR-Token header carries the token scanned from a player's QR pass.
// The middleware does not validate credentials; resolution happens in the
// handlers, where a failure maps to the unauthorized outcome.
func CredentialMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var credential string

		authHeader := r.Header.Get("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			credential = strings.TrimPrefix(authHeader, "Bearer ")
		}
		if credential == "" {
			credential = r.Header.Get("X-QR-Token")
		}

		if credential != "" {
			r = r.WithContext(identity.WithCredential(r.Context(), credential))
		}

		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// RequestLogMiddleware tags each request with a request id, echoes it in
// the X-Request-ID response header, and logs the request outcome.
func RequestLogMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", requestID)

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(rec, r)

			logger.Info("request",
				"request_id", requestID,
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

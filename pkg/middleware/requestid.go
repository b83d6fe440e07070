// Package middleware provides reusable HTTP middleware for request IDs,
// Prometheus metrics, per-client rate limiting, and request timeouts.
package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/aiteacher/chat-search-service/pkg/logger"
)

const requestIDHeader = "X-Request-ID"

// RequestID assigns every request a unique ID, honouring one supplied by the
// caller, and stores it in the request context and response header.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
	})
}

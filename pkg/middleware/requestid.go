package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/flowdeck/flowdeck/pkg/contextkeys"
)

// HeaderRequestID carries the request correlation id.
const HeaderRequestID = "X-Request-Id"

// RequestIDMiddleware assigns each request a correlation id, reusing the
// inbound header when the proxy already set one. The id is echoed on the
// response and installed on the request context for logs and audit records.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		w.Header().Set(HeaderRequestID, requestID)
		ctx := contextkeys.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flowdeck/flowdeck/pkg/contextkeys"
)

func TestRequestIDMiddleware(t *testing.T) {
	t.Run("generates an id when the header is absent", func(t *testing.T) {
		var fromCtx string
		handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fromCtx = contextkeys.GetRequestID(r.Context())
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.NotEmpty(t, fromCtx)
		assert.Equal(t, fromCtx, rec.Header().Get(HeaderRequestID), "context and response carry the same id")
	})

	t.Run("reuses the proxy's id", func(t *testing.T) {
		var fromCtx string
		handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fromCtx = contextkeys.GetRequestID(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderRequestID, "edge-123")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, "edge-123", fromCtx)
		assert.Equal(t, "edge-123", rec.Header().Get(HeaderRequestID))
	})
}

// Package requestid assigns each request a correlation ID, honoring one
// supplied by the caller so mobile clients can correlate retries.
package requestid

import (
	"net/http"

	"github.com/google/uuid"

	"haven/pkg/requestcontext"
)

// Header is the inbound/outbound correlation header.
const Header = "X-Request-ID"

// Middleware injects a request ID into the context and echoes it back.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(Header)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(Header, reqID)
		ctx := requestcontext.WithRequestID(r.Context(), reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

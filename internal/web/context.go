package web

import (
	"net/http"

	"github.com/JonMunkholm/sheets/internal/core"
)

// requestMetadata adds the client IP and User-Agent to the request context
// so jobs started by the request record who sent it.
func requestMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := core.ContextWithIPAddress(r.Context(), clientIP(r))
		ctx = core.ContextWithUserAgent(ctx, r.UserAgent())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

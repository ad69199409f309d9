package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"athena/internal/httputil"
)

// Identity resolves the calling user from the X-User-ID header set by
// the fronting gateway, which has already authenticated the request.
// Requests with a missing or malformed id are rejected before any
// handler runs.
func Identity() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get("X-User-ID")
			if raw == "" {
				httputil.RespondError(w, http.StatusUnauthorized, "missing X-User-ID header")
				return
			}

			userID, err := uuid.Parse(raw)
			if err != nil {
				httputil.RespondError(w, http.StatusUnauthorized, "invalid X-User-ID header")
				return
			}

			next.ServeHTTP(w, httputil.WithUserID(r, userID))
		})
	}
}

package httputil

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// Context key type to avoid collisions
type contextKey string

const userIDKey contextKey = "userID"

// WithUserID adds the caller's user id to the request context.
func WithUserID(r *http.Request, userID uuid.UUID) *http.Request {
	ctx := context.WithValue(r.Context(), userIDKey, userID)
	return r.WithContext(ctx)
}

// GetUserID retrieves the user id from context. The second return is
// false when no identity middleware ran for this request.
func GetUserID(r *http.Request) (uuid.UUID, bool) {
	userID, ok := r.Context().Value(userIDKey).(uuid.UUID)
	return userID, ok
}

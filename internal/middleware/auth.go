// internal/middleware/auth.go

package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/averyls/mingle/internal/auth"
)

type contextKey string

const userIDKey contextKey = "user_id"

// Authenticate resolves the auth_token cookie to a user id and stores it in
// the request context. Handlers behind it receive an already-authenticated
// acting user and never touch credentials themselves.
func Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("auth_token")
		if err != nil {
			http.Error(w, "missing auth_token", http.StatusUnauthorized)
			return
		}

		userIDStr, err := auth.AuthenticateJWT(cookie.Value)
		if err != nil {
			http.Error(w, "invalid token", http.StatusForbidden)
			return
		}
		userID, err := uuid.Parse(userIDStr)
		if err != nil {
			http.Error(w, "invalid user id in token", http.StatusBadRequest)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserID returns the authenticated user id placed in the context by
// Authenticate.
func UserID(r *http.Request) (uuid.UUID, bool) {
	id, ok := r.Context().Value(userIDKey).(uuid.UUID)
	return id, ok
}

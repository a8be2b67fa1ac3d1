package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/calmry/calmry-backend/internal/models"
	"github.com/calmry/calmry-backend/internal/services"
)

// AuthCookieName is the cookie carrying the signed auth token.
const AuthCookieName = "auth_token"

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const userKey contextKey = "user"

// UserFinder is the single store read the middleware performs per request.
type UserFinder interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Auth resolves the caller's identity from the auth cookie, or rejects.
// Missing cookie → 401. Invalid/expired token → 401. Token valid but user
// gone → 404. On success the user record (hash stripped) is attached to
// the request context.
func Auth(tokens *services.TokenService, users UserFinder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(AuthCookieName)
			if err != nil || cookie.Value == "" {
				writeAuthError(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			claims, err := tokens.Verify(cookie.Value)
			if err != nil {
				log.Warn().Err(err).Msg("Rejected invalid auth token")
				writeAuthError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			userID, err := uuid.Parse(claims.UserID)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			user, err := users.GetUserByID(r.Context(), userID)
			if err == services.ErrNotFound {
				writeAuthError(w, http.StatusNotFound, "User not found")
				return
			}
			if err != nil {
				log.Error().Err(err).Msg("User lookup failed in auth middleware")
				writeAuthError(w, http.StatusInternalServerError, "Internal Server Error")
				return
			}

			user.Password = ""
			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUser extracts the authenticated user from the request context.
func GetUser(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userKey).(*models.User)
	return user, ok
}

// WithUser returns a context carrying the given user. Test helper.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"message": message,
	})
}

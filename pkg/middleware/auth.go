package middleware

import (
	"context"
	"encoding/json"
	"net/http"
)

type contextKeyType string

const userIDKey contextKeyType = "user_id"

// Identity reads the X-User-ID header set by the API gateway after JWT
// validation and stores it in the request context. Anonymous requests pass
// through with no user in context; handlers that need a user call RequireUser.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if uid := r.Header.Get("X-User-ID"); uid != "" {
			ctx := context.WithValue(r.Context(), userIDKey, uid)
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	})
}

// RequireUser rejects requests that carry no authenticated user with 401.
// Mount it after Identity on mutation routes.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserIDFromContext(r.Context()) == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"code":    "UNAUTHORIZED",
				"message": "authentication required",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// UserIDFromContext returns the authenticated user ID, or "" for anonymous
// requests.
func UserIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok {
		return id
	}
	return ""
}

// WithUserID returns a context carrying the given user ID. Exported for tests
// that exercise handlers without the full middleware chain.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

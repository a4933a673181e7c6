package httpapi

import (
	"context"
	"net/http"
	"strings"

	"salterio-site/internal/authgate"
	"salterio-site/internal/backend"
)

type contextKey string

const ctxUser contextKey = "user"

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
}

// WithAuth requires a live session behind the bearer token.
func WithAuth(identity backend.Identity) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				WriteError(w, http.StatusUnauthorized, MsgAuthFailed)
				return
			}
			user, err := identity.CurrentUser(r.Context(), token)
			if err != nil || user == nil {
				WriteError(w, http.StatusUnauthorized, MsgAuthFailed)
				return
			}
			ctx := context.WithValue(r.Context(), ctxUser, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func CurrentUser(r *http.Request) *backend.User {
	if value, ok := r.Context().Value(ctxUser).(*backend.User); ok {
		return value
	}
	return nil
}

// RequireAdmin enforces the allow-list for every admin route.
func RequireAdmin(gate *authgate.Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := CurrentUser(r)
			if user == nil || !gate.IsAdmin(user.Email) {
				WriteError(w, http.StatusForbidden, authgate.NoticeNotAllowed)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

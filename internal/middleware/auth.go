package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/zhouzirui/companionbot/backend/internal/service/auth"
	"github.com/zhouzirui/companionbot/backend/pkg/utils"
)

type contextKey string

const usernameKey contextKey = "current_username"

// TokenVerifier resolves a bearer token to a username.
type TokenVerifier interface {
	VerifyToken(token string) (string, error)
}

// WithUsername stores the authenticated username on ctx.
func WithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, usernameKey, username)
}

// UsernameFrom returns the authenticated username, or "" when none is set.
func UsernameFrom(ctx context.Context) string {
	username, _ := ctx.Value(usernameKey).(string)
	return username
}

// Auth rejects requests without a valid token. The token is read from the
// Authorization header, or from the token query parameter for WebSocket upgrades.
func Auth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, ok := extractToken(r)
			if !ok {
				utils.RespondError(w, http.StatusUnauthorized, "Missing or invalid authorization header")
				return
			}

			username, err := verifier.VerifyToken(tokenStr)
			if err != nil {
				if errors.Is(err, auth.ErrTokenExpired) {
					utils.RespondError(w, http.StatusUnauthorized, "Token expired")
					return
				}
				utils.RespondError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUsername(r.Context(), username)))
		})
	}
}

func extractToken(r *http.Request) (string, bool) {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.Fields(header)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return "", false
		}
		return parts[1], true
	}
	if token := strings.TrimSpace(r.URL.Query().Get("token")); token != "" {
		return token, true
	}
	return "", false
}

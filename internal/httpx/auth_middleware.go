package httpx

import (
	"context"
	"net/http"
	"strings"

	"openbook/internal/platform/crypto"
)

// Blacklist reports whether a token ID was revoked by logout.
type Blacklist interface {
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	return token, token != ""
}

func AuthMiddleware(secret string, blacklist Blacklist) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				JSONError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Missing bearer token", nil)
				return
			}

			claims, err := crypto.ParseToken(secret, token)
			if err != nil {
				JSONError(w, r, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token", nil)
				return
			}

			if blacklist != nil {
				revoked, err := blacklist.IsBlacklisted(r.Context(), claims.ID)
				if err != nil || revoked {
					JSONError(w, r, http.StatusUnauthorized, "INVALID_TOKEN", "Token has been revoked", nil)
					return
				}
			}

			ctx := ContextWithIdentity(r.Context(), claims.Identity(), token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects authenticated users whose role is not in roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFrom(r)
			for _, allowed := range roles {
				if role == allowed {
					next.ServeHTTP(w, r)
					return
				}
			}
			JSONError(w, r, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions", nil)
		})
	}
}

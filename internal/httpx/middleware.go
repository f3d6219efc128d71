package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/eventure/ticketing/internal/auth"
	"github.com/eventure/ticketing/internal/identity"
)

type claimsKey struct{}

// Authenticator verifies the bearer token (Authorization header, or the
// "token" cookie set by browser clients) and stores its claims in the request
// context.
func Authenticator(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing token"})
				return
			}
			claims, err := auth.Verify(secret, token)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
				return
			}
			ctx := context.WithValue(r.Context(), claimsKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if c, err := r.Cookie("token"); err == nil {
		return c.Value
	}
	return ""
}

// ClaimsFrom returns the authenticated claims, or nil outside the
// Authenticator middleware.
func ClaimsFrom(ctx context.Context) *auth.Claims {
	c, _ := ctx.Value(claimsKey{}).(*auth.Claims)
	return c
}

// RequireOrganizer gates a subtree to accounts with the organizer role.
func RequireOrganizer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFrom(r.Context())
		if claims == nil || claims.Role != string(identity.RoleOrganizer) {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "organizer role required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

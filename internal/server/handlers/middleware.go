// internal/server/handlers/middleware.go

package handlers

import (
	"net/http"
	"strings"

	"connectr/internal/domain/identity"
)

// RequireAuth validates the bearer token and stores its claims on the request context
func RequireAuth(tokens identity.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				respondWithError(w, r, http.StatusUnauthorized, "Missing bearer token", nil)
				return
			}

			claims, err := tokens.Validate(token)
			if err != nil {
				respondWithError(w, r, http.StatusUnauthorized, "Invalid or expired token", nil)
				return
			}

			next.ServeHTTP(w, r.WithContext(identity.WithClaims(r.Context(), claims)))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// callerID returns the authenticated user's ID
func callerID(r *http.Request) string {
	claims, _ := identity.ClaimsFromContext(r.Context())
	return claims.Subject
}

package middleware

import (
	"context"
	"net/http"
	"strings"

	"fixwala-backend/internal/auth"
	"fixwala-backend/pkg/utils"
)

type contextKey string

const ClaimsKey contextKey = "claims"

type AuthMiddleware struct {
	jwtManager *auth.JWTManager
	scope      string
}

// NewAuthMiddleware accepts tokens carrying scope. An empty scope accepts any
// valid token.
func NewAuthMiddleware(jwtManager *auth.JWTManager, scope string) *AuthMiddleware {
	return &AuthMiddleware{jwtManager: jwtManager, scope: scope}
}

// Authenticate is a middleware that validates JWT tokens
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			utils.Message(w, http.StatusUnauthorized, "Authorization header required")
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			utils.Message(w, http.StatusUnauthorized, "Invalid authorization format")
			return
		}

		claims, err := m.jwtManager.ValidateToken(parts[1])
		if err != nil {
			utils.Message(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		if m.scope != "" && claims.Scope != m.scope {
			utils.Message(w, http.StatusForbidden, "Insufficient scope")
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetClaimsFromContext extracts token claims from request context
func GetClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*auth.Claims)
	return claims, ok
}

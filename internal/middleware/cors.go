package middleware

import (
	"net/http"

	"github.com/rs/cors"

	"fixwala-backend/internal/config"
)

// NewCORS allows credentials only for an explicit origin list; a wildcard
// origin is served without credentials as browsers require.
func NewCORS(cfg *config.Config) func(http.Handler) http.Handler {
	origins := cfg.Server.CorsAllowedOrigins
	allowCredentials := true
	for _, o := range origins {
		if o == "*" {
			allowCredentials = false
		}
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   cfg.Server.CorsAllowedMethods,
		AllowedHeaders:   cfg.Server.CorsAllowedHeaders,
		ExposedHeaders:   []string{"RateLimit-Limit", "RateLimit-Remaining", "RateLimit-Reset", "X-Request-ID"},
		AllowCredentials: allowCredentials,
		MaxAge:           300, // 5 minutes
	})

	return c.Handler
}

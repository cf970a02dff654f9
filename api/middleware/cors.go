package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

// localOrigins are allowed when BOOKSTORE_CORS_ALLOWED_ORIGINS is unset so the
// storefront dev servers work out of the box.
var localOrigins = []string{"http://localhost:3000", "http://localhost:5173"}

// CORS exposes X-Request-Id to the browser and accepts Idempotency-Key on
// preflight so storefront checkout retries work cross-origin.
func CORS(origins []string) func(http.Handler) http.Handler {
	allowed := make([]string, 0, len(origins))
	for _, o := range origins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			allowed = append(allowed, o)
		}
	}
	if len(allowed) == 0 {
		allowed = localOrigins
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: allowed,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", idempotencyHeader, requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         600,
	})
}

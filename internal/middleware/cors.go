package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS allows the configured origins, or every origin when none are set.
// Credentials are only allowed with an explicit origin list.
func CORS(origins []string) func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Language", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Request-Id"},
		AllowCredentials: len(origins) > 0,
		MaxAge:           300,
	}
	if len(origins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	return cors.Handler(opts)
}

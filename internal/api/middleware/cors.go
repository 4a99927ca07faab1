package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORS wraps h so browsers on the allowed origins can call the read-only
// API. An empty list or "*" allows every origin.
func CORS(h http.Handler, allowedOrigins []string) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         600,
	}).Handler(h)
}

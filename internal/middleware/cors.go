package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORS lets browser clients send and read the auth headers.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	authHeaders := []string{HeaderAccessToken, HeaderRefreshToken, HeaderDeviceID}

	handler := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   append([]string{"Content-Type", "X-Request-ID"}, authHeaders...),
		ExposedHeaders:   append([]string{"X-Request-ID"}, authHeaders...),
		MaxAge:           3600,
		AllowCredentials: false,
	})

	return handler.Handler
}

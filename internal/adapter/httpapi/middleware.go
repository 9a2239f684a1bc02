package httpapi

import (
	"net/http"

	"github.com/remitflow/remitflow-backend/internal/adapter/auth"
)

// TokenAuth rejects requests whose Authorization header does not carry the
// API token
func TokenAuth(apiToken string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeError(w, http.StatusUnauthorized, "Authorization header required")
				return
			}
			if !auth.TokenMatches(header, apiToken) {
				writeError(w, http.StatusUnauthorized, "Invalid token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

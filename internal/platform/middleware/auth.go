package middleware

import (
	"log/slog"
	"net/http"
	"strings"
)

// TokenValidator checks an admin bearer token and returns an error when it is
// missing a valid signature, expired, or lacks the admin scope.
type TokenValidator interface {
	ValidateAdminToken(tokenString string) error
}

// RequireAdmin guards debug/admin endpoints with a bearer JWT. Consent reset
// wipes durable user state, so it must never be reachable anonymously.
func RequireAdmin(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const bearerPrefix = "Bearer "
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
			if !ok || token == "" {
				unauthorized(w, "bearer token required")
				return
			}
			if err := validator.ValidateAdminToken(token); err != nil {
				logger.WarnContext(r.Context(), "admin token rejected",
					"error", err,
					"request_id", GetRequestID(r.Context()),
				)
				unauthorized(w, "invalid or expired token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}

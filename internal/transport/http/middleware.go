package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"popreg/internal/auth"
)

// TokenValidator is the session-store half of authentication; implemented by
// the auth service.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*auth.Claims, error)
}

type contextKeyClaims struct{}

// ClaimsFrom returns the authenticated identity stored by RequireAuth, or
// nil on unauthenticated routes.
func ClaimsFrom(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(contextKeyClaims{}).(*auth.Claims)
	return claims
}

// RequireAuth short-circuits requests without a valid bearer token before
// they reach business logic.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				writeJSON(w, http.StatusUnauthorized, errorBody{
					Code:    "unauthorized",
					Message: "missing or invalid Authorization header",
				})
				return
			}

			claims, err := validator.ValidateToken(r.Context(), token)
			if err != nil {
				logger.Warn("unauthorized request", "path", r.URL.Path, "error", err)
				writeError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), contextKeyClaims{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

package ratelimit

import (
	"fmt"
	"net/http"
)

// Middleware rejects over-limit clients with 429 before the request reaches
// business logic. It runs first in the chain, ahead of authentication.
func Middleware(limiter *Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(r.Context(), ClientIP(r)) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write(fmt.Appendf(nil,
					`{"code":%q,"message":"too many requests, slow down"}`, "rate_limited"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

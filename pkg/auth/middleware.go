package auth

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Middleware verifies the Authorization header on every request and attaches
// the resulting auth context. Requests without a token proceed as guests;
// per-operation authorization is enforced in the handlers.
func Middleware(log *zap.Logger, secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}
			tokenStr := strings.TrimPrefix(header, "Bearer ")
			authCtx, err := ParseAndExtractAuthContext(tokenStr, secret)
			if err != nil {
				log.Warn("rejecting request with invalid token", zap.Error(err))
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), authCtx)))
		})
	}
}

package httpserver

import (
	"net/http"
	"strings"

	"grid-broker/internal/auth"
	"grid-broker/internal/httputil"
)

// InternalAuth checks X-Internal-Token (or the token query parameter, for
// browser websockets) against a bcrypt hash. An empty hash disables the check.
func InternalAuth(tokenHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if tokenHash == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := strings.TrimSpace(r.Header.Get("X-Internal-Token"))
			if token == "" {
				token = r.URL.Query().Get("token")
			}
			if !auth.CheckToken(tokenHash, token) {
				httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "invalid internal token"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

package api

import (
	"net/http"
	"strings"
)

// requireSession rejects requests without a valid browser session
// token. The token is minted at login and verified locally; Google
// token expiry is a separate, per-operation concern.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw := strings.TrimPrefix(header, "Bearer ")
		if raw == "" || raw == header {
			writeJSON(w, http.StatusUnauthorized, errorBody("missing session token"))
			return
		}
		if _, err := s.app.Session().VerifySessionToken(raw); err != nil {
			writeJSON(w, http.StatusUnauthorized, errorBody("invalid session token"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

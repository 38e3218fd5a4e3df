package middleware

import (
	"net/http"

	sessionauth "github.com/parlorworks/sessionauth"
)

// RequireAuthenticated rejects requests whose session is anonymous.
func RequireAuthenticated() func(http.Handler) http.Handler {
	return RequirePermissions()
}

// RequirePermissions rejects requests whose session is anonymous (401) or
// lacks ANY of the given permission codes (403).
func RequirePermissions(codes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, ok := SessionFromContext(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			switch err := s.RequirePermissions(codes...); {
			case err == nil:
				next.ServeHTTP(w, r)
			case sessionauth.IsNoSession(err):
				http.Error(w, "unauthorized", http.StatusUnauthorized)
			case sessionauth.IsUnauthorized(err):
				http.Error(w, "forbidden", http.StatusForbidden)
			default:
				http.Error(w, "unauthorized", http.StatusUnauthorized)
			}
		})
	}
}

package middleware

import (
	"context"
	"net"
	"net/http"

	sessionauth "github.com/parlorworks/sessionauth"
)

type sessionContextKey struct{}

// SessionFromContext returns the request's [sessionauth.AuthSession]
// injected by [Session].
func SessionFromContext(ctx context.Context) (*sessionauth.AuthSession, bool) {
	s, ok := ctx.Value(sessionContextKey{}).(*sessionauth.AuthSession)
	return s, ok
}

// Session wraps a handler with the session protocol: it reads the token
// header, begins a session, seeds the tenant header when multi-tenancy is
// enabled, runs the handler, and commits. The response token header is
// set lazily on the first write, so it reflects sign-in and attribute
// mutations made by the handler.
func Session(manager *sessionauth.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if manager == nil {
				http.Error(w, "service unavailable", http.StatusServiceUnavailable)
				return
			}

			ctx := sessionauth.WithClientIP(r.Context(), remoteIP(r))

			s := manager.Begin(ctx, r.Header.Get(manager.TokenHeader()))

			if header, ok := manager.TenantHeader(); ok {
				if tenant := r.Header.Get(header); tenant != "" && tenant != s.TenantID() {
					if err := s.SetTenantID(ctx, tenant); err != nil {
						http.Error(w, "unauthorized", http.StatusUnauthorized)
						return
					}
				}
			}

			tw := &tokenWriter{
				ResponseWriter: w,
				header:         manager.TokenHeader(),
				session:        s,
			}

			ctx = context.WithValue(ctx, sessionContextKey{}, s)
			next.ServeHTTP(tw, r.WithContext(ctx))

			raw := manager.Commit(ctx, s)
			if !tw.wrote {
				tw.Header().Set(tw.header, raw)
			}
		})
	}
}

// tokenWriter emits the session token header just before the first body
// or status write. Sign-in rotates the token mid-request, so the header
// cannot be written eagerly at Begin time.
type tokenWriter struct {
	http.ResponseWriter
	header  string
	session *sessionauth.AuthSession
	wrote   bool
}

func (w *tokenWriter) WriteHeader(status int) {
	w.emit()
	w.ResponseWriter.WriteHeader(status)
}

func (w *tokenWriter) Write(p []byte) (int, error) {
	w.emit()
	return w.ResponseWriter.Write(p)
}

func (w *tokenWriter) emit() {
	if w.wrote {
		return
	}
	w.wrote = true
	w.Header().Set(w.header, w.session.Token().String())
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

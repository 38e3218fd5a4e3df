package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	sessionauth "github.com/parlorworks/sessionauth"
	"github.com/parlorworks/sessionauth/identity"
)

type stubDirectory struct {
	users map[string]identity.UserRecord
}

func (d *stubDirectory) UserByID(_ context.Context, userID string) (identity.UserRecord, error) {
	user, ok := d.users[userID]
	if !ok {
		return identity.UserRecord{}, identity.ErrUserNotFound
	}
	return user, nil
}

func (d *stubDirectory) PermissionsByIDs(_ context.Context, ids []string) ([]identity.Permission, error) {
	out := make([]identity.Permission, 0, len(ids))
	for _, id := range ids {
		out = append(out, identity.Permission{ID: id, Code: id, Name: id})
	}
	return out, nil
}

func (d *stubDirectory) RolesByIDs(_ context.Context, ids []string) ([]identity.Role, error) {
	out := make([]identity.Role, 0, len(ids))
	for _, id := range ids {
		out = append(out, identity.Role{ID: id, Name: id})
	}
	return out, nil
}

func newTestManager(t *testing.T, mutate func(cfg *sessionauth.Config)) *sessionauth.Manager {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := sessionauth.DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	dir := &stubDirectory{
		users: map[string]identity.UserRecord{
			"u1": {
				UserID:        "u1",
				Enabled:       true,
				PermissionIDs: []string{"orders.read", "t1:orders.write"},
			},
		},
	}

	manager, err := sessionauth.New().
		WithConfig(cfg).
		WithRedis(client).
		WithUserDirectory(dir).
		WithPermissionDirectory(dir).
		WithRoleDirectory(dir).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(manager.Close)

	return manager
}

func newTestMux(m *sessionauth.Manager) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		s, _ := SessionFromContext(r.Context())
		if err := s.SignIn(r.Context(), r.URL.Query().Get("user")); err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("POST /logout", func(w http.ResponseWriter, r *http.Request) {
		s, _ := SessionFromContext(r.Context())
		s.SignOut(r.Context())
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("GET /me", func(w http.ResponseWriter, r *http.Request) {
		s, _ := SessionFromContext(r.Context())
		_, _ = w.Write([]byte(s.UserID()))
	})

	mux.HandleFunc("POST /cart", func(w http.ResponseWriter, r *http.Request) {
		s, _ := SessionFromContext(r.Context())
		s.SetAttribute("cart", r.URL.Query().Get("items"))
		_, _ = w.Write([]byte("ok"))
	})

	mux.Handle("GET /orders", RequirePermissions("orders.read")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("orders"))
	})))

	mux.Handle("POST /orders", RequirePermissions("orders.read", "orders.write")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("created"))
	})))

	return Session(m)(mux)
}

func do(t *testing.T, h http.Handler, method, target, token, tenant string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, nil)
	req.RemoteAddr = "203.0.113.9:4711"
	if token != "" {
		req.Header.Set("X-Session-Token", token)
	}
	if tenant != "" {
		req.Header.Set("X-Tenant-ID", tenant)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSessionHeaderRoundTrip(t *testing.T) {
	m := newTestManager(t, nil)
	h := newTestMux(m)

	rec := do(t, h, "POST", "/cart?items=2", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	token := rec.Header().Get("X-Session-Token")
	if token == "" {
		t.Fatal("response must carry the session token header")
	}
	if !strings.HasPrefix(token, "c+") {
		t.Fatalf("mutated session must hand out a cached token, got %q", token)
	}

	rec = do(t, h, "GET", "/me", token, "")
	if rec.Header().Get("X-Session-Token") == "" {
		t.Fatal("resumed request must echo a token")
	}
}

func TestCleanRequestKeepsEmptyTag(t *testing.T) {
	m := newTestManager(t, nil)
	h := newTestMux(m)

	rec := do(t, h, "GET", "/me", "", "")
	token := rec.Header().Get("X-Session-Token")
	if !strings.HasPrefix(token, "e+") {
		t.Fatalf("untouched session must keep the empty tag, got %q", token)
	}
}

func TestSignInRotatesResponseToken(t *testing.T) {
	m := newTestManager(t, nil)
	h := newTestMux(m)

	rec := do(t, h, "POST", "/login?user=u1", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", rec.Code, rec.Body.String())
	}

	token := rec.Header().Get("X-Session-Token")
	if !strings.HasPrefix(token, "c+") {
		t.Fatalf("post-login token = %q, want cached tag", token)
	}

	rec = do(t, h, "GET", "/me", token, "")
	if rec.Body.String() != "u1" {
		t.Fatalf("resumed user = %q, want u1", rec.Body.String())
	}
}

func TestGuards(t *testing.T) {
	m := newTestManager(t, func(cfg *sessionauth.Config) {
		cfg.MultiTenant.Enabled = true
		cfg.MultiTenant.DefaultTenant = "t1"
	})
	h := newTestMux(m)

	// Anonymous: 401.
	if rec := do(t, h, "GET", "/orders", "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d, want 401", rec.Code)
	}

	login := do(t, h, "POST", "/login?user=u1", "", "")
	token := login.Header().Get("X-Session-Token")

	// Authenticated under the default tenant: both codes granted.
	if rec := do(t, h, "GET", "/orders", token, ""); rec.Code != http.StatusOK {
		t.Fatalf("read status = %d, want 200", rec.Code)
	}
	if rec := do(t, h, "POST", "/orders", token, ""); rec.Code != http.StatusOK {
		t.Fatalf("write status = %d, want 200", rec.Code)
	}
}

func TestTenantHeaderSwitchesPermissionSet(t *testing.T) {
	m := newTestManager(t, func(cfg *sessionauth.Config) {
		cfg.MultiTenant.Enabled = true
		cfg.MultiTenant.DefaultTenant = "t1"
	})
	h := newTestMux(m)

	login := do(t, h, "POST", "/login?user=u1", "", "")
	token := login.Header().Get("X-Session-Token")

	// Under t2 the t1-scoped write permission disappears.
	rec := do(t, h, "POST", "/orders", token, "t2")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("cross-tenant write status = %d, want 403", rec.Code)
	}

	// The tenant switch was committed; the bare read permission remains.
	token = rec.Header().Get("X-Session-Token")
	rec = do(t, h, "GET", "/orders", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("read status after switch = %d, want 200", rec.Code)
	}
}

func TestLogoutHandsOutFreshAnonymousToken(t *testing.T) {
	m := newTestManager(t, nil)
	h := newTestMux(m)

	login := do(t, h, "POST", "/login?user=u1", "", "")
	token := login.Header().Get("X-Session-Token")

	rec := do(t, h, "POST", "/logout", token, "")
	fresh := rec.Header().Get("X-Session-Token")
	if !strings.HasPrefix(fresh, "e+") {
		t.Fatalf("post-logout token = %q, want empty tag", fresh)
	}
	if fresh == token {
		t.Fatal("logout must rotate the token")
	}

	rec = do(t, h, "GET", "/me", fresh, "")
	if rec.Body.String() != "" {
		t.Fatalf("post-logout user = %q, want anonymous", rec.Body.String())
	}
}

func TestNilManagerIsServiceUnavailable(t *testing.T) {
	h := Session(nil)(http.NotFoundHandler())
	rec := do(t, h, "GET", "/", "", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

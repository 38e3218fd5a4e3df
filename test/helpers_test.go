//go:build integration
// +build integration

package test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	sessionauth "github.com/parlorworks/sessionauth"
	"github.com/parlorworks/sessionauth/identity"
	"github.com/parlorworks/sessionauth/middleware"
)

type fixtureDirectory struct {
	users map[string]identity.UserRecord
}

func (d *fixtureDirectory) UserByID(_ context.Context, userID string) (identity.UserRecord, error) {
	user, ok := d.users[userID]
	if !ok {
		return identity.UserRecord{}, identity.ErrUserNotFound
	}
	return user, nil
}

func (d *fixtureDirectory) PermissionsByIDs(_ context.Context, ids []string) ([]identity.Permission, error) {
	out := make([]identity.Permission, 0, len(ids))
	for _, id := range ids {
		out = append(out, identity.Permission{ID: id, Code: id, Name: id})
	}
	return out, nil
}

func (d *fixtureDirectory) RolesByIDs(_ context.Context, ids []string) ([]identity.Role, error) {
	out := make([]identity.Role, 0, len(ids))
	for _, id := range ids {
		out = append(out, identity.Role{ID: id, Name: id})
	}
	return out, nil
}

func newFixtureDirectory() *fixtureDirectory {
	return &fixtureDirectory{
		users: map[string]identity.UserRecord{
			"alice": {
				UserID:        "alice",
				Enabled:       true,
				PermissionIDs: []string{"orders.read", "acme:orders.write"},
				RoleIDs:       []string{"clerk"},
			},
			"bob": {
				UserID:        "bob",
				Enabled:       true,
				PermissionIDs: []string{"orders.read"},
			},
		},
	}
}

// newIntegrationManager builds a manager over the given Redis address so a
// test can rebuild it against the same keyspace, simulating a restart.
func newIntegrationManager(t *testing.T, addr string, mutate func(cfg *sessionauth.Config)) *sessionauth.Manager {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	cfg := sessionauth.DefaultConfig()
	cfg.MultiTenant.Enabled = true
	cfg.MultiTenant.DefaultTenant = "acme"
	cfg.Metrics.Enabled = true
	if mutate != nil {
		mutate(&cfg)
	}

	dir := newFixtureDirectory()
	manager, err := sessionauth.New().
		WithConfig(cfg).
		WithRedis(client).
		WithUserDirectory(dir).
		WithPermissionDirectory(dir).
		WithRoleDirectory(dir).
		Build()
	if err != nil {
		t.Fatalf("manager build failed: %v", err)
	}
	t.Cleanup(manager.Close)

	return manager
}

func newMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)
	return mr
}

func newAppHandler(m *sessionauth.Manager) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		s, _ := middleware.SessionFromContext(r.Context())
		if err := s.SignIn(r.Context(), r.URL.Query().Get("user")); err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("POST /logout", func(w http.ResponseWriter, r *http.Request) {
		s, _ := middleware.SessionFromContext(r.Context())
		s.SignOut(r.Context())
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("POST /cart", func(w http.ResponseWriter, r *http.Request) {
		s, _ := middleware.SessionFromContext(r.Context())
		s.SetAttribute("cart", r.URL.Query().Get("items"))
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("GET /me", func(w http.ResponseWriter, r *http.Request) {
		s, _ := middleware.SessionFromContext(r.Context())
		cart, _ := s.Attribute("cart")
		_, _ = w.Write([]byte(s.UserID() + "|" + s.TenantID() + "|" + cart))
	})

	mux.Handle("GET /orders", middleware.RequirePermissions("orders.read")(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("orders"))
		}),
	))

	mux.Handle("POST /orders", middleware.RequirePermissions("orders.read", "orders.write")(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("created"))
		}),
	))

	return middleware.Session(m)(mux)
}

func request(t *testing.T, h http.Handler, method, target, token string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, nil)
	req.RemoteAddr = "198.51.100.7:9000"
	if token != "" {
		req.Header.Set("X-Session-Token", token)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

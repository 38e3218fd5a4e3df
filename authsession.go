package sessionauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/parlorworks/sessionauth/identity"
	"github.com/parlorworks/sessionauth/session"
	"github.com/parlorworks/sessionauth/token"
)

// AuthSession is the per-request view of one session. It is created by
// [Manager.Begin], owned exclusively by the request that received it, and
// persisted by [Manager.Commit]. An AuthSession is NOT safe for
// concurrent use.
//
//	Docs: docs/session.md
type AuthSession struct {
	manager *Manager
	record  *session.Record
	token   token.Token
}

// SessionID returns the session identifier.
func (s *AuthSession) SessionID() string {
	if s == nil || s.record == nil {
		return ""
	}
	return s.record.SessionID
}

// UserID returns the bound user id, or the empty string for anonymous
// sessions.
func (s *AuthSession) UserID() string {
	if s == nil || s.record == nil {
		return ""
	}
	return s.record.UserID
}

// IsAuthenticated reports whether the session is bound to a user.
func (s *AuthSession) IsAuthenticated() bool {
	return s != nil && s.record != nil && s.record.Bound()
}

// TenantID returns the session's active tenant, or the empty string.
func (s *AuthSession) TenantID() string {
	if s == nil || s.record == nil {
		return ""
	}
	return s.record.TenantID
}

// Identity returns the cached identity resolved at sign-in, or nil for
// anonymous sessions.
func (s *AuthSession) Identity() *identity.Identity {
	if s == nil || s.record == nil {
		return nil
	}
	return s.record.Identity
}

// Token returns the session token the response should carry.
func (s *AuthSession) Token() token.Token {
	if s == nil {
		return token.Token{}
	}
	return s.token
}

// Attribute returns one session attribute value.
func (s *AuthSession) Attribute(key string) (string, bool) {
	if s == nil || s.record == nil {
		return "", false
	}
	return s.record.Attribute(key)
}

// SetAttribute stores one session attribute and marks the session for
// commit.
func (s *AuthSession) SetAttribute(key, value string) {
	if s == nil || s.record == nil {
		return
	}
	s.record.SetAttribute(key, value)
	s.token = token.MarkCached(s.token)
}

// SignIn binds the session to userID: it resolves the user's identity
// for the session's active tenant and caches it on the record. Signing
// in while already bound to a DIFFERENT user first discards the old
// session entirely — id, attributes, identity — so nothing leaks across
// users.
//
// The userID is supplied by the caller's own credential check; SignIn
// performs no password or factor verification.
//
//	Docs: docs/session.md
func (s *AuthSession) SignIn(ctx context.Context, userID string) error {
	if s == nil || s.manager == nil || s.record == nil {
		return ErrManagerNotReady
	}

	if s.record.Bound() && s.record.UserID != userID {
		s.clear()
	}

	resolved, err := s.manager.resolver.Resolve(ctx, userID, s.record.TenantID)
	if err != nil {
		s.manager.metricInc(MetricSignInFailure)
		s.manager.auditEmit(ctx, AuditEvent{
			Timestamp: time.Now(),
			EventType: AuditSignInFailed,
			UserID:    userID,
			TenantID:  s.record.TenantID,
			SessionID: s.record.SessionID,
			IP:        clientIPFromContext(ctx),
			Success:   false,
			Error:     err.Error(),
		})
		return fmt.Errorf("%w: %w", ErrIdentityResolutionFailed, err)
	}

	s.record.SetUserID(userID)
	s.record.SetIdentity(resolved)
	s.token = token.MarkCached(s.token)

	s.manager.metricInc(MetricSignInSuccess)
	s.manager.auditEmit(ctx, AuditEvent{
		Timestamp: time.Now(),
		EventType: AuditSignIn,
		UserID:    userID,
		TenantID:  s.record.TenantID,
		SessionID: s.record.SessionID,
		IP:        clientIPFromContext(ctx),
		Success:   true,
	})
	return nil
}

// SignOut discards the current session and replaces it with a fresh
// anonymous one. The old durable record is left to expire on its own;
// call the store's Delete directly when an immediate revocation sweep is
// required.
//
//	Docs: docs/session.md
func (s *AuthSession) SignOut(ctx context.Context) {
	if s == nil || s.manager == nil || s.record == nil {
		return
	}

	if s.record.Bound() {
		s.manager.metricInc(MetricSignOut)
		s.manager.auditEmit(ctx, AuditEvent{
			Timestamp: time.Now(),
			EventType: AuditSignOut,
			UserID:    s.record.UserID,
			TenantID:  s.record.TenantID,
			SessionID: s.record.SessionID,
			IP:        clientIPFromContext(ctx),
			Success:   true,
		})
	}

	s.clear()
}

// SetTenantID switches the session's active tenant. For a bound session
// the identity is re-resolved under the new tenant; if resolution fails
// the session is discarded rather than left with a stale permission set.
// A multi-tenant deployment cannot clear the tenant: the empty tenant id
// is rejected with [ErrTenantRequired].
func (s *AuthSession) SetTenantID(ctx context.Context, tenantID string) error {
	if s == nil || s.manager == nil || s.record == nil {
		return ErrManagerNotReady
	}
	if tenantID == "" && s.manager.config.MultiTenant.Enabled {
		return ErrTenantRequired
	}
	if s.record.TenantID == tenantID {
		return nil
	}

	s.record.SetTenantID(tenantID)
	s.token = token.MarkCached(s.token)

	if !s.record.Bound() {
		return nil
	}

	resolved, err := s.manager.resolver.Resolve(ctx, s.record.UserID, tenantID)
	if err != nil {
		s.clear()
		return fmt.Errorf("%w: %w", ErrIdentityResolutionFailed, err)
	}
	s.record.SetIdentity(resolved)
	return nil
}

// RequirePermissions checks that the session is authenticated and that
// its cached identity carries EVERY one of the given permission codes.
// It returns [ErrNoSession] for anonymous sessions and [ErrUnauthorized]
// when any code is missing.
//
//	Docs: docs/identity.md
func (s *AuthSession) RequirePermissions(codes ...string) error {
	if s == nil || s.record == nil || !s.record.Bound() || s.record.Identity == nil {
		return ErrNoSession
	}

	for _, code := range codes {
		if !s.record.Identity.HasCode(code) {
			if s.manager != nil {
				s.manager.metricInc(MetricPermissionDenied)
				s.manager.auditEmit(context.Background(), AuditEvent{
					Timestamp: time.Now(),
					EventType: AuditPermissionDenied,
					UserID:    s.record.UserID,
					TenantID:  s.record.TenantID,
					SessionID: s.record.SessionID,
					Success:   false,
					Error:     fmt.Sprintf("missing permission %q", code),
				})
			}
			return fmt.Errorf("%w: missing permission %q", ErrUnauthorized, code)
		}
	}
	return nil
}

// clear replaces the session with a fresh anonymous one under a new id.
// The replacement starts clean: a request that only signs out of an
// unsaved session writes nothing.
func (s *AuthSession) clear() {
	tok := token.New()
	ttl := s.manager.config.Session.AnonymousTTL
	s.record = session.NewRecord(tok.GUID.String(), time.Now(), ttl)
	s.token = tok
}

// IsNoSession reports whether err means the request had no authenticated
// session.
func IsNoSession(err error) bool {
	return errors.Is(err, ErrNoSession)
}

// IsUnauthorized reports whether err means the session lacked a required
// permission.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

package sessionauth

import (
	"context"
	"log"
	"time"

	"github.com/parlorworks/sessionauth/identity"
	"github.com/parlorworks/sessionauth/session"
	"github.com/parlorworks/sessionauth/token"
)

// Manager drives the per-request session protocol: [Manager.Begin] loads
// or mints the session before the handler runs, [Manager.Commit] persists
// it afterwards. A Manager is safe for concurrent use; each request owns
// its [AuthSession] exclusively.
//
// Manager instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Manager struct {
	config   Config
	store    *session.Store
	resolver *identity.Resolver
	audit    *auditDispatcher
	metrics  *Metrics
}

// TokenHeader returns the configured session token header name.
func (m *Manager) TokenHeader() string {
	if m == nil {
		return ""
	}
	return m.config.Session.TokenHeader
}

// TenantHeader returns the tenant header name and whether multi-tenancy
// is enabled.
func (m *Manager) TenantHeader() (string, bool) {
	if m == nil || !m.config.MultiTenant.Enabled {
		return "", false
	}
	return m.config.MultiTenant.TenantHeader, true
}

// Begin decodes the raw client token, hydrates or mints the session
// record, and hands the request exclusive ownership of it. Begin never
// fails: malformed tokens and storage outages degrade to a fresh
// anonymous session.
//
//	Docs: docs/middleware.md
func (m *Manager) Begin(ctx context.Context, rawToken string) *AuthSession {
	if m == nil || m.store == nil {
		return nil
	}

	tok := token.Decode(rawToken)
	rec, tok, outcome := m.store.LoadOrInit(ctx, tok)

	switch outcome {
	case session.LoadCreated:
		m.metricInc(MetricSessionCreated)
		m.auditEmit(ctx, AuditEvent{
			Timestamp: time.Now(),
			EventType: AuditSessionCreated,
			SessionID: rec.SessionID,
			IP:        clientIPFromContext(ctx),
			Success:   true,
		})
	case session.LoadResumedDurable:
		m.metricInc(MetricSessionResumedDurable)
		m.auditEmit(ctx, AuditEvent{
			Timestamp: time.Now(),
			EventType: AuditSessionResumed,
			UserID:    rec.UserID,
			TenantID:  rec.TenantID,
			SessionID: rec.SessionID,
			IP:        clientIPFromContext(ctx),
			Success:   true,
		})
	case session.LoadResumedMemory:
		m.metricInc(MetricSessionResumedMemory)
	}

	if m.config.MultiTenant.Enabled && rec.TenantID == "" && m.config.MultiTenant.DefaultTenant != "" {
		// Seeding the default tenant is not a mutation worth a commit.
		rec.TenantID = m.config.MultiTenant.DefaultTenant
	}

	return &AuthSession{
		manager: m,
		record:  rec,
		token:   tok,
	}
}

// Commit persists the session if it was mutated during the request and
// returns the token the response must carry. The expiry window is
// recomputed here — long idle timeout for bound sessions, short
// memory-clear timeout for anonymous ones — so handlers never manage
// expiry themselves.
//
// A failed commit is logged and counted, never propagated: losing a
// session write degrades to "client must re-authenticate sooner than
// expected", not to a failed request.
//
//	Docs: docs/middleware.md
func (m *Manager) Commit(ctx context.Context, s *AuthSession) string {
	if m == nil || s == nil || s.record == nil {
		return ""
	}

	if !s.record.Dirty() {
		m.metricInc(MetricCommitSkipped)
		return s.token.String()
	}

	now := time.Now()
	if s.record.Bound() {
		s.record.SetExpiry(now.Add(m.config.Session.AuthenticatedTTL))
	} else {
		s.record.SetExpiry(now.Add(m.config.Session.AnonymousTTL))
	}

	start := time.Now()
	if err := m.store.Save(ctx, s.record); err != nil {
		log.Print("sessionauth: session commit failed")
		m.metricInc(MetricCommitFailure)
		m.auditEmit(ctx, AuditEvent{
			Timestamp: time.Now(),
			EventType: AuditCommitFailed,
			UserID:    s.record.UserID,
			TenantID:  s.record.TenantID,
			SessionID: s.record.SessionID,
			IP:        clientIPFromContext(ctx),
			Success:   false,
			Error:     err.Error(),
		})
	} else {
		m.metrics.ObserveCommitLatency(time.Since(start))
		m.metricInc(MetricCommitSuccess)
		s.record.MarkClean()
	}

	// The session has been written (or at least attempted): the client's
	// next lookup should go straight to storage.
	s.token = token.MarkCached(s.token)
	return s.token.String()
}

// Close stops the audit dispatcher, draining buffered events.
func (m *Manager) Close() {
	if m == nil {
		return
	}
	if m.audit != nil {
		m.audit.Close()
	}
}

// AuditDropped reports how many audit events were dropped because the
// dispatcher buffer was full.
func (m *Manager) AuditDropped() uint64 {
	if m == nil || m.audit == nil {
		return 0
	}
	return m.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time deep copy of all metrics.
func (m *Manager) MetricsSnapshot() MetricsSnapshot {
	if m == nil || m.metrics == nil {
		return MetricsSnapshot{
			Counters: map[MetricID]uint64{},
		}
	}
	return m.metrics.Snapshot()
}

func (m *Manager) metricInc(id MetricID) {
	if m == nil || m.metrics == nil {
		return
	}
	m.metrics.Inc(id)
}

func (m *Manager) auditEmit(ctx context.Context, event AuditEvent) {
	if m == nil || m.audit == nil {
		return
	}
	m.audit.Emit(ctx, event)
}

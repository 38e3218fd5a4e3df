package session

import (
	"time"

	"github.com/parlorworks/sessionauth/identity"
)

// Record is the in-memory representation of one session. While a request is
// being processed the request owns its Record exclusively; the store hands
// out deep copies and accepts updated copies back, so no per-record locking
// exists.
//
// TenantID and Identity are typed fields rather than entries in the generic
// attribute bag: the identity cache is structured data and parsing it out
// of a string map on every read invites drift.
type Record struct {
	SchemaVersion uint8

	SessionID string
	UserID    string // "" = anonymous
	TenantID  string

	Attributes map[string]string
	Identity   *identity.Identity

	InitTime  int64 // unix seconds
	ExpiresAt int64 // unix seconds

	dirty bool // transient, never encoded
}

// NewRecord creates a fresh anonymous record expiring after ttl.
func NewRecord(sessionID string, now time.Time, ttl time.Duration) *Record {
	return &Record{
		SchemaVersion: CurrentSchemaVersion,
		SessionID:     sessionID,
		Attributes:    make(map[string]string),
		InitTime:      now.Unix(),
		ExpiresAt:     now.Add(ttl).Unix(),
	}
}

// Bound reports whether the record carries a user binding.
func (r *Record) Bound() bool {
	return r != nil && r.UserID != ""
}

// Expired reports whether the record's expiry has passed at now.
func (r *Record) Expired(now time.Time) bool {
	return r == nil || now.Unix() >= r.ExpiresAt
}

// Dirty reports whether the record has been mutated since the last commit.
func (r *Record) Dirty() bool {
	return r != nil && r.dirty
}

// MarkClean resets the dirty flag after a successful commit.
func (r *Record) MarkClean() {
	if r != nil {
		r.dirty = false
	}
}

// SetUserID binds (or unbinds) the record to a user and marks it dirty.
func (r *Record) SetUserID(userID string) {
	r.UserID = userID
	r.dirty = true
}

// SetTenantID records the active tenant context and marks the record dirty.
func (r *Record) SetTenantID(tenantID string) {
	r.TenantID = tenantID
	r.dirty = true
}

// SetAttribute stores one session-scoped key/value pair and marks the
// record dirty.
func (r *Record) SetAttribute(key, value string) {
	if r.Attributes == nil {
		r.Attributes = make(map[string]string)
	}
	r.Attributes[key] = value
	r.dirty = true
}

// Attribute reads one session-scoped value.
func (r *Record) Attribute(key string) (string, bool) {
	v, ok := r.Attributes[key]
	return v, ok
}

// SetIdentity replaces the cached resolved identity and marks the record
// dirty. Pass nil to drop the cache.
func (r *Record) SetIdentity(id *identity.Identity) {
	r.Identity = id
	r.dirty = true
}

// SetExpiry moves the expiry timestamp without marking the record dirty;
// expiry is recomputed by the commit path, not by handlers.
func (r *Record) SetExpiry(at time.Time) {
	r.ExpiresAt = at.Unix()
}

// Clone returns a deep copy of the record. The copy starts clean.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}

	out := &Record{
		SchemaVersion: r.SchemaVersion,
		SessionID:     r.SessionID,
		UserID:        r.UserID,
		TenantID:      r.TenantID,
		Identity:      r.Identity.Clone(),
		InitTime:      r.InitTime,
		ExpiresAt:     r.ExpiresAt,
		Attributes:    make(map[string]string, len(r.Attributes)),
	}
	for k, v := range r.Attributes {
		out.Attributes[k] = v
	}
	return out
}

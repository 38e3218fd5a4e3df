package sessionauth

import (
	"errors"
	"time"
)

// Config defines a public type used by sessionauth APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Session     SessionConfig
	MultiTenant MultiTenantConfig
	Audit       AuditConfig
	Metrics     MetricsConfig
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig defines a public type used by sessionauth APIs.
//
// SessionConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SessionConfig struct {
	// TokenHeader carries the session token on both the request and the
	// response. A header rather than a cookie, to support non-browser
	// clients.
	TokenHeader string
	RedisPrefix string

	// AnonymousTTL is the memory-clear window for anonymous sessions.
	AnonymousTTL time.Duration
	// AuthenticatedTTL is the idle window for user-bound sessions.
	AuthenticatedTTL time.Duration

	// MemorySweepLimit caps how many memory-tier entries one commit may
	// visit while evicting expired sessions. <= 0 means unlimited.
	MemorySweepLimit int
}

/*
====================================
MULTI TENANT CONFIG
====================================
*/

// MultiTenantConfig defines a public type used by sessionauth APIs.
//
// MultiTenantConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MultiTenantConfig struct {
	Enabled       bool
	TenantHeader  string
	DefaultTenant string
}

// AuditConfig defines a public type used by sessionauth APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by sessionauth APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the baseline configuration: ten-minute anonymous
// window, 24-hour authenticated idle window, token on X-Session-Token.
func DefaultConfig() Config {
	return Config{
		Session: SessionConfig{
			TokenHeader:      "X-Session-Token",
			RedisPrefix:      "sa",
			AnonymousTTL:     10 * time.Minute,
			AuthenticatedTTL: 24 * time.Hour,
			MemorySweepLimit: 256,
		},
		MultiTenant: MultiTenantConfig{
			Enabled:       false,
			TenantHeader:  "X-Tenant-ID",
			DefaultTenant: "",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c Config) Validate() error {
	if c.Session.TokenHeader == "" {
		return errors.New("Session.TokenHeader must not be empty")
	}
	if c.Session.AnonymousTTL <= 0 {
		return errors.New("Session.AnonymousTTL must be positive")
	}
	if c.Session.AuthenticatedTTL <= 0 {
		return errors.New("Session.AuthenticatedTTL must be positive")
	}
	if c.Session.AuthenticatedTTL < c.Session.AnonymousTTL {
		return errors.New("Session.AuthenticatedTTL must not be shorter than AnonymousTTL")
	}
	if c.MultiTenant.Enabled && c.MultiTenant.TenantHeader == "" {
		return errors.New("MultiTenant.TenantHeader must not be empty when multi-tenancy is enabled")
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit.BufferSize must be positive when audit is enabled")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	// All fields are value types; a shallow copy is a deep copy.
	return cfg
}

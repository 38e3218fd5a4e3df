package sessionauth

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/parlorworks/sessionauth/identity"
	"github.com/parlorworks/sessionauth/session"
	"github.com/parlorworks/sessionauth/session/redisstore"
)

// Builder defines a public type used by sessionauth APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	durable session.DurableStore

	users       identity.UserDirectory
	permissions identity.PermissionDirectory
	roles       identity.RoleDirectory

	auditSink AuditSink

	built bool
}

// New creates a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the builder's configuration with a copy of cfg.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the Redis client backing the durable session tier.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithDurableStore sets a custom durable session tier, overriding Redis.
func (b *Builder) WithDurableStore(store session.DurableStore) *Builder {
	b.durable = store
	return b
}

// WithUserDirectory sets the collaborator that looks up user records.
func (b *Builder) WithUserDirectory(dir identity.UserDirectory) *Builder {
	b.users = dir
	return b
}

// WithPermissionDirectory sets the collaborator that hydrates permission
// descriptors.
func (b *Builder) WithPermissionDirectory(dir identity.PermissionDirectory) *Builder {
	b.permissions = dir
	return b
}

// WithRoleDirectory sets the collaborator that hydrates role descriptors.
func (b *Builder) WithRoleDirectory(dir identity.RoleDirectory) *Builder {
	b.roles = dir
	return b
}

// WithAuditSink sets the sink receiving audit events. Audit must also be
// enabled in the configuration.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles the in-process metrics counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the commit-latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, wires the two session tiers and the
// identity resolver, and returns a ready [Manager]. A Builder can be used
// once.
func (b *Builder) Build() (*Manager, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	b.built = true

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	durable := b.durable
	if durable == nil {
		if b.redis == nil {
			return nil, errors.New("redis client or durable store required")
		}
		durable = redisstore.New(b.redis, cfg.Session.RedisPrefix)
	}

	if b.users == nil {
		return nil, errors.New("user directory required")
	}
	if b.permissions == nil {
		return nil, errors.New("permission directory required")
	}
	if b.roles == nil {
		return nil, errors.New("role directory required")
	}

	metrics := NewMetrics(cfg.Metrics)

	// -------- SESSION STORE --------
	store := session.NewStore(durable, session.Config{
		AnonymousTTL:     cfg.Session.AnonymousTTL,
		AuthenticatedTTL: cfg.Session.AuthenticatedTTL,
		SweepLimit:       cfg.Session.MemorySweepLimit,
	})
	store.OnDurableFallback = func() {
		metrics.Inc(MetricDurableFallback)
	}
	store.OnEvict = func(n int) {
		metrics.Add(MetricMemoryEviction, uint64(n))
	}

	// -------- IDENTITY RESOLVER --------
	resolver := identity.NewResolver(b.users, b.permissions, b.roles)

	manager := &Manager{
		config:   cfg,
		store:    store,
		resolver: resolver,
		metrics:  metrics,
	}
	manager.audit = newAuditDispatcher(cfg.Audit, b.auditSink)

	return manager, nil
}

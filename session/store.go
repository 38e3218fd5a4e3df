package session

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/parlorworks/sessionauth/token"
)

// ErrNotFound is returned by a [DurableStore] when no record exists for
// the given session id.
var ErrNotFound = errors.New("session not found")

// ErrUnavailable wraps durable-tier backend outages.
var ErrUnavailable = errors.New("session store unavailable")

// DurableStore is the external collaborator contract for the durable tier.
// Implementations must be safe for concurrent use; Load returns
// [ErrNotFound] for unknown ids and wraps outages in [ErrUnavailable].
type DurableStore interface {
	Store(ctx context.Context, rec *Record, ttl time.Duration) error
	Load(ctx context.Context, sessionID string) (*Record, error)
	Delete(ctx context.Context, sessionID string) error
}

// LoadOutcome reports where LoadOrInit found (or did not find) a session.
type LoadOutcome uint8

const (
	// LoadCreated means no usable record existed and a fresh anonymous
	// session was minted under a fresh token.
	LoadCreated LoadOutcome = iota
	// LoadResumedDurable means the record was hydrated from the durable tier.
	LoadResumedDurable
	// LoadResumedMemory means the record was hydrated from the memory tier.
	LoadResumedMemory
)

// Config carries the two-tier lifetime policy.
type Config struct {
	// AnonymousTTL is the memory-clear window for anonymous sessions,
	// measured from last write.
	AnonymousTTL time.Duration
	// AuthenticatedTTL is the idle window for bound sessions.
	AuthenticatedTTL time.Duration
	// SweepLimit caps how many memory-tier entries one save may visit
	// while evicting expired sessions. <= 0 means unlimited.
	SweepLimit int
}

// Store orchestrates the two-tier persistence policy. Anonymous records
// live only in the memory tier; bound records are written through to the
// durable tier. No other component may write sessions directly.
//
//	Docs: docs/session.md
type Store struct {
	durable DurableStore
	memory  *memoryTier
	cfg     Config

	// OnDurableFallback is invoked when a durable-tier lookup fails with
	// an outage and the load degrades to the memory tier. Optional.
	OnDurableFallback func()
	// OnEvict is invoked with the number of memory-tier entries removed
	// by a sweep. Optional.
	OnEvict func(n int)
}

// NewStore creates a two-tier [Store] over the given durable adapter.
func NewStore(durable DurableStore, cfg Config) *Store {
	if cfg.AnonymousTTL <= 0 {
		cfg.AnonymousTTL = 10 * time.Minute
	}
	if cfg.AuthenticatedTTL <= 0 {
		cfg.AuthenticatedTTL = 24 * time.Hour
	}

	return &Store{
		durable: durable,
		memory:  newMemoryTier(),
		cfg:     cfg,
	}
}

// Config returns the store's lifetime policy.
func (s *Store) Config() Config {
	return s.cfg
}

// LoadOrInit resolves a decoded token into a live record: durable tier
// first (so a bound session survives memory eviction and restarts), then
// memory tier, else a fresh anonymous record under a fresh token. Expired
// records are never returned and an expired token's guid is never reused.
//
// A durable-tier outage is logged and degrades to the next source; it is
// never surfaced to the request.
func (s *Store) LoadOrInit(ctx context.Context, tok token.Token) (*Record, token.Token, LoadOutcome) {
	now := time.Now()
	guid := tok.GUID.String()

	if s.durable != nil {
		rec, err := s.durable.Load(ctx, guid)
		switch {
		case err == nil:
			if !rec.Expired(now) {
				return rec, tok, LoadResumedDurable
			}
		case errors.Is(err, ErrNotFound):
			// fall through to the memory tier
		default:
			log.Print("sessionauth: durable session load failed, falling back")
			if s.OnDurableFallback != nil {
				s.OnDurableFallback()
			}
		}
	}

	if rec, ok := s.memory.get(guid, now); ok {
		return rec, tok, LoadResumedMemory
	}

	fresh := token.New()
	rec := NewRecord(fresh.GUID.String(), now, s.cfg.AnonymousTTL)
	return rec, fresh, LoadCreated
}

// Save writes a record to the tier its user binding selects: durable for
// bound records, memory for anonymous ones. Every save also runs a
// best-effort eviction pass over the memory tier.
//
// Save may return an error when input validation, dependency calls, or security checks fail.
// Save does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) Save(ctx context.Context, rec *Record) error {
	if rec == nil || rec.SessionID == "" {
		return errors.New("nil or incomplete session record")
	}
	if _, err := uuid.Parse(rec.SessionID); err != nil {
		return errors.New("session id is not a uuid")
	}

	now := time.Now()
	if evicted := s.memory.sweep(now, s.cfg.SweepLimit); evicted > 0 && s.OnEvict != nil {
		s.OnEvict(evicted)
	}

	if !rec.Bound() {
		s.memory.put(rec)
		return nil
	}

	if s.durable == nil {
		return errors.New("no durable tier configured for bound session")
	}

	ttl := time.Until(time.Unix(rec.ExpiresAt, 0))
	if ttl <= 0 {
		ttl = time.Second
	}
	if err := s.durable.Store(ctx, rec, ttl); err != nil {
		return err
	}

	// The record may have lived in the memory tier before sign-in; a
	// stale anonymous copy must not shadow the durable one.
	s.memory.delete(rec.SessionID)
	return nil
}

// MemoryLen reports the number of memory-tier entries. Intended for tests
// and diagnostics, not request paths.
func (s *Store) MemoryLen() int {
	return s.memory.len()
}

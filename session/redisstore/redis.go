// Package redisstore implements the session.DurableStore contract on top
// of Redis using the compact binary record codec. It is the durable tier
// shipped with sessionauth; deployments with a relational session table
// supply their own DurableStore instead.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/parlorworks/sessionauth/session"
)

// Store is a Redis-backed durable tier for bound sessions.
//
//	Performance: 1 Redis command per operation (SET / GET / DEL).
//	Docs: docs/session.md
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// New creates a [Store] backed by the given Redis client. prefix sets the
// key namespace; the empty string defaults to "sa".
func New(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "sa"
	}
	return &Store{
		redis:  client,
		prefix: prefix,
	}
}

func (s *Store) key(sessionID string) string {
	return s.prefix + ":" + sessionID
}

// Store persists a record with the given TTL.
func (s *Store) Store(ctx context.Context, rec *session.Record, ttl time.Duration) error {
	data, err := session.Encode(rec)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = time.Second
	}

	if err := s.redis.Set(ctx, s.key(rec.SessionID), data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", session.ErrUnavailable, err)
	}
	return nil
}

// Load retrieves a record by session id. A blob stored under a legacy
// schema is migrated forward in place, preserving its remaining TTL.
func (s *Store) Load(ctx context.Context, sessionID string) (*session.Record, error) {
	key := s.key(sessionID)

	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, session.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", session.ErrUnavailable, err)
	}

	rec, err := session.Decode(data)
	if err != nil {
		return nil, err
	}

	if session.SchemaVersionOf(data) != session.CurrentSchemaVersion {
		if err := s.migrateSchema(ctx, key, rec); err != nil {
			return nil, err
		}
	}

	return rec, nil
}

// Delete removes a record. Deleting an unknown id is not an error, so
// revocation stays idempotent.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if err := s.redis.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", session.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) migrateSchema(ctx context.Context, key string, rec *session.Record) error {
	pttl, err := s.redis.PTTL(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", session.ErrUnavailable, err)
	}
	if pttl <= 0 {
		return nil
	}

	rec.SchemaVersion = session.CurrentSchemaVersion
	encoded, err := session.Encode(rec)
	if err != nil {
		return err
	}

	if err := s.redis.Set(ctx, key, encoded, pttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", session.ErrUnavailable, err)
	}
	return nil
}

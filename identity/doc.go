// Package identity resolves a user identifier into the effective permission
// and role set under an active tenant.
//
// # Permission scoping
//
// A user's raw permission-id list mixes two forms: a bare id, which applies
// under every tenant, and a compound "<tenant>:<permission>" id, which
// applies only under that tenant. [EffectivePermissionIDs] implements the
// decoding rule; [Resolver.Resolve] loads the matching enabled permission
// and role records through the directory collaborators.
//
// # Architecture boundaries
//
// This package defines the directory contracts and the resolution rule. It
// does NOT cache identities, own session state, or enforce authorization —
// those responsibilities belong to the auth session.
//
// # What this package must NOT do
//
//   - Import session, token, or sessionauth (no upward imports).
//   - Return disabled records from a resolution.
//   - Persist anything.
package identity

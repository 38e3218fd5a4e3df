// Package session provides the session record model, its compact binary
// encoding, and the two-tier store that decides where a record lives.
//
// # Two tiers
//
// Anonymous records (no user binding) live only in an in-process memory
// tier with a short idle window; they are disposable and vanish on restart.
// Records bound to a user are written through to a [DurableStore] and
// survive both memory-tier eviction and process restarts. [Store.Save] is
// the single choke point enforcing that policy.
//
// # Binary encoding
//
// Records are persisted in a compact binary format (schema versions v1–v2)
// with forward migration on read. The encoder is append-only: new versions
// add fields but never reinterpret old ones.
//
// # Architecture boundaries
//
// This package owns the [Record] model and both storage tiers. It does NOT
// parse tokens beyond reading their guid, resolve identities, or enforce
// authorization — those responsibilities belong to token, identity, and the
// auth session.
//
// # What this package must NOT do
//
//   - Import sessionauth or middleware (no upward imports).
//   - Write anonymous records to the durable tier.
//   - Surface a durable-tier outage as a request failure.
package session

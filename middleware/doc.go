// Package middleware exposes HTTP adapters for the session layer built on
// top of sessionauth.Manager.
//
// # Adapters
//
//   - [Session] — loads (or mints) the session before the handler runs,
//     commits it afterwards, and emits the session token response header.
//   - [RequireAuthenticated] — rejects anonymous requests with 401.
//   - [RequirePermissions] — rejects sessions missing any required
//     permission code with 403.
//
// [Session] must be outermost; the guards read the session it injected
// into the request context.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Manager calls. It does NOT
// implement session logic itself — loading, committing, and permission
// decisions are delegated to the Manager and its AuthSession.
//
// # What this package must NOT do
//
//   - Touch session storage directly (the Manager owns both tiers).
//   - Mutate session records beyond what AuthSession exposes.
//   - Make authorization decisions beyond pass/reject from
//     AuthSession.RequirePermissions.
package middleware

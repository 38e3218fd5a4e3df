// Package token implements the opaque session token exchanged with HTTP
// clients: a lifecycle tag plus a UUID, wire form "<tag>+<uuid>".
//
// # Lifecycle tags
//
// "e" (empty) marks a token that has never been associated with a stored
// session. "c" (cached) marks a token whose session has been written at
// least once, to either storage tier. The tag is a client-side lookup hint
// only; the server never treats it as proof that the session exists.
//
// # Architecture boundaries
//
// This package is a pure codec with no I/O. Malformed input never produces
// an error: it degrades to a freshly minted empty token so the middleware
// can always produce some session.
//
// # What this package must NOT do
//
//   - Access Redis, databases, or the network.
//   - Import session, identity, or sessionauth (no upward imports).
//   - Embed claims or any self-describing state beyond the tag.
package token

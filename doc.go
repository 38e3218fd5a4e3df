// Package sessionauth is the session-and-identity middleware layer for a
// multi-tenant HTTP application: it tracks a client across requests via an
// opaque header token, keeps anonymous sessions in process memory while
// persisting authenticated ones durably, and resolves an authenticated
// session into tenant-scoped permissions that handlers consult through
// [AuthSession.RequirePermissions].
//
// Construction goes through the [Builder]:
//
//	manager, err := sessionauth.New().
//		WithRedis(rdb).
//		WithUserDirectory(users).
//		WithPermissionDirectory(permissions).
//		WithRoleDirectory(roles).
//		Build()
//
// The [Manager] drives the per-request protocol — [Manager.Begin] before
// the handler, [Manager.Commit] after — and the middleware package wires
// that protocol into a net/http pipeline.
//
// Nothing in this package is fatal to the process: malformed tokens, a
// durable-tier outage, and a failed commit all degrade to "treat the
// session as absent" rather than failing the request.
package sessionauth

package identity

import (
	"context"
	"errors"
)

// ErrUserNotFound is returned when the user record does not exist.
var ErrUserNotFound = errors.New("user not found")

// ErrUserDisabled is returned when the user record exists but is disabled.
// Callers must treat it the same as [ErrUserNotFound]: no valid session.
var ErrUserDisabled = errors.New("user disabled")

// ErrDirectoryUnavailable wraps directory backend failures.
var ErrDirectoryUnavailable = errors.New("directory unavailable")

// UserRecord is the raw user row returned by a [UserDirectory].
// PermissionIDs may mix bare and "<tenant>:<permission>" compound ids.
type UserRecord struct {
	UserID        string
	Enabled       bool
	PermissionIDs []string
	RoleIDs       []string
}

// UserDirectory is the user-record collaborator contract. Implementations
// return [ErrUserNotFound] for unknown ids.
type UserDirectory interface {
	UserByID(ctx context.Context, userID string) (UserRecord, error)
}

// PermissionDirectory loads permission records for a resolved id set.
// Disabled records must be filtered out; unknown ids are silently skipped.
type PermissionDirectory interface {
	PermissionsByIDs(ctx context.Context, ids []string) ([]Permission, error)
}

// RoleDirectory loads role records for an id set. Disabled records must be
// filtered out; unknown ids are silently skipped.
type RoleDirectory interface {
	RolesByIDs(ctx context.Context, ids []string) ([]Role, error)
}

// Resolver computes the effective [Identity] for a user under a tenant.
//
// Resolver instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Resolver struct {
	users       UserDirectory
	permissions PermissionDirectory
	roles       RoleDirectory
}

// NewResolver creates a [Resolver] over the three directory collaborators.
func NewResolver(users UserDirectory, permissions PermissionDirectory, roles RoleDirectory) *Resolver {
	return &Resolver{
		users:       users,
		permissions: permissions,
		roles:       roles,
	}
}

// Resolve loads the user record, applies the tenant scoping rule against
// tenantID (which may be empty when no tenant has been chosen), and returns
// the identity with enabled permission and role records attached.
//
// Resolve may return an error when input validation, dependency calls, or security checks fail.
// Resolve does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (r *Resolver) Resolve(ctx context.Context, userID, tenantID string) (*Identity, error) {
	if r == nil || r.users == nil {
		return nil, ErrDirectoryUnavailable
	}

	user, err := r.users.UserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.Enabled {
		return nil, ErrUserDisabled
	}

	id := &Identity{UserID: user.UserID}

	effective := EffectivePermissionIDs(user.PermissionIDs, tenantID)
	if len(effective) > 0 && r.permissions != nil {
		perms, err := r.permissions.PermissionsByIDs(ctx, effective)
		if err != nil {
			return nil, err
		}
		id.Permissions = perms
	}

	if len(user.RoleIDs) > 0 && r.roles != nil {
		roles, err := r.roles.RolesByIDs(ctx, user.RoleIDs)
		if err != nil {
			return nil, err
		}
		id.Roles = roles
	}

	return id, nil
}

package identity

// Permission is one resolved permission record. Code is the value handlers
// check against; ID is the raw grant identifier from the user record.
type Permission struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Role is one resolved role record.
type Role struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Identity is the resolved permission and role set for a user under one
// tenant context. It is derived state: recompute it whenever the user
// binding or the active tenant changes.
//
// Identity instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Identity struct {
	UserID      string       `json:"user_id"`
	Permissions []Permission `json:"permissions,omitempty"`
	Roles       []Role       `json:"roles,omitempty"`
}

// HasCode reports whether the identity carries the given permission code.
func (id *Identity) HasCode(code string) bool {
	if id == nil {
		return false
	}
	for i := range id.Permissions {
		if id.Permissions[i].Code == code {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the identity.
func (id *Identity) Clone() *Identity {
	if id == nil {
		return nil
	}
	out := &Identity{UserID: id.UserID}
	if len(id.Permissions) > 0 {
		out.Permissions = append([]Permission(nil), id.Permissions...)
	}
	if len(id.Roles) > 0 {
		out.Roles = append([]Role(nil), id.Roles...)
	}
	return out
}

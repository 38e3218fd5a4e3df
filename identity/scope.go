package identity

import "strings"

// EffectivePermissionIDs applies the tenant scoping rule to a raw
// permission-id list: bare ids always apply, "<tenant>:<permission>"
// compound ids apply only when tenant equals the active tenant, and
// compound ids for other tenants are dropped.
//
// The split happens at the first colon, so a tenant id must not contain a
// colon while a permission id may. Order is preserved and duplicates are
// removed.
//
//	Docs: docs/identity.md
func EffectivePermissionIDs(raw []string, tenantID string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))

	add := func(id string) {
		if id == "" {
			return
		}
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}

	for _, id := range raw {
		scope, rest, compound := strings.Cut(id, ":")
		if !compound {
			add(id)
			continue
		}
		if tenantID != "" && scope == tenantID {
			add(rest)
		}
	}

	return out
}

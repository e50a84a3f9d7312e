package authz

import "github.com/flowdeck/flowdeck/pkg/tenant"

// Subject carries the caller attributes the resolver consumes. It is a plain
// value so the resolver stays side-effect-free and exhaustively testable.
type Subject struct {
	UserID             string
	Email              string
	IsSystemAdmin      bool
	IsWorkspaceManager bool
}

// EffectiveRole computes the single role governing sub inside tenantID.
// membershipRole is the explicit active team membership role, or RoleNone
// when no membership row exists. The second return is false when the subject
// has no access to the tenant at all; callers must not default that to any
// role.
//
// Precedence is strict and short-circuiting:
//  1. system admin -> admin in every tenant, overriding membership roles
//  2. the subject's own personal tenant -> admin with the workspace-manager
//     flag, editor without (personal tenants have no operator tier)
//  3. team tenant -> the explicit membership role only
func EffectiveRole(sub Subject, tenantID string, membershipRole Role) (Role, bool) {
	if sub.IsSystemAdmin {
		return RoleAdmin, true
	}
	if tenant.IsPersonalID(tenantID) && tenantID == tenant.PersonalID(sub.Email) {
		if sub.IsWorkspaceManager {
			return RoleAdmin, true
		}
		return RoleEditor, true
	}
	if membershipRole.Valid() {
		return membershipRole, true
	}
	return RoleNone, false
}

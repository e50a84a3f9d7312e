package authz

import "strings"

// Role represents the fixed tenant-level permission tiers.
type Role string

const (
	RoleAdmin    Role = "admin"    // Full control inside the tenant
	RoleEditor   Role = "editor"   // Can create and modify tenant data
	RoleOperator Role = "operator" // Can run and observe, not modify
)

// RoleNone is the zero value: no role resolved.
const RoleNone Role = ""

// ParseRole normalizes a role string. Comparison is case-insensitive.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleEditor:
		return RoleEditor, true
	case RoleOperator:
		return RoleOperator, true
	}
	return RoleNone, false
}

// Equal compares roles case-insensitively.
func (r Role) Equal(other Role) bool {
	return strings.EqualFold(string(r), string(other))
}

// Valid reports whether r is one of the fixed tiers.
func (r Role) Valid() bool {
	_, ok := ParseRole(string(r))
	return ok
}

// AtLeast reports whether r grants everything tier grants. The tiers are
// strictly ordered admin > editor > operator.
func (r Role) AtLeast(tier Role) bool {
	return r.rank() >= tier.rank()
}

func (r Role) rank() int {
	switch {
	case r.Equal(RoleAdmin):
		return 3
	case r.Equal(RoleEditor):
		return 2
	case r.Equal(RoleOperator):
		return 1
	}
	return 0
}
